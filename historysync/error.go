// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package historysync

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific SyncError.
const (
	// ErrBootstrap indicates the remote tip or the local tip could not be
	// fetched while initializing.  The engine must not be run.
	ErrBootstrap ErrorCode = iota

	// ErrSyncIteration indicates a single catch-up iteration failed.  The
	// storage transaction was rolled back and the iteration is retried.
	ErrSyncIteration

	// ErrNotInitialized indicates Run was called before a successful Init.
	ErrNotInitialized

	// ErrAlreadyInitialized indicates Init was called more than once.
	ErrAlreadyInitialized

	// ErrAlreadyStarted indicates Run was called more than once.
	ErrAlreadyStarted

	// ErrOrphanBlock indicates the remote block at the next height does
	// not build on the local tip.
	ErrOrphanBlock
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrBootstrap:          "ErrBootstrap",
	ErrSyncIteration:      "ErrSyncIteration",
	ErrNotInitialized:     "ErrNotInitialized",
	ErrAlreadyInitialized: "ErrAlreadyInitialized",
	ErrAlreadyStarted:     "ErrAlreadyStarted",
	ErrOrphanBlock:        "ErrOrphanBlock",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// SyncError identifies a failure of the history synchronizer.  The caller
// can use type assertions or errors.As to access the ErrorCode field and
// errors.Is/As to reach the underlying cause.
type SyncError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying cause, if any
}

// Error satisfies the error interface and prints human-readable errors.
func (e SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Description, e.Err)
	}
	return e.Description
}

// Unwrap returns the underlying cause.
func (e SyncError) Unwrap() error {
	return e.Err
}

// syncError creates a SyncError given a set of arguments.
func syncError(c ErrorCode, desc string, err error) SyncError {
	return SyncError{ErrorCode: c, Description: desc, Err: err}
}

// IsErrorCode returns whether err is a SyncError with a matching error code.
func IsErrorCode(err error, c ErrorCode) bool {
	var serr SyncError
	return errors.As(err, &serr) && serr.ErrorCode == c
}
