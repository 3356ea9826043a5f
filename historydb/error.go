// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package historydb

import (
	"errors"
	"fmt"
)

// Errors that the various database functions may return.
var (
	ErrDbDoesNotExist = errors.New("non-existent database")
	ErrDbClosed       = errors.New("database is closed")
	ErrColumnMissing  = errors.New("column missing from row")
)

// VersionError identifies a database whose schema version does not match the
// version this package knows how to operate on.
type VersionError struct {
	Found    int
	Expected int
}

// Error returns the version error as a human-readable string and satisfies
// the error interface.
func (e VersionError) Error() string {
	return fmt.Sprintf("invalid database version %d (expected %d)",
		e.Found, e.Expected)
}

// QueryError wraps a failure of a single statement with the statement text so
// batch failures can be attributed.
type QueryError struct {
	Stmt string
	Err  error
}

// Error satisfies the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q failed: %v", e.Stmt, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *QueryError) Unwrap() error {
	return e.Err
}
