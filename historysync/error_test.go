// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package historysync

import (
	"errors"
	"fmt"
	"testing"
)

// TestErrorCodeStringer tests the stringized output for the ErrorCode type.
func TestErrorCodeStringer(t *testing.T) {
	tests := []struct {
		in   ErrorCode
		want string
	}{
		{ErrBootstrap, "ErrBootstrap"},
		{ErrSyncIteration, "ErrSyncIteration"},
		{ErrNotInitialized, "ErrNotInitialized"},
		{ErrAlreadyInitialized, "ErrAlreadyInitialized"},
		{ErrAlreadyStarted, "ErrAlreadyStarted"},
		{ErrOrphanBlock, "ErrOrphanBlock"},
		{0xffff, "Unknown ErrorCode (65535)"},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		result := test.in.String()
		if result != test.want {
			t.Errorf("String #%d\n got: %s want: %s", i, result,
				test.want)
			continue
		}
	}
}

// TestSyncError tests the error output and unwrapping for the SyncError type.
func TestSyncError(t *testing.T) {
	cause := errors.New("connection refused")
	tests := []struct {
		in   SyncError
		want string
	}{
		{
			SyncError{Description: "duplicate init"},
			"duplicate init",
		},
		{
			SyncError{Description: "unable to fetch remote tip", Err: cause},
			"unable to fetch remote tip: connection refused",
		},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		result := test.in.Error()
		if result != test.want {
			t.Errorf("Error #%d\n got: %s want: %s", i, result,
				test.want)
			continue
		}
	}

	wrapped := fmt.Errorf("init: %w", syncError(ErrBootstrap, "bootstrap", cause))
	if !errors.Is(wrapped, cause) {
		t.Errorf("wrapped error does not unwrap to its cause")
	}
	if !IsErrorCode(wrapped, ErrBootstrap) {
		t.Errorf("IsErrorCode did not match ErrBootstrap")
	}
	if IsErrorCode(wrapped, ErrSyncIteration) {
		t.Errorf("IsErrorCode unexpectedly matched ErrSyncIteration")
	}
	if IsErrorCode(cause, ErrBootstrap) {
		t.Errorf("IsErrorCode matched a non SyncError")
	}
}
