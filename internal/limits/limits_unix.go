// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build !windows && !plan9

package limits

import (
	"fmt"
	"syscall"
)

const (
	// fileLimitWant covers the history database with its journal and the
	// RPC connection with room for log rotation.
	fileLimitWant = 512
	fileLimitMin  = 64
)

// SetLimits raises the soft open file limit of the process to
// fileLimitWant, or as close to it as the hard limit allows.
func SetLimits() error {
	var rLimit syscall.Rlimit

	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		return err
	}
	if rLimit.Cur >= fileLimitWant {
		return nil
	}
	if rLimit.Max < fileLimitMin {
		return fmt.Errorf("need at least %v file descriptors, hard "+
			"limit is %v", fileLimitMin, rLimit.Max)
	}
	want := rLimit
	if want.Max < fileLimitWant {
		want.Cur = want.Max
	} else {
		want.Cur = fileLimitWant
	}
	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &want)
	if err != nil {
		if rLimit.Cur >= fileLimitMin {
			return nil
		}
		want.Cur = fileLimitMin
		return syscall.Setrlimit(syscall.RLIMIT_NOFILE, &want)
	}

	return nil
}
