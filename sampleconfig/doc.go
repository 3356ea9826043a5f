// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package sampleconfig provides a single constant that contains the contents of
the sample configuration file for btchistd.  It is written to the default
configuration path on first run so users can see every available option.
*/
package sampleconfig
