// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sampleconfig

// FileContents is a string containing the commented example config for
// btchistd.
const FileContents = `[Application Options]

; ------------------------------------------------------------------------------
; Data settings
; ------------------------------------------------------------------------------

; The directory to store the history database.  The database holds every
; transaction of the chain, so this location must have a lot of free space.
; The default is ~/.btchistd/data on POSIX OSes, $LOCALAPPDATA/Btchistd/data on
; Windows, ~/Library/Application Support/Btchistd/data on macOS.  Environment
; variables are expanded so they may be used.  NOTE: Windows environment
; variables are typically %VARIABLE%, but they must be accessed with $VARIABLE
; here.  The database lives in a subdirectory named after the active network.
; datadir=~/.btchistd/data                            ; Unix
; datadir=$LOCALAPPDATA/Btchistd/data                 ; Windows
; datadir=~/Library/Application Support/Btchistd/data ; macOS


; ------------------------------------------------------------------------------
; Network settings
; ------------------------------------------------------------------------------

; Use testnet.
; testnet=1

; Use the regression test network.
; regtest=1

; Use simnet.
; simnet=1


; ------------------------------------------------------------------------------
; RPC client settings
; ------------------------------------------------------------------------------

; The RPC server to synchronize against.  The port defaults to the btcd RPC
; port of the active network: 8334 for mainnet, 18334 for testnet and regtest
; and 18556 for simnet.
; rpcconnect=localhost:8334

; Username and password to authenticate with the RPC server.
; rpcuser=
; rpcpass=

; File containing the certificate chain of the RPC server.  The default is the
; rpc.cert file in the btcd home directory.
; rpccert=~/.btcd/rpc.cert

; Connect without TLS.  Only use this against a server on the local machine.
; noclienttls=1

; Use HTTP POST requests instead of a websocket.  This is required for servers
; such as bitcoind that do not support websocket notifications.  New blocks are
; then detected by polling the best block hash.
; httppostmode=1

; The interval between best block polls in HTTP POST mode.  Valid time units
; are {ms, s, m, h}.
; pollinterval=10s


; ------------------------------------------------------------------------------
; Sync settings
; ------------------------------------------------------------------------------

; How long to wait before retrying a sync iteration that failed, for example
; because the RPC server went away.  Valid time units are {ms, s, m, h}.
; retrydelay=15s


; ------------------------------------------------------------------------------
; Debug
; ------------------------------------------------------------------------------

; Directory to log output.  The default is a logs directory next to the data
; directory.
; logdir=~/.btchistd/logs

; Debug logging level.
; Valid levels are {trace, debug, info, warn, error, critical}
; You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set
; log level for individual subsystems.  Use btchistd --debuglevel=show to list
; available subsystems.
; debuglevel=info
`
