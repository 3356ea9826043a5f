// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
btchistd keeps a local SQLite copy of the block, transaction and address
history of a bitcoin chain in sync with a btcd (or bitcoind) RPC server.

On start it discards unconfirmed data left in the database, compares the
locally stored tip with the tip of the RPC server and connects blocks one at a
time until both match, rolling back any blocks the server no longer has on its
main chain.  It exits once the database has caught up.

Usage:

	btchistd [OPTIONS]

Application Options:

	-V, --version          Display version information and exit
	-C, --configfile=      Path to configuration file
	-b, --datadir=         Directory to store the history database
	    --logdir=          Directory to log output
	-d, --debuglevel=      Logging level for all subsystems {trace, debug,
	                       info, warn, error, critical} -- You may also
	                       specify <subsystem>=<level>,<subsystem2>=<level>,...
	                       to set the log level for individual subsystems --
	                       Use show to list available subsystems (info)
	    --testnet          Use the test network
	    --regtest          Use the regression test network
	    --simnet           Use the simulation test network
	-c, --rpcconnect=      Hostname/IP and port of the RPC server to connect
	                       to (default localhost, port by network)
	-u, --rpcuser=         RPC username
	-P, --rpcpass=         RPC password
	    --rpccert=         RPC server certificate chain for validation
	    --noclienttls      Disable TLS for the RPC client
	    --httppostmode     Use HTTP POST mode and poll for new blocks instead
	                       of websocket notifications
	    --pollinterval=    Interval between best block polls in HTTP POST
	                       mode (10s)
	    --retrydelay=      Wait before retrying a failed sync iteration (15s)

Service Options (Windows only):

	-s, --service=         Service command {install, remove, start, stop}

Help Options:

	-h, --help             Show this help message
*/
package main
