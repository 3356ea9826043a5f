// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btchistd/chainclient"
	"github.com/btcsuite/btchistd/historysync"
	"github.com/btcsuite/btchistd/internal/log"
	"github.com/btcsuite/btchistd/sampleconfig"
	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

// TestCreateDefaultConfigFile ensures the sample config is written and can be
// parsed without changing any default.
func TestCreateDefaultConfigFile(t *testing.T) {
	testpath := filepath.Join(t.TempDir(), "sub", "test.conf")
	require.NoError(t, createDefaultConfigFile(testpath))

	content, err := os.ReadFile(testpath)
	require.NoError(t, err)
	require.Equal(t, sampleconfig.FileContents, string(content))

	cfg := loadTestConfig(t, "-C", testpath)
	require.Equal(t, historysync.DefaultRetryDelay, cfg.RetryDelay)
}

// loadTestConfig runs loadConfig with a temporary data and log directory.
func loadTestConfig(t *testing.T, args ...string) *config {
	t.Helper()

	dir := t.TempDir()
	base := []string{
		"--datadir", filepath.Join(dir, "data"),
		"--logdir", filepath.Join(dir, "logs"),
	}
	cfg, _, err := loadConfig(append(base, args...))
	require.NoError(t, err)
	t.Cleanup(func() {
		log.LogRotator.Close()
		log.LogRotator = nil
		activeNetParams = &mainNetParams
	})
	return cfg
}

// TestLoadConfigDefaults ensures the RPC server defaults to the local btcd
// port of the selected network and directories are namespaced per network.
func TestLoadConfigDefaults(t *testing.T) {
	confFile := filepath.Join(t.TempDir(), "missing.conf")

	tests := []struct {
		name    string
		args    []string
		rpc     string
		netName string
	}{
		{"mainnet", nil, "localhost:8334", "mainnet"},
		{"testnet", []string{"--testnet"}, "localhost:18334", "testnet"},
		{"regtest", []string{"--regtest"}, "localhost:18334", "regtest"},
		{"simnet", []string{"--simnet"}, "localhost:18556", "simnet"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			args := append([]string{"-C", confFile}, test.args...)
			cfg := loadTestConfig(t, args...)
			require.Equal(t, test.rpc, cfg.RPCConnect)
			require.Equal(t, test.netName, filepath.Base(cfg.DataDir))
			require.Equal(t, test.netName, filepath.Base(cfg.LogDir))
			require.Equal(t, test.netName, netName(activeNetParams))
			require.Equal(t, chainclient.DefaultPollInterval, cfg.PollInterval)
			require.Equal(t, historysync.DefaultRetryDelay, cfg.RetryDelay)
		})
	}
}

// TestLoadConfigFile ensures config file values are applied and command line
// options take precedence over them.
func TestLoadConfigFile(t *testing.T) {
	confFile := filepath.Join(t.TempDir(), "btchistd.conf")
	contents := "[Application Options]\n" +
		"rpcconnect=10.0.0.1\n" +
		"rpcuser=alice\n" +
		"retrydelay=30s\n" +
		"httppostmode=1\n"
	require.NoError(t, os.WriteFile(confFile, []byte(contents), 0600))

	cfg := loadTestConfig(t, "-C", confFile, "--rpcuser=bob", "--regtest")
	require.Equal(t, "10.0.0.1:18334", cfg.RPCConnect)
	require.Equal(t, "bob", cfg.RPCUser)
	require.Equal(t, 30*time.Second, cfg.RetryDelay)
	require.True(t, cfg.HTTPPostMode)
}

// TestLoadConfigInvalid ensures conflicting or out of range options are
// rejected.
func TestLoadConfigInvalid(t *testing.T) {
	confFile := filepath.Join(t.TempDir(), "missing.conf")
	dir := t.TempDir()
	t.Cleanup(func() {
		if log.LogRotator != nil {
			log.LogRotator.Close()
			log.LogRotator = nil
		}
		activeNetParams = &mainNetParams
	})

	tests := [][]string{
		{"--testnet", "--regtest"},
		{"--retrydelay=10ms"},
		{"--pollinterval=0s"},
		{"--debuglevel=verbose"},
		{"--debuglevel=NOPE=info"},
	}
	for _, args := range tests {
		args = append([]string{
			"-C", confFile,
			"--datadir", filepath.Join(dir, "data"),
			"--logdir", filepath.Join(dir, "logs"),
		}, args...)
		_, _, err := loadConfig(args)
		require.Error(t, err, "args %v", args)
	}
}

// TestParseAndSetDebugLevels ensures per subsystem levels are applied.
func TestParseAndSetDebugLevels(t *testing.T) {
	t.Cleanup(func() { log.SetLogLevels(defaultLogLevel) })

	require.NoError(t, parseAndSetDebugLevels("HSYN=trace,HSDB=warn"))
	require.Equal(t, btclog.LevelTrace, log.SubsystemLoggers["HSYN"].Level())
	require.Equal(t, btclog.LevelWarn, log.SubsystemLoggers["HSDB"].Level())

	require.NoError(t, parseAndSetDebugLevels("error"))
	for _, id := range supportedSubsystems() {
		require.Equal(t, btclog.LevelError, log.SubsystemLoggers[id].Level())
	}

	require.Error(t, parseAndSetDebugLevels("HSYN"))
	require.Error(t, parseAndSetDebugLevels("HSYN=trace,bogus"))
	require.Equal(t, []string{"BHSD", "CCLI", "HSDB", "HSYN"}, supportedSubsystems())
}

func TestNormalizeAddress(t *testing.T) {
	require.Equal(t, "localhost:8334", normalizeAddress("localhost", "8334"))
	require.Equal(t, "127.0.0.1:9000", normalizeAddress("127.0.0.1:9000", "8334"))
	require.Equal(t, "[::1]:8334", normalizeAddress("::1", "8334"))
}
