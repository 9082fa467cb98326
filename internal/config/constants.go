package config

import "time"

// Gas limits used as EstimateGas fallbacks when the node cannot simulate the tx.
const (
	GasLimitERC20Transfer = uint64(60_000)  // transfer, burn, approve
	GasLimitERC20Mint     = uint64(80_000)  // mint, lock, unlock
	GasLimitPurchase      = uint64(200_000) // purchaseToken
)

// Timeouts and intervals.
const (
	RPCSelectTimeout    = 10 * time.Second // probing RPC_URLS
	TxConfirmTimeout    = 3 * time.Minute  // receipt wait per transaction
	DefaultPollInterval = time.Second      // balance refresh
	NetworkWatchPeriod  = 3 * time.Second  // net_version polling in the TUI
)

// ConfigDirEnv overrides the default ~/.presalectl directory.
const ConfigDirEnv = "PRESALECTL_CONFIG_DIR"
