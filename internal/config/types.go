package config

import "time"

// Config holds persisted presalectl settings.
type Config struct {
	DefaultWallet string              `json:"default_wallet"`
	RPCAlgorithm  string              `json:"rpc_algorithm"` // "fastest" | "failover"
	PollInterval  string              `json:"poll_interval"` // Go duration, e.g. "1s"
	CustomRPCs    map[string][]string `json:"custom_rpcs"`   // network id -> extra RPC URLs

	// internal: config dir path used for Save()
	configDir string
}

// Poll returns the configured balance poll interval, or zero when unset or
// invalid.
func (c *Config) Poll() time.Duration {
	if c.PollInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}
