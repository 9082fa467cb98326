package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

const (
	defaultAlgorithm = "fastest"

	configFile  = "config.json"
	walletsFile = "wallets.json"
	logFile     = "presalectl.log"
)

// DefaultDir returns $PRESALECTL_CONFIG_DIR or ~/.presalectl.
func DefaultDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home dir: %w", err)
	}
	return filepath.Join(home, ".presalectl"), nil
}

// Load reads config from dir (or creates defaults). An empty dir means
// DefaultDir.
func Load(dir string) (*Config, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// AddRPC adds a custom RPC URL for a network id.
func (c *Config) AddRPC(networkID, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[networkID], url) {
		return fmt.Errorf("RPC %s already exists for network %s", url, networkID)
	}
	c.CustomRPCs[networkID] = append(c.CustomRPCs[networkID], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a network id.
func (c *Config) RemoveRPC(networkID, url string) error {
	rpcs := c.CustomRPCs[networkID]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for network %s", url, networkID)
	}
	c.CustomRPCs[networkID] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// GetRPCs returns custom RPCs for a network id.
func (c *Config) GetRPCs(networkID string) []string {
	return c.CustomRPCs[networkID]
}

// Dir returns the config directory.
func (c *Config) Dir() string { return c.configDir }

// WalletsPath is where the wallet store lives.
func (c *Config) WalletsPath() string { return filepath.Join(c.configDir, walletsFile) }

// LogPath is where the TUI writes its log.
func (c *Config) LogPath() string { return filepath.Join(c.configDir, logFile) }

func defaults(dir string) *Config {
	return &Config{
		RPCAlgorithm: defaultAlgorithm,
		PollInterval: DefaultPollInterval.String(),
		CustomRPCs:   make(map[string][]string),
		configDir:    dir,
	}
}
