package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DefaultEnvFile is read from the working directory when present.
const DefaultEnvFile = ".env"

// Deployment is the presale deployment the tool talks to.
type Deployment struct {
	TokenAddress   string        `envconfig:"TOKEN_ADDRESS"`
	FactoryAddress string        `envconfig:"FACTORY_ADDRESS"`
	USDCAddress    string        `envconfig:"USDC_ADDRESS"`
	NetworkID      string        `envconfig:"NETWORK_ID"`
	RPCURLs        []string      `envconfig:"RPC_URLS" default:"http://127.0.0.1:8545"`
	PollInterval   time.Duration `envconfig:"POLL_INTERVAL" default:"1s"`

	// PollIntervalFromEnv is set when POLL_INTERVAL was present in the
	// process environment before the env file was loaded.
	PollIntervalFromEnv bool `ignored:"true"`
}

// LoadDeployment loads envFile into the process environment (a missing file
// is fine, existing variables win) and reads the deployment from it.
// Every invalid or missing setting is reported in one error.
func LoadDeployment(envFile string) (*Deployment, error) {
	_, pollFromEnv := os.LookupEnv("POLL_INTERVAL")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	var d Deployment
	if err := envconfig.Process("", &d); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	d.PollIntervalFromEnv = pollFromEnv
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks every field and joins all problems.
func (d *Deployment) Validate() error {
	var errs []error
	for _, f := range []struct{ key, val string }{
		{"TOKEN_ADDRESS", d.TokenAddress},
		{"FACTORY_ADDRESS", d.FactoryAddress},
		{"USDC_ADDRESS", d.USDCAddress},
	} {
		switch {
		case f.val == "":
			errs = append(errs, fmt.Errorf("%s is not set", f.key))
		case !common.IsHexAddress(f.val):
			errs = append(errs, fmt.Errorf("%s %q is not a valid address", f.key, f.val))
		}
	}
	if d.NetworkID == "" {
		errs = append(errs, errors.New("NETWORK_ID is not set"))
	} else if _, err := strconv.ParseUint(d.NetworkID, 10, 64); err != nil {
		errs = append(errs, fmt.Errorf("NETWORK_ID %q is not a number", d.NetworkID))
	}
	if len(d.RPCURLs) == 0 {
		errs = append(errs, errors.New("RPC_URLS is empty"))
	}
	if d.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL %s must be positive", d.PollInterval))
	}
	return errors.Join(errs...)
}

func (d *Deployment) Token() common.Address   { return common.HexToAddress(d.TokenAddress) }
func (d *Deployment) Factory() common.Address { return common.HexToAddress(d.FactoryAddress) }
func (d *Deployment) USDC() common.Address    { return common.HexToAddress(d.USDCAddress) }

// EnvMap renders d as environment variables, including the REACT_APP_
// copies a web frontend build reads. POLL_INTERVAL is left out at its
// default so the saved config interval still applies.
func (d *Deployment) EnvMap() map[string]string {
	env := map[string]string{
		"TOKEN_ADDRESS":             d.TokenAddress,
		"FACTORY_ADDRESS":           d.FactoryAddress,
		"USDC_ADDRESS":              d.USDCAddress,
		"NETWORK_ID":                d.NetworkID,
		"RPC_URLS":                  strings.Join(d.RPCURLs, ","),
		"SKIP_PREFLIGHT_CHECK":      "true",
		"REACT_APP_TOKEN_ADDRESS":   d.TokenAddress,
		"REACT_APP_FACTORY_ADDRESS": d.FactoryAddress,
		"REACT_APP_USDC_ADDRESS":    d.USDCAddress,
		"REACT_APP_NETWORK_ID":      d.NetworkID,
	}
	if d.PollInterval > 0 && d.PollInterval != DefaultPollInterval {
		env["POLL_INTERVAL"] = d.PollInterval.String()
	}
	return env
}

// WriteEnvFile writes d to path in dotenv format.
func WriteEnvFile(path string, d *Deployment) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := godotenv.Write(d.EnvMap(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
