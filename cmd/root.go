package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Mohsinsiddi/presalectl/internal/config"
	"github.com/Mohsinsiddi/presalectl/internal/ui"
	"github.com/spf13/cobra"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/presalectl/cmd.Version=1.2.3" .
var Version = ui.Version

var (
	cfgDir     string
	envFile    string
	walletFlag string
	cfg        *config.Config
	verbose    bool
	logJSON    bool
	logger     = slog.Default()
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "presalectl",
	Short: "Buy and administer an ERC20 presale from the terminal",
	Long: `presalectl connects a local wallet to an ERC20 presale deployment.

  Watch your token balance live, approve the payment token and purchase
  in one step, and run the owner operations of the deployment scripts.

The deployment is read from .env (TOKEN_ADDRESS, FACTORY_ADDRESS,
USDC_ADDRESS, NETWORK_ID, RPC_URLS). Create one with: presalectl env init`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger = setupLogger(os.Stderr, slog.LevelWarn)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Err(err.Error()))
		os.Exit(1)
	}
}

// setupLogger builds the process logger writing to w at level (debug with
// --verbose) and installs it as the slog default.
func setupLogger(w io.Writer, level slog.Level) *slog.Logger {
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if logJSON {
		h = slog.NewJSONHandler(w, opts)
	}
	l := slog.New(h)
	slog.SetDefault(l)
	return l
}

func init() {
	// PRESALECTL_CONFIG_DIR overrides the --config default.
	cfgDir = os.Getenv(config.ConfigDirEnv)

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.presalectl)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", config.DefaultEnvFile, "deployment .env file")
	rootCmd.PersistentFlags().StringVarP(&walletFlag, "wallet", "w", "", "wallet name (default: the default wallet)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")

	rootCmd.AddCommand(
		dappCmd,
		infoCmd,
		buyCmd,
		walletCmd,
		tokenCmd,
		envCmd,
		rpcCmd,
		configCmd,
	)
}
