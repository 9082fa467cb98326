package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mohsinsiddi/presalectl/internal/config"
	"github.com/Mohsinsiddi/presalectl/internal/metrics"
	"github.com/Mohsinsiddi/presalectl/internal/ui"
	"github.com/spf13/cobra"
)

var dappMetricsAddr string

var dappCmd = &cobra.Command{
	Use:   "dapp",
	Short: "Open the live presale screen",
	Long: `Open the presale screen: connect your wallet, watch your token balance
refresh, and buy tokens. Wallet requests are approved on screen with y/n.
Press w to switch to another stored wallet and d to lock the wallet.

Logs go to presalectl.log in the config directory so they do not draw over
the screen.

Examples:
  presalectl dapp
  presalectl dapp --wallet alice --metrics-addr :9102`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logFile, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer logFile.Close()
		log := setupLogger(logFile, slog.LevelInfo)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var m *metrics.Metrics
		if dappMetricsAddr != "" {
			m = metrics.New(nil)
			go func() {
				if err := m.Serve(ctx, dappMetricsAddr, log); err != nil {
					log.Error("metrics server stopped", "error", err)
				}
			}()
		}

		approver := &ui.TUIApprover{}
		s, err := openSession(ctx, approver, m, log)
		if err != nil {
			return err
		}
		defer s.app.Close()

		go s.provider.Watch(ctx, config.NetworkWatchPeriod)

		log.Info("dapp started", "rpc", s.rpcURL, "token", s.deploy.TokenAddress, "factory", s.deploy.FactoryAddress)
		return ui.RunDapp(ctx, s.app, s.provider, approver)
	},
}

func init() {
	dappCmd.Flags().StringVar(&dappMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9102")
}
