package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mohsinsiddi/presalectl/internal/chain"
	"github.com/Mohsinsiddi/presalectl/internal/config"
	"github.com/Mohsinsiddi/presalectl/internal/contract"
	"github.com/Mohsinsiddi/presalectl/internal/dapp"
	"github.com/Mohsinsiddi/presalectl/internal/metrics"
	"github.com/Mohsinsiddi/presalectl/internal/rpc"
	"github.com/Mohsinsiddi/presalectl/internal/wallet"
)

// session is everything a command needs to talk to the deployment.
type session struct {
	deploy   *config.Deployment
	rpcURL   string
	client   *chain.EVMClient
	manager  *wallet.Manager
	provider *wallet.LocalProvider
	app      *dapp.App
}

// openSession loads the deployment, picks an RPC endpoint and wires the
// wallet provider into a dapp.App. m may be nil.
func openSession(ctx context.Context, approver wallet.Approver, m *metrics.Metrics, log *slog.Logger) (*session, error) {
	deploy, err := config.LoadDeployment(envFile)
	if err != nil {
		return nil, err
	}

	url, err := pickRPC(ctx, deploy)
	if err != nil {
		return nil, err
	}
	log.Debug("using RPC", "url", url, "network", deploy.NetworkID)
	client := chain.NewEVMClient(url, chain.WithCallHook(m.RPCHook(url)))

	mgr, err := newWalletManager()
	if err != nil {
		return nil, err
	}
	provider := wallet.NewLocalProvider(mgr, client,
		wallet.WithApprover(approver),
		wallet.WithAccount(walletName()),
		wallet.WithProviderLogger(log),
	)

	binder := dapp.EVMBinder(client, dapp.Addresses{
		Token:   deploy.Token(),
		Factory: deploy.Factory(),
		Payment: deploy.USDC(),
	}, contract.WithLogger(log), contract.WithFallbackGas(config.GasLimitPurchase))

	app := dapp.New(provider, binder, dapp.Options{
		NetworkID:      deploy.NetworkID,
		PollInterval:   pollInterval(deploy),
		ConfirmTimeout: config.TxConfirmTimeout,
		Logger:         log,
		Metrics:        m,
	})

	return &session{
		deploy:   deploy,
		rpcURL:   url,
		client:   client,
		manager:  mgr,
		provider: provider,
		app:      app,
	}, nil
}

// pickRPC selects among RPC_URLS plus any custom URLs saved for the network.
func pickRPC(ctx context.Context, deploy *config.Deployment) (string, error) {
	algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
	if err != nil {
		return "", err
	}
	urls := append(append([]string(nil), deploy.RPCURLs...), cfg.GetRPCs(deploy.NetworkID)...)

	ctx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	defer cancel()
	url, err := rpc.Select(ctx, urls, algo)
	if err != nil {
		return "", fmt.Errorf("selecting RPC for network %s: %w", deploy.NetworkID, err)
	}
	return url, nil
}

// pollInterval prefers POLL_INTERVAL from the process environment, then
// the saved config, then the env file value or the built-in default.
func pollInterval(deploy *config.Deployment) time.Duration {
	if deploy.PollIntervalFromEnv && deploy.PollInterval > 0 {
		return deploy.PollInterval
	}
	if d := cfg.Poll(); d > 0 {
		return d
	}
	return deploy.PollInterval
}

func walletName() string {
	if walletFlag != "" {
		return walletFlag
	}
	return cfg.DefaultWallet
}

func newWalletManager() (*wallet.Manager, error) {
	ks, err := wallet.DefaultKeystore(cfg.Dir())
	if err != nil {
		return nil, fmt.Errorf("opening keystore: %w", err)
	}
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeystore(ks),
	), nil
}

// loadSigningWallet returns the selected wallet, which must hold a key.
func loadSigningWallet(mgr *wallet.Manager) (*wallet.Wallet, error) {
	var (
		w   *wallet.Wallet
		err error
	)
	if name := walletName(); name != "" {
		w, err = mgr.Get(name)
	} else if w = mgr.Default(); w == nil {
		err = fmt.Errorf("%w; add one with: presalectl wallet add <name> --key <hex>", wallet.ErrNoWallet)
	}
	if err != nil {
		return nil, err
	}
	if !w.CanSign() {
		return nil, fmt.Errorf("wallet %q is watch-only; re-add it with --key to sign", w.Name)
	}
	return w, nil
}
