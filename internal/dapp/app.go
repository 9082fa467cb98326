package dapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Mohsinsiddi/presalectl/internal/chain"
	"github.com/Mohsinsiddi/presalectl/internal/config"
	"github.com/Mohsinsiddi/presalectl/internal/metrics"
	"github.com/Mohsinsiddi/presalectl/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// Options configures an App.
type Options struct {
	NetworkID      string        // required net_version
	PollInterval   time.Duration // default config.DefaultPollInterval
	ConfirmTimeout time.Duration // per receipt wait; default config.TxConfirmTimeout
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
}

// App owns the wallet session: it connects through the provider, binds the
// contracts, keeps the balance fresh and runs purchases.
type App struct {
	provider wallet.Provider
	bind     Binder
	opts     Options
	logger   *slog.Logger
	metrics  *metrics.Metrics

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	closeOnce   sync.Once

	mu        sync.Mutex
	state     State
	gen       uint64 // bumped on every session change
	listening bool   // provider events matter only after a connect
	contracts *Contracts
	poller    *Poller
	subs      map[int]func(State)
	nextSub   int
}

// New creates an App. A nil provider leaves the App in the NoWallet state.
func New(provider wallet.Provider, bind Binder, opts Options) *App {
	if opts.PollInterval <= 0 {
		opts.PollInterval = config.DefaultPollInterval
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = config.TxConfirmTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		provider: provider,
		bind:     bind,
		opts:     opts,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		ctx:      ctx,
		cancel:   cancel,
		subs:     make(map[int]func(State)),
	}
	if provider == nil {
		a.state.NoWallet = true
		return a
	}
	a.unsubscribe = provider.Subscribe(a.onAccountsChanged, a.onNetworkChanged)
	return a
}

// State returns the current snapshot.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.clone()
}

// Subscribe calls fn with a snapshot after every change. The returned func
// removes the subscription.
func (a *App) Subscribe(fn func(State)) func() {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

// Connect asks the wallet for an account. A rejected request leaves the
// state untouched and returns nil. Errors that end up in State are not
// returned.
func (a *App) Connect(ctx context.Context) error {
	if a.provider == nil {
		return nil
	}
	accounts, err := a.provider.RequestAccounts(ctx)
	switch {
	case IsUserRejected(err):
		a.logger.Info("connection request rejected")
		return nil
	case errors.Is(err, wallet.ErrNoWallet):
		a.update(func(s *State) { s.NoWallet = true })
		return nil
	case err != nil:
		return fmt.Errorf("requesting accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil
	}

	network, err := a.provider.NetworkVersion(ctx)
	if err != nil {
		return fmt.Errorf("reading network: %w", err)
	}
	a.mu.Lock()
	a.listening = true
	a.mu.Unlock()

	if network != a.opts.NetworkID {
		a.logger.Warn("wrong network", "network", network, "want", a.opts.NetworkID)
		a.update(func(s *State) {
			s.NoWallet = false
			s.NetworkError = wrongNetworkMessage(a.opts.NetworkID)
		})
		return nil
	}
	a.initialize(ctx, accounts[0], network)
	return nil
}

// RefreshBalance reads the balance now. The result is dropped if the
// session changed while the call was in flight.
func (a *App) RefreshBalance(ctx context.Context) error {
	a.mu.Lock()
	gen := a.gen
	a.mu.Unlock()
	return a.refreshBalance(ctx, gen)
}

// DismissNetworkError clears the network banner.
func (a *App) DismissNetworkError() {
	a.update(func(s *State) { s.NetworkError = "" })
}

// DismissTransactionError clears the transaction banner.
func (a *App) DismissTransactionError() {
	a.update(func(s *State) { s.TransactionError = "" })
}

// PollerRunning reports whether a balance poller is active.
func (a *App) PollerRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.poller != nil && a.poller.Running()
}

// Close stops polling and drops the provider subscriptions.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.unsubscribe != nil {
			a.unsubscribe()
		}
		a.stopPoller()
		a.cancel()
	})
}

func (a *App) onAccountsChanged(accounts []string) {
	if !a.isListening() {
		return
	}
	a.stopPoller()
	if len(accounts) == 0 {
		a.logger.Info("wallet disconnected")
		a.reset("accounts_cleared")
		return
	}
	a.logger.Info("account changed", "account", accounts[0])
	a.mu.Lock()
	network := a.state.Network
	a.mu.Unlock()
	if network == "" {
		network = a.opts.NetworkID
	}
	a.initialize(a.ctx, accounts[0], network)
}

func (a *App) onNetworkChanged(network string) {
	if !a.isListening() {
		return
	}
	a.logger.Info("network changed", "network", network)
	a.stopPoller()
	a.reset("chain_changed")
}

// initialize starts a session for account.
func (a *App) initialize(ctx context.Context, account, network string) {
	a.stopPoller()
	a.mu.Lock()
	a.gen++
	gen := a.gen
	a.contracts = nil
	a.state = State{Seq: a.state.Seq, Account: account, Network: network}
	a.mu.Unlock()
	a.notify()

	logger := a.logger.With("account", account)
	contracts, info, err := a.bindSession(ctx)
	if err != nil {
		logger.Error("session setup failed", "error", err)
		a.updateIf(gen, func(s *State) { s.NetworkError = ErrorMessage(err) })
		return
	}

	a.mu.Lock()
	if a.gen != gen {
		a.mu.Unlock()
		return
	}
	a.contracts = contracts
	a.state.Token = info
	// A concurrent initialize may have stored its poller after our stopPoller.
	stale := a.poller
	a.poller = NewPoller(a.opts.PollInterval, func(ctx context.Context) error {
		return a.refreshBalance(ctx, gen)
	}, logger)
	a.poller.Start(a.ctx)
	a.mu.Unlock()
	if stale != nil {
		stale.Stop()
	}
	a.metrics.SetPollerRunning(true)
	a.notify()
	logger.Info("session ready", "token", info.Symbol, "price", info.UnitPrice)
}

func (a *App) bindSession(ctx context.Context) (*Contracts, *TokenInfo, error) {
	signer, err := a.provider.Signer(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("getting signer: %w", err)
	}
	contracts, err := a.bind(signer)
	if err != nil {
		return nil, nil, fmt.Errorf("binding contracts: %w", err)
	}
	info, err := fetchTokenInfo(ctx, contracts)
	if err != nil {
		return nil, nil, fmt.Errorf("reading token info: %w", err)
	}
	return contracts, info, nil
}

func (a *App) refreshBalance(ctx context.Context, gen uint64) error {
	a.mu.Lock()
	if gen != a.gen || a.contracts == nil {
		a.mu.Unlock()
		return nil
	}
	token := a.contracts.Token
	account := common.HexToAddress(a.state.Account)
	a.mu.Unlock()

	balance, err := token.BalanceOf(ctx, account)
	a.metrics.RecordBalancePoll(err)
	if err != nil {
		return err
	}

	if !a.updateIf(gen, func(s *State) { s.Balance = balance }) {
		a.logger.Debug("discarding stale balance", "account", account.Hex())
	}
	return nil
}

// reset drops the session, clearing token data and both errors.
func (a *App) reset(reason string) {
	a.mu.Lock()
	a.gen++
	a.contracts = nil
	a.state = State{Seq: a.state.Seq, NoWallet: a.state.NoWallet}
	a.mu.Unlock()
	a.metrics.RecordSessionReset(reason)
	a.notify()
}

func (a *App) stopPoller() {
	a.mu.Lock()
	p := a.poller
	a.poller = nil
	a.mu.Unlock()
	if p != nil {
		p.Stop()
		a.metrics.SetPollerRunning(false)
	}
}

func (a *App) isListening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listening
}

func (a *App) update(fn func(*State)) {
	a.mu.Lock()
	fn(&a.state)
	a.mu.Unlock()
	a.notify()
}

// updateIf applies fn only while the session generation is still gen.
func (a *App) updateIf(gen uint64, fn func(*State)) bool {
	a.mu.Lock()
	if a.gen != gen {
		a.mu.Unlock()
		return false
	}
	fn(&a.state)
	a.mu.Unlock()
	a.notify()
	return true
}

func (a *App) notify() {
	a.mu.Lock()
	a.state.Seq++
	snap := a.state.clone()
	fns := make([]func(State), 0, len(a.subs))
	for _, fn := range a.subs {
		fns = append(fns, fn)
	}
	a.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func wrongNetworkMessage(id string) string {
	if n, ok := chain.LookupNetwork(id); ok {
		return fmt.Sprintf("Please connect your wallet to %s (network id %s)", n.DisplayName, id)
	}
	return fmt.Sprintf("Please connect your wallet to network id %s", id)
}
