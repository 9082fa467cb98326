package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Mohsinsiddi/presalectl/internal/chain"
)

// Provider errors.
var (
	ErrNoWallet     = errors.New("no wallet configured")
	ErrNotConnected = errors.New("wallet not connected")
)

// Provider is an injected wallet: it exposes accounts after the user
// approves, reports the network and signs, and pushes account and network
// changes to subscribers.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
	NetworkVersion(ctx context.Context) (string, error)
	Signer(ctx context.Context) (TxSigner, error)
	// Subscribe registers change callbacks. An empty account list means the
	// wallet disconnected. The returned func unsubscribes.
	Subscribe(onAccounts func([]string), onChain func(string)) func()
}

// NetworkReader reports the node's network id.
type NetworkReader interface {
	NetVersion(ctx context.Context) (string, error)
}

// LocalProvider is a Provider over the local wallet store and one node.
type LocalProvider struct {
	manager  *Manager
	node     NetworkReader
	approver Approver
	logger   *slog.Logger

	mu         sync.Mutex
	account    string // wallet name; empty means the default wallet
	authorized bool
	network    string
	nextSub    int
	accountFns map[int]func([]string)
	chainFns   map[int]func(string)
}

// ProviderOption configures a LocalProvider.
type ProviderOption func(*LocalProvider)

// WithApprover sets who confirms connections and signatures. nil keeps
// AutoApprove.
func WithApprover(a Approver) ProviderOption {
	return func(p *LocalProvider) {
		if a != nil {
			p.approver = a
		}
	}
}

// WithAccount selects a wallet by name instead of the default.
func WithAccount(name string) ProviderOption {
	return func(p *LocalProvider) { p.account = name }
}

// WithProviderLogger sets the provider's logger.
func WithProviderLogger(l *slog.Logger) ProviderOption {
	return func(p *LocalProvider) { p.logger = l }
}

// NewLocalProvider creates a provider for wallets in m talking to node.
func NewLocalProvider(m *Manager, node NetworkReader, opts ...ProviderOption) *LocalProvider {
	p := &LocalProvider{
		manager:    m,
		node:       node,
		approver:   AutoApprove,
		logger:     slog.Default(),
		accountFns: make(map[int]func([]string)),
		chainFns:   make(map[int]func(string)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RequestAccounts asks the user to expose the selected account.
func (p *LocalProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	name := p.account
	p.mu.Unlock()

	w, err := p.selected(name)
	if err != nil {
		return nil, err
	}

	ok, err := p.approver.Approve(ctx, ApprovalRequest{Kind: ApprovalConnect, Account: w.Address})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, chain.UserRejected("")
	}

	p.mu.Lock()
	p.authorized = true
	p.mu.Unlock()
	return []string{w.Address}, nil
}

// NetworkVersion returns the node's net_version.
func (p *LocalProvider) NetworkVersion(ctx context.Context) (string, error) {
	v, err := p.node.NetVersion(ctx)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	if p.network == "" {
		p.network = v
	}
	p.mu.Unlock()
	return v, nil
}

// Signer returns a signer for the connected account.
func (p *LocalProvider) Signer(ctx context.Context) (TxSigner, error) {
	p.mu.Lock()
	name, authorized := p.account, p.authorized
	p.mu.Unlock()
	if !authorized {
		return nil, ErrNotConnected
	}
	w, err := p.selected(name)
	if err != nil {
		return nil, err
	}
	if !w.CanSign() {
		return nil, fmt.Errorf("wallet %q is watch-only and cannot sign", w.Name)
	}
	return NewSigner(w, p.manager.Keys(), p.approver), nil
}

func (p *LocalProvider) Subscribe(onAccounts func([]string), onChain func(string)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	if onAccounts != nil {
		p.accountFns[id] = onAccounts
	}
	if onChain != nil {
		p.chainFns[id] = onChain
	}
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.accountFns, id)
		delete(p.chainFns, id)
		p.mu.Unlock()
	}
}

// Wallets lists the wallets UseAccount can switch to.
func (p *LocalProvider) Wallets() ([]*Wallet, error) {
	return p.manager.List()
}

// UseAccount switches the active wallet. Connected subscribers see an
// accounts change.
func (p *LocalProvider) UseAccount(name string) error {
	w, err := p.manager.Get(name)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.account = name
	authorized := p.authorized
	p.mu.Unlock()

	if authorized {
		p.emitAccounts([]string{w.Address})
	}
	return nil
}

// Lock disconnects the wallet. Subscribers see an empty account list.
func (p *LocalProvider) Lock() {
	p.mu.Lock()
	was := p.authorized
	p.authorized = false
	p.mu.Unlock()
	if was {
		p.emitAccounts(nil)
	}
}

// Watch polls the node every interval and emits a chain change when the
// network id differs from the last one seen. It returns when ctx is done.
func (p *LocalProvider) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		v, err := p.node.NetVersion(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Debug("network watch failed", "error", err)
			}
			continue
		}
		p.mu.Lock()
		changed := p.network != "" && p.network != v
		p.network = v
		p.mu.Unlock()
		if changed {
			p.logger.Info("network changed", "network", v)
			p.emitChain(v)
		}
	}
}

func (p *LocalProvider) selected(name string) (*Wallet, error) {
	if name != "" {
		return p.manager.Get(name)
	}
	w := p.manager.Default()
	if w == nil {
		return nil, ErrNoWallet
	}
	return w, nil
}

func (p *LocalProvider) emitAccounts(accounts []string) {
	p.mu.Lock()
	fns := make([]func([]string), 0, len(p.accountFns))
	for _, fn := range p.accountFns {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(accounts)
	}
}

func (p *LocalProvider) emitChain(network string) {
	p.mu.Lock()
	fns := make([]func(string), 0, len(p.chainFns))
	for _, fn := range p.chainFns {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(network)
	}
}
