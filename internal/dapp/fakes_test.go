package dapp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/Mohsinsiddi/presalectl/internal/chain"
	"github.com/Mohsinsiddi/presalectl/internal/contract"
	"github.com/Mohsinsiddi/presalectl/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	testNetwork = "31337"
	accountA    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	accountB    = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

var factoryAddr = common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- provider ---

type fakeProvider struct {
	mu         sync.Mutex
	accounts   []string
	network    string
	requestErr error
	signerErr  error
	onAccounts func([]string)
	onChain    func(string)
	subscribed bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: []string{accountA}, network: testNetwork}
}

func (p *fakeProvider) RequestAccounts(context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.requestErr != nil {
		return nil, p.requestErr
	}
	return append([]string(nil), p.accounts...), nil
}

func (p *fakeProvider) NetworkVersion(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.network, nil
}

func (p *fakeProvider) Signer(context.Context) (wallet.TxSigner, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.signerErr != nil {
		return nil, p.signerErr
	}
	return fakeSigner(p.accounts[0]), nil
}

func (p *fakeProvider) Subscribe(onAccounts func([]string), onChain func(string)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onAccounts, p.onChain, p.subscribed = onAccounts, onChain, true
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.onAccounts, p.onChain, p.subscribed = nil, nil, false
	}
}

func (p *fakeProvider) emitAccounts(accounts []string) {
	p.mu.Lock()
	p.accounts = accounts
	fn := p.onAccounts
	p.mu.Unlock()
	if fn != nil {
		fn(accounts)
	}
}

func (p *fakeProvider) emitChain(network string) {
	p.mu.Lock()
	p.network = network
	fn := p.onChain
	p.mu.Unlock()
	if fn != nil {
		fn(network)
	}
}

type fakeSigner string

func (s fakeSigner) Address() string { return string(s) }

func (s fakeSigner) SignTx(context.Context, *types.Transaction, *big.Int) ([]byte, error) {
	return nil, errors.New("not used")
}

// --- contracts ---

type fakeToken struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
	infoErr  error
	balErr   error
	calls    int

	// hold blocks BalanceOf(holdFor) until closed, ignoring ctx.
	holdFor common.Address
	hold    chan struct{}
	entered chan struct{}
}

func newFakeToken() *fakeToken {
	return &fakeToken{balances: map[common.Address]*big.Int{
		common.HexToAddress(accountA): big.NewInt(0),
		common.HexToAddress(accountB): new(big.Int).Mul(big.NewInt(7), big.NewInt(1e18)),
	}}
}

func (t *fakeToken) Name(context.Context) (string, error) { return "Presale Token", t.infoErr }

func (t *fakeToken) Symbol(context.Context) (string, error) { return "PST", nil }

func (t *fakeToken) Decimals(context.Context) (uint8, error) { return 18, nil }

func (t *fakeToken) BalanceOf(_ context.Context, account common.Address) (*big.Int, error) {
	t.mu.Lock()
	t.calls++
	hold, entered := t.hold, t.entered
	holding := hold != nil && account == t.holdFor
	t.mu.Unlock()

	if holding {
		close(entered)
		<-hold
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.balErr != nil {
		return nil, t.balErr
	}
	return new(big.Int).Set(t.balances[account]), nil
}

func (t *fakeToken) credit(account common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[account] = new(big.Int).Add(t.balances[account], amount)
}

func (t *fakeToken) balance(account string) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.balances[common.HexToAddress(account)])
}

func (t *fakeToken) setBalanceErr(err error) {
	t.mu.Lock()
	t.balErr = err
	t.mu.Unlock()
}

// receipts resolves hashes to outcomes.
type receipts struct {
	mu      sync.Mutex
	results map[string]error
	onMined map[string]func()
}

func newReceipts() *receipts {
	return &receipts{results: map[string]error{}, onMined: map[string]func(){}}
}

func (r *receipts) WaitForReceipt(_ context.Context, hash string, _ time.Duration) (*chain.TxReceipt, error) {
	r.mu.Lock()
	err, fn := r.results[hash], r.onMined[hash]
	r.mu.Unlock()
	if err != nil {
		return &chain.TxReceipt{Hash: hash, Status: 0}, err
	}
	if fn != nil {
		fn()
	}
	return &chain.TxReceipt{Hash: hash, Status: 1}, nil
}

type fakePresale struct {
	mu        sync.Mutex
	price     *big.Int
	token     *fakeToken
	receipts  *receipts
	buyer     common.Address
	submitErr error
	purchases []int64
	log       *[]string
}

func (p *fakePresale) Address() common.Address { return factoryAddr }

func (p *fakePresale) PresalePrice(context.Context) (*big.Int, error) { return p.price, nil }

func (p *fakePresale) PurchaseToken(_ context.Context, amount *big.Int) (*contract.PendingTx, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.log = append(*p.log, "purchase")
	if p.submitErr != nil {
		return nil, p.submitErr
	}
	p.purchases = append(p.purchases, amount.Int64())
	const hash = "0xpurchase"
	units := new(big.Int).Mul(amount, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	buyer := p.buyer
	p.receipts.mu.Lock()
	p.receipts.onMined[hash] = func() { p.token.credit(buyer, units) }
	p.receipts.mu.Unlock()
	return contract.NewPendingTx(hash, p.receipts), nil
}

type approval struct {
	spender common.Address
	amount  *big.Int
}

type fakePayment struct {
	mu        sync.Mutex
	receipts  *receipts
	err       error
	approvals []approval
	log       *[]string

	// gate blocks Approve until closed.
	gate    chan struct{}
	entered chan struct{}
}

func (p *fakePayment) Approve(_ context.Context, spender common.Address, amount *big.Int) (*contract.PendingTx, error) {
	p.mu.Lock()
	gate, entered := p.gate, p.entered
	p.mu.Unlock()
	if gate != nil {
		close(entered)
		<-gate
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	*p.log = append(*p.log, "approve")
	if p.err != nil {
		return nil, p.err
	}
	p.approvals = append(p.approvals, approval{spender, new(big.Int).Set(amount)})
	return contract.NewPendingTx("0xapprove", p.receipts), nil
}

// harness wires an App to fakes.
type harness struct {
	app      *App
	provider *fakeProvider
	token    *fakeToken
	presale  *fakePresale
	payment  *fakePayment
	receipts *receipts
	binds    int
	calls    []string
}

func newHarness(opts ...func(*Options)) *harness {
	h := &harness{provider: newFakeProvider(), token: newFakeToken(), receipts: newReceipts()}
	h.presale = &fakePresale{price: big.NewInt(5), token: h.token, receipts: h.receipts, buyer: common.HexToAddress(accountA), log: &h.calls}
	h.payment = &fakePayment{receipts: h.receipts, log: &h.calls}

	o := Options{
		NetworkID:    testNetwork,
		PollInterval: time.Hour,
		Logger:       quietLogger(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	bind := func(wallet.TxSigner) (*Contracts, error) {
		h.binds++
		return &Contracts{Token: h.token, Presale: h.presale, Payment: h.payment}, nil
	}
	h.app = New(h.provider, bind, o)
	return h
}
