package ui

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/Mohsinsiddi/presalectl/internal/dapp"
	"github.com/Mohsinsiddi/presalectl/internal/wallet"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu         sync.Mutex
	state      dapp.State
	connectErr error
	connects   int
	purchases  []int64
	dismissed  []string
}

func (s *fakeSession) State() dapp.State { return s.state }

func (s *fakeSession) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	return s.connectErr
}

func (s *fakeSession) Purchase(_ context.Context, amount int64) (dapp.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purchases = append(s.purchases, amount)
	return dapp.OutcomeConfirmed, nil
}

func (s *fakeSession) DismissNetworkError() {
	s.mu.Lock()
	s.dismissed = append(s.dismissed, "network")
	s.mu.Unlock()
}

func (s *fakeSession) DismissTransactionError() {
	s.mu.Lock()
	s.dismissed = append(s.dismissed, "transaction")
	s.mu.Unlock()
}

func (s *fakeSession) Subscribe(func(dapp.State)) func() { return func() {} }

type fakeAccounts struct {
	wallets []*wallet.Wallet
	useErr  error
	used    []string
	locks   int
}

func (a *fakeAccounts) Wallets() ([]*wallet.Wallet, error) { return a.wallets, nil }

func (a *fakeAccounts) UseAccount(name string) error {
	a.used = append(a.used, name)
	return a.useErr
}

func (a *fakeAccounts) Lock() { a.locks++ }

func twoWallets() *fakeAccounts {
	return &fakeAccounts{wallets: []*wallet.Wallet{
		{Name: "alice", Address: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"},
		{Name: "buyer", Address: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"},
	}}
}

// run executes cmd and feeds its message back into m.
func run(t *testing.T, m DappModel, cmd tea.Cmd) DappModel {
	t.Helper()
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	return next.(DappModel)
}

func readyState() dapp.State {
	return dapp.State{
		Seq:     3,
		Account: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		Network: "31337",
		Token:   &dapp.TokenInfo{Name: "Presale Token", Symbol: "PST", Decimals: 18, UnitPrice: big.NewInt(5)},
		Balance: new(big.Int).Mul(big.NewInt(7), big.NewInt(1e18)),
	}
}

func press(m DappModel, keys ...string) (DappModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, c := m.Update(msg)
		m, cmd = next.(DappModel), c
	}
	return m, cmd
}

func TestDappConnectKey(t *testing.T) {
	s := &fakeSession{connectErr: errors.New("dial tcp: refused")}
	m := NewDappModel(context.Background(), s)
	assert.Contains(t, m.View(), "Please connect your wallet")

	m, cmd := press(m, "c")
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, 1, s.connects)

	next, _ := m.Update(msg)
	assert.Contains(t, next.View(), "dial tcp: refused")
}

func TestDappNoWallet(t *testing.T) {
	s := &fakeSession{state: dapp.State{NoWallet: true}}
	m := NewDappModel(context.Background(), s)
	assert.Contains(t, m.View(), "No wallet found")

	_, cmd := press(m, "c")
	assert.Nil(t, cmd, "nothing to connect")
}

func TestDappBuyFlow(t *testing.T) {
	s := &fakeSession{state: readyState()}
	m := NewDappModel(context.Background(), s)
	view := m.View()
	assert.Contains(t, view, "Presale Token (PST) Presale")
	assert.Contains(t, view, "7 PST")

	m, _ = press(m, "0", "2", "0")
	assert.Equal(t, "20", m.amount, "leading zero ignored")
	assert.Contains(t, m.View(), "total")

	m, cmd := press(m, "enter")
	require.NotNil(t, cmd)
	assert.Empty(t, m.amount)

	msg := cmd()
	assert.Equal(t, []int64{20}, s.purchases)
	next, _ := m.Update(msg)
	assert.Contains(t, next.View(), "Bought 20 tokens")
}

func TestDappBuyBlockedWhileInTransaction(t *testing.T) {
	st := readyState()
	st.InTransaction = true
	st.Phase = dapp.PhaseSubmitted
	st.PendingTx = &dapp.PendingTransaction{Hash: "0xabcdef0123456789"}
	s := &fakeSession{state: st}

	m := NewDappModel(context.Background(), s)
	assert.Contains(t, m.View(), "Purchasing")

	_, cmd := press(m, "1", "0", "enter")
	assert.Nil(t, cmd)
}

func TestDappDismissErrors(t *testing.T) {
	st := readyState()
	st.TransactionError = "Transaction failed"
	s := &fakeSession{state: st}
	m := NewDappModel(context.Background(), s)
	assert.Contains(t, m.View(), "Transaction failed")

	_, cmd := press(m, "x")
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []string{"transaction"}, s.dismissed)

	s.state = dapp.State{NetworkError: "Please connect your wallet to Hardhat (network id 31337)"}
	m = NewDappModel(context.Background(), s)
	_, cmd = press(m, "x")
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []string{"transaction", "network"}, s.dismissed)
}

func TestDappStateMsgOrdering(t *testing.T) {
	m := NewDappModel(context.Background(), &fakeSession{state: readyState()})

	newer := readyState()
	newer.Seq = 9
	newer.Balance = big.NewInt(0)
	next, _ := m.Update(StateMsg(newer))
	m = next.(DappModel)

	older := readyState()
	older.Seq = 4
	next, _ = m.Update(StateMsg(older))
	m = next.(DappModel)

	assert.Equal(t, uint64(9), m.state.Seq)
	assert.Equal(t, int64(0), m.state.Balance.Int64())
}

func TestDappApprovalPrompt(t *testing.T) {
	m := NewDappModel(context.Background(), &fakeSession{state: readyState()})

	reply := make(chan bool, 1)
	next, _ := m.Update(ApprovalMsg{Request: wallet.ApprovalRequest{Kind: wallet.ApprovalTransaction, To: "0xfactory", Data: "0x095ea7b3"}, reply: reply})
	m = next.(DappModel)
	assert.Contains(t, m.View(), "Wallet request")

	// Digits go to the prompt, not the amount field.
	m, _ = press(m, "5")
	assert.Empty(t, m.amount)

	second := make(chan bool, 1)
	next, _ = m.Update(ApprovalMsg{reply: second})
	m = next.(DappModel)
	assert.False(t, <-second, "concurrent request refused")

	m, _ = press(m, "n")
	assert.False(t, <-reply)
	assert.Nil(t, m.approval)
}

func TestTUIApprover(t *testing.T) {
	var a TUIApprover
	_, err := a.Approve(context.Background(), wallet.ApprovalRequest{})
	assert.ErrorIs(t, err, ErrNoProgram)

	msgs := make(chan tea.Msg, 1)
	a.send = func(msg tea.Msg) { msgs <- msg }

	done := make(chan bool, 1)
	go func() {
		ok, _ := a.Approve(context.Background(), wallet.ApprovalRequest{Kind: wallet.ApprovalConnect})
		done <- ok
	}()
	msg := (<-msgs).(ApprovalMsg)
	assert.Equal(t, wallet.ApprovalConnect, msg.Request.Kind)
	msg.reply <- true
	assert.True(t, <-done)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	go func() { <-msgs }()
	ok, err := a.Approve(ctx, wallet.ApprovalRequest{})
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDappQuit(t *testing.T) {
	m := NewDappModel(context.Background(), &fakeSession{})
	m, cmd := press(m, "q")
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}

func TestDappSwitchWallet(t *testing.T) {
	accounts := twoWallets()
	m := NewDappModel(context.Background(), &fakeSession{state: readyState()}).WithAccounts(accounts)
	assert.Contains(t, m.View(), "switch wallet")

	m, cmd := press(m, "w")
	m = run(t, m, cmd)
	require.Len(t, m.wallets, 2)
	assert.Equal(t, 1, m.cursor, "cursor starts on the connected account")
	assert.Contains(t, m.View(), "Switch wallet")

	m, _ = press(m, "5", "up")
	assert.Empty(t, m.amount, "picker takes the keys")
	assert.Equal(t, 0, m.cursor)

	m, cmd = press(m, "enter")
	assert.Nil(t, m.wallets)
	m = run(t, m, cmd)
	assert.Equal(t, []string{"alice"}, accounts.used)
	assert.Contains(t, m.View(), "Switched to alice")
}

func TestDappSwitchWalletCancel(t *testing.T) {
	accounts := twoWallets()
	m := NewDappModel(context.Background(), &fakeSession{state: readyState()}).WithAccounts(accounts)

	m, cmd := press(m, "w")
	m = run(t, m, cmd)
	m, cmd = press(m, "esc")
	assert.Nil(t, cmd)
	assert.Nil(t, m.wallets)
	assert.Empty(t, accounts.used)
}

func TestDappSwitchWalletError(t *testing.T) {
	accounts := twoWallets()
	accounts.useErr = wallet.ErrWalletNotFound
	m := NewDappModel(context.Background(), &fakeSession{}).WithAccounts(accounts)

	m, cmd := press(m, "w")
	m = run(t, m, cmd)
	m, cmd = press(m, "enter")
	m = run(t, m, cmd)
	assert.Equal(t, []string{"alice"}, accounts.used)
	assert.Contains(t, m.View(), wallet.ErrWalletNotFound.Error())
}

func TestDappLockWallet(t *testing.T) {
	accounts := twoWallets()
	m := NewDappModel(context.Background(), &fakeSession{state: readyState()}).WithAccounts(accounts)
	assert.Contains(t, m.View(), "lock")

	m, cmd := press(m, "d")
	m = run(t, m, cmd)
	assert.Equal(t, 1, accounts.locks)
	assert.Contains(t, m.View(), "Wallet locked")
}

func TestDappLockIgnoredWhenDisconnected(t *testing.T) {
	accounts := twoWallets()
	m := NewDappModel(context.Background(), &fakeSession{}).WithAccounts(accounts)
	_, cmd := press(m, "d")
	assert.Nil(t, cmd)
	assert.Zero(t, accounts.locks)
}

func TestDappAccountKeysNeedAccounts(t *testing.T) {
	m := NewDappModel(context.Background(), &fakeSession{state: readyState()})
	assert.NotContains(t, m.View(), "switch wallet")
	_, cmd := press(m, "w")
	assert.Nil(t, cmd)
	_, cmd = press(m, "d")
	assert.Nil(t, cmd)
}
