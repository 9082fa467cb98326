package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Mohsinsiddi/presalectl/internal/chain"
	"github.com/Mohsinsiddi/presalectl/internal/dapp"
	"github.com/Mohsinsiddi/presalectl/internal/wallet"
	tea "github.com/charmbracelet/bubbletea"
)

// Session is what the dapp screen drives. *dapp.App implements it.
type Session interface {
	State() dapp.State
	Connect(ctx context.Context) error
	Purchase(ctx context.Context, amount int64) (dapp.Outcome, error)
	DismissNetworkError()
	DismissTransactionError()
	Subscribe(fn func(dapp.State)) func()
}

// Accounts switches and locks the wallet behind a session.
// *wallet.LocalProvider implements it.
type Accounts interface {
	Wallets() ([]*wallet.Wallet, error)
	UseAccount(name string) error
	Lock()
}

// StateMsg carries a session snapshot into the program.
type StateMsg dapp.State

// ApprovalMsg asks the user to approve or reject a wallet request. The
// answer goes back on reply exactly once.
type ApprovalMsg struct {
	Request wallet.ApprovalRequest
	reply   chan bool
}

type connectDoneMsg struct{ err error }

type purchaseDoneMsg struct {
	amount  int64
	outcome dapp.Outcome
	err     error
}

type walletsMsg struct {
	wallets []*wallet.Wallet
	err     error
}

type accountDoneMsg struct {
	name string // empty after a lock
	err  error
}

type dappTickMsg struct{}

// maxAmountDigits bounds the amount field so it always fits an int64.
const maxAmountDigits = 12

// ErrNoProgram is returned by TUIApprover before a program is attached.
var ErrNoProgram = errors.New("no terminal UI attached to approve the request")

// TUIApprover routes wallet approvals through the running dapp screen.
type TUIApprover struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

// Attach connects the approver to p.
func (a *TUIApprover) Attach(p *tea.Program) {
	a.mu.Lock()
	a.send = p.Send
	a.mu.Unlock()
}

// Approve shows req and blocks until the user answers or ctx is done.
func (a *TUIApprover) Approve(ctx context.Context, req wallet.ApprovalRequest) (bool, error) {
	a.mu.Lock()
	send := a.send
	a.mu.Unlock()
	if send == nil {
		return false, ErrNoProgram
	}

	reply := make(chan bool, 1)
	send(ApprovalMsg{Request: req, reply: reply})
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// DappModel is the Bubble Tea model for the presale screen.
type DappModel struct {
	ctx     context.Context
	session Session
	state   dapp.State

	accounts Accounts
	wallets  []*wallet.Wallet // open wallet picker when not nil
	cursor   int

	amount   string
	approval *ApprovalMsg
	flash    string
	frame    int
	quitting bool
}

// NewDappModel builds the screen for session. ctx bounds every action the
// screen starts.
func NewDappModel(ctx context.Context, session Session) DappModel {
	return DappModel{ctx: ctx, session: session, state: session.State()}
}

// WithAccounts enables the switch (w) and lock (d) keys.
func (m DappModel) WithAccounts(a Accounts) DappModel {
	m.accounts = a
	return m
}

func (m DappModel) Init() tea.Cmd { return dappTick() }

func dappTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return dappTickMsg{} })
}

func (m DappModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StateMsg:
		// Snapshots can arrive out of order from different goroutines.
		if msg.Seq >= m.state.Seq {
			m.state = dapp.State(msg)
		}

	case ApprovalMsg:
		if m.approval != nil {
			// One prompt at a time; a second concurrent request is refused.
			msg.reply <- false
			break
		}
		m.approval = &msg

	case connectDoneMsg:
		if msg.err != nil {
			m.flash = Err(msg.err.Error())
		}

	case purchaseDoneMsg:
		m.flash = purchaseFlash(msg)

	case walletsMsg:
		m.openPicker(msg)

	case accountDoneMsg:
		switch {
		case msg.err != nil:
			m.flash = Err(msg.err.Error())
		case msg.name == "":
			m.flash = Meta("Wallet locked")
		default:
			m.flash = Success("Switched to " + msg.name)
		}

	case dappTickMsg:
		m.frame = (m.frame + 1) % len(spinFrames)
		return m, dappTick()

	case tea.KeyMsg:
		if m.approval != nil {
			return m.answerApproval(msg)
		}
		if m.wallets != nil {
			return m.pickWallet(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m DappModel) answerApproval(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "y", "enter":
		m.approval.reply <- true
		m.approval = nil
	case "n", "esc":
		m.approval.reply <- false
		m.approval = nil
	case "ctrl+c":
		m.approval.reply <- false
		m.approval = nil
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m DappModel) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""
	switch key.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "c":
		if !m.state.Connected() && !m.state.NoWallet {
			return m, m.connectCmd()
		}

	case "x":
		return m, m.dismissCmd()

	case "w":
		if m.accounts != nil && !m.state.InTransaction {
			return m, m.listWalletsCmd()
		}

	case "d":
		if m.accounts != nil && m.state.Connected() && !m.state.InTransaction {
			return m, m.lockCmd()
		}

	case "o":
		tx := m.state.PendingTx
		if tx == nil {
			tx = m.state.LastTx
		}
		if tx == nil {
			break
		}
		url := chain.TxURL(m.state.Network, tx.Hash)
		if url == "" {
			m.flash = Meta("No explorer for " + chain.NetworkName(m.state.Network))
			break
		}
		if err := openBrowser(url); err != nil {
			m.flash = Err("Could not open browser: " + err.Error())
		}

	case "backspace":
		if len(m.amount) > 0 {
			m.amount = m.amount[:len(m.amount)-1]
		}

	case "enter":
		amount, err := strconv.ParseInt(m.amount, 10, 64)
		if err != nil || amount <= 0 {
			break
		}
		if !m.canBuy() {
			break
		}
		m.amount = ""
		return m, m.purchaseCmd(amount)

	default:
		if s := key.String(); len(s) == 1 && s[0] >= '0' && s[0] <= '9' && len(m.amount) < maxAmountDigits {
			if s == "0" && m.amount == "" {
				break
			}
			m.amount += s
		}
	}
	return m, nil
}

func (m *DappModel) openPicker(msg walletsMsg) {
	switch {
	case msg.err != nil:
		m.flash = Err(msg.err.Error())
		return
	case len(msg.wallets) == 0:
		m.flash = Meta("No wallets to switch to")
		return
	}
	m.wallets = msg.wallets
	m.cursor = 0
	for i, w := range msg.wallets {
		if strings.EqualFold(w.Address, m.state.Account) {
			m.cursor = i
		}
	}
}

func (m DappModel) pickWallet(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.wallets)-1 {
			m.cursor++
		}
	case "enter":
		name := m.wallets[m.cursor].Name
		m.wallets = nil
		return m, m.useAccountCmd(name)
	case "esc", "q":
		m.wallets = nil
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m DappModel) canBuy() bool {
	return m.state.Connected() && !m.state.Loading() && !m.state.InTransaction && m.state.NetworkError == ""
}

func (m DappModel) connectCmd() tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		return connectDoneMsg{err: session.Connect(ctx)}
	}
}

func (m DappModel) purchaseCmd(amount int64) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		outcome, err := session.Purchase(ctx, amount)
		return purchaseDoneMsg{amount: amount, outcome: outcome, err: err}
	}
}

func (m DappModel) listWalletsCmd() tea.Cmd {
	accounts := m.accounts
	return func() tea.Msg {
		ws, err := accounts.Wallets()
		return walletsMsg{wallets: ws, err: err}
	}
}

// useAccountCmd and lockCmd run off the event loop for the same reason as
// dismissCmd.
func (m DappModel) useAccountCmd(name string) tea.Cmd {
	accounts := m.accounts
	return func() tea.Msg {
		return accountDoneMsg{name: name, err: accounts.UseAccount(name)}
	}
}

func (m DappModel) lockCmd() tea.Cmd {
	accounts := m.accounts
	return func() tea.Msg {
		accounts.Lock()
		return accountDoneMsg{}
	}
}

// dismissCmd runs off the event loop: dismissing publishes a snapshot that
// the program has to receive.
func (m DappModel) dismissCmd() tea.Cmd {
	session := m.session
	st := m.state
	if st.TransactionError == "" && st.NetworkError == "" {
		return nil
	}
	return func() tea.Msg {
		if st.TransactionError != "" {
			session.DismissTransactionError()
		} else {
			session.DismissNetworkError()
		}
		return nil
	}
}

func purchaseFlash(msg purchaseDoneMsg) string {
	if msg.err != nil {
		return Err(msg.err.Error())
	}
	switch msg.outcome {
	case dapp.OutcomeConfirmed:
		return Success(fmt.Sprintf("Bought %d tokens", msg.amount))
	case dapp.OutcomeRejected:
		return Meta("Request rejected in wallet")
	}
	return ""
}

func (m DappModel) View() string {
	if m.quitting {
		return ""
	}
	st := m.state
	spin := StyleChain.Render(spinFrames[m.frame])

	var sb strings.Builder
	title := "Presale"
	if st.Token != nil {
		title = fmt.Sprintf("%s (%s) Presale", st.Token.Name, st.Token.Symbol)
	}
	sb.WriteString(StyleTitle.Render(title) + "\n")

	switch {
	case st.NoWallet:
		sb.WriteString(Err("No wallet found") + "\n")
		sb.WriteString(Hint("presalectl wallet add <name> --key <hex> or presalectl wallet generate <name>") + "\n")

	case !st.Connected():
		if st.NetworkError != "" {
			sb.WriteString(StyleAlert.Render(StyleError.Render(st.NetworkError)+"\n"+Meta("[ x ] dismiss")) + "\n")
		} else {
			sb.WriteString(Info("Please connect your wallet to continue") + "\n")
		}

	default:
		sb.WriteString(m.viewSession(spin))
	}

	if m.wallets != nil {
		sb.WriteString("\n" + StylePrompt.Render(m.viewPicker()) + "\n")
	}

	if m.approval != nil {
		body := StyleWarning.Render("Wallet request") + "\n\n" +
			StyleValue.Render(m.approval.Request.Summary()) + "\n\n" +
			StyleSuccess.Render("[ y ]") + Meta(" approve   ") +
			StyleError.Render("[ n ]") + Meta(" reject")
		sb.WriteString("\n" + StylePrompt.Render(body) + "\n")
	}

	sb.WriteString("\n")
	if m.flash != "" {
		sb.WriteString("  " + m.flash + "\n")
	}
	sb.WriteString(m.controls() + "\n")
	return sb.String()
}

func (m DappModel) viewSession(spin string) string {
	st := m.state
	var sb strings.Builder

	sb.WriteString(KeyValueBlock("", [][2]string{
		{"Account", st.Account},
		{"Network", chain.NetworkName(st.Network)},
		{"Balance", m.balanceLine(spin)},
		{"Price / 10 tokens", m.priceLine()},
	}) + "\n")

	if st.NetworkError != "" {
		sb.WriteString(StyleAlert.Render(StyleError.Render(st.NetworkError)+"\n"+Meta("[ x ] dismiss")) + "\n")
		return sb.String()
	}
	if st.Loading() {
		sb.WriteString(spin + Meta(" Loading token data…") + "\n")
		return sb.String()
	}

	switch {
	case st.InTransaction && st.Phase == dapp.PhaseApproving:
		sb.WriteString(spin + StyleWarning.Render(" Approving payment…") + "\n")
	case st.InTransaction:
		line := spin + StyleWarning.Render(" Purchasing…")
		if st.PendingTx != nil {
			line += " " + Addr(TruncateAddr(st.PendingTx.Hash))
		}
		sb.WriteString(line + "\n")
	default:
		sb.WriteString(m.purchaseForm() + "\n")
	}

	if st.TransactionError != "" {
		sb.WriteString(StyleAlert.Render(StyleError.Render(st.TransactionError)+"\n"+Meta("[ x ] dismiss")) + "\n")
	}
	if st.LastTx != nil && !st.InTransaction {
		status := StyleSuccess.Render(st.LastTx.Status.String())
		if st.LastTx.Status == dapp.TxFailed {
			status = StyleError.Render(st.LastTx.Status.String())
		}
		sb.WriteString(Meta("Last purchase ") + Addr(TruncateAddr(st.LastTx.Hash)) + " " + status + "\n")
	}
	return sb.String()
}

func (m DappModel) viewPicker() string {
	var sb strings.Builder
	sb.WriteString(StyleWarning.Render("Switch wallet") + "\n\n")
	for i, w := range m.wallets {
		line := fmt.Sprintf("%-12s %s", w.Name, TruncateAddr(w.Address))
		if i == m.cursor {
			sb.WriteString(StyleInfo.Render("> "+line) + "\n")
		} else {
			sb.WriteString("  " + Meta(line) + "\n")
		}
	}
	sb.WriteString("\n" + Meta("↑/↓ move   ⏎ select   esc cancel"))
	return sb.String()
}

func (m DappModel) balanceLine(spin string) string {
	st := m.state
	if st.Token == nil || st.Balance == nil {
		return spin
	}
	return st.WholeBalance().String() + " " + st.Token.Symbol
}

func (m DappModel) priceLine() string {
	if m.state.Token == nil || m.state.Token.UnitPrice == nil {
		return "…"
	}
	return m.state.Token.UnitPrice.String()
}

func (m DappModel) purchaseForm() string {
	line := Meta("Amount to buy: ") + StyleValue.Render(m.amount) + "█"
	if amount, err := strconv.ParseInt(m.amount, 10, 64); err == nil && amount > 0 && m.state.Token != nil {
		total := dapp.TotalPrice(m.state.Token.UnitPrice, amount)
		line += Meta("  total ") + Val(total.String())
		if amount%dapp.TicketSize != 0 {
			line += Meta(fmt.Sprintf("  (priced per %d)", dapp.TicketSize))
		}
	}
	return line
}

func (m DappModel) controls() string {
	sep := Meta("   ")
	var parts []string
	st := m.state
	if !st.Connected() && !st.NoWallet {
		parts = append(parts, StyleInfo.Render("[ c ]")+Meta(" connect"))
	}
	if m.canBuy() {
		parts = append(parts, StyleInfo.Render("[ 0-9 ⏎ ]")+Meta(" buy"))
	}
	if st.TransactionError != "" || st.NetworkError != "" {
		parts = append(parts, StyleWarning.Render("[ x ]")+Meta(" dismiss"))
	}
	if st.PendingTx != nil || st.LastTx != nil {
		parts = append(parts, StyleInfo.Render("[ o ]")+Meta(" explorer"))
	}
	if m.accounts != nil && !st.InTransaction {
		parts = append(parts, StyleInfo.Render("[ w ]")+Meta(" switch wallet"))
		if st.Connected() {
			parts = append(parts, StyleInfo.Render("[ d ]")+Meta(" lock"))
		}
	}
	parts = append(parts, Meta("[ q ] quit"))
	return strings.Join(parts, sep)
}

// RunDapp shows the presale screen until the user quits. accounts, when
// not nil, enables wallet switching and locking. approver, when not nil,
// is attached so wallet prompts appear on screen.
func RunDapp(ctx context.Context, session Session, accounts Accounts, approver *TUIApprover) error {
	model := NewDappModel(ctx, session)
	if accounts != nil {
		model = model.WithAccounts(accounts)
	}
	p := tea.NewProgram(model, tea.WithAltScreen())
	if approver != nil {
		approver.Attach(p)
	}
	unsubscribe := session.Subscribe(func(s dapp.State) { p.Send(StateMsg(s)) })
	defer unsubscribe()

	_, err := p.Run()
	return err
}

var (
	_ Session  = (*dapp.App)(nil)
	_ Accounts = (*wallet.LocalProvider)(nil)
)
