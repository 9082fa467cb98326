package integration_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Mohsinsiddi/presalectl/internal/dapp"
	"github.com/Mohsinsiddi/presalectl/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secondAddr = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

type snapshots struct {
	mu     sync.Mutex
	states []dapp.State
}

func (s *snapshots) add(st dapp.State) {
	s.mu.Lock()
	s.states = append(s.states, st)
	s.mu.Unlock()
}

func (s *snapshots) since(n int) []dapp.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dapp.State(nil), s.states[n:]...)
}

func (s *snapshots) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// pressKey sends one key and runs whatever command it returns, feeding the
// resulting message back into the screen.
func pressKey(t *testing.T, m tea.Model, key tea.KeyMsg) tea.Model {
	t.Helper()
	m, cmd := m.Update(key)
	if cmd != nil {
		if msg := cmd(); msg != nil {
			m, _ = m.Update(msg)
		}
	}
	return m
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestScreenSwitchesAndLocksWallet(t *testing.T) {
	node := newPresaleNode(t)
	srv := node.serve()
	defer srv.Close()

	app, provider := newAppWithProvider(t, srv.URL)
	var snaps snapshots
	defer app.Subscribe(snaps.add)()

	require.NoError(t, app.Connect(context.Background()))
	first := waitLoaded(t, app)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", first.Account)

	var m tea.Model = ui.NewDappModel(context.Background(), app).WithAccounts(provider)
	m, _ = m.Update(ui.StateMsg(first))

	// w opens the picker on the connected wallet; j then enter picks "second".
	mark := snaps.len()
	m = pressKey(t, m, runes("w"))
	assert.Contains(t, m.View(), "Switch wallet")
	m = pressKey(t, m, runes("j"))
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.View(), "Switched to second")

	switched := waitLoaded(t, app)
	assert.Equal(t, secondAddr, switched.Account)
	assert.Equal(t, "PST", switched.Token.Symbol)

	var reinit *dapp.State
	for _, st := range snaps.since(mark) {
		if st.Account == secondAddr {
			reinit = &st
			break
		}
	}
	require.NotNil(t, reinit)
	assert.Nil(t, reinit.Token, "session data is cleared before reloading")
	assert.Nil(t, reinit.Balance)

	// d locks the wallet and the session resets.
	m, _ = m.Update(ui.StateMsg(switched))
	mark = snaps.len()
	m = pressKey(t, m, runes("d"))
	assert.Contains(t, m.View(), "Wallet locked")

	require.Eventually(t, func() bool { return !app.State().Connected() }, time.Second, 10*time.Millisecond)
	reset := snaps.since(mark)
	require.NotEmpty(t, reset)
	assert.Empty(t, reset[len(reset)-1].Account)
	assert.Nil(t, reset[len(reset)-1].Token)
	assert.False(t, app.PollerRunning())
}
