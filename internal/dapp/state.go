package dapp

import (
	"math/big"

	"github.com/Mohsinsiddi/presalectl/internal/chain"
)

// Phase is the purchase step in progress.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseApproving
	PhaseSubmitted
)

func (p Phase) String() string {
	switch p {
	case PhaseApproving:
		return "approving"
	case PhaseSubmitted:
		return "submitted"
	default:
		return "idle"
	}
}

// TxStatus is the lifecycle of a submitted purchase.
type TxStatus int

const (
	TxPending TxStatus = iota
	TxConfirmed
	TxFailed
)

func (s TxStatus) String() string {
	switch s {
	case TxConfirmed:
		return "confirmed"
	case TxFailed:
		return "failed"
	default:
		return "pending"
	}
}

// TokenInfo is read once per session.
type TokenInfo struct {
	Name      string
	Symbol    string
	Decimals  uint8
	UnitPrice *big.Int // payment-token base units per ticket
}

// PendingTransaction is a submitted purchase.
type PendingTransaction struct {
	Hash   string
	Status TxStatus
}

// State is an immutable snapshot handed to subscribers. Token and Balance
// are only meaningful while Account is set; their absence means loading.
type State struct {
	Seq     uint64 // increases with every change
	Account string
	Network string

	Token   *TokenInfo
	Balance *big.Int

	PendingTx *PendingTransaction
	LastTx    *PendingTransaction // most recent finished purchase

	NetworkError     string
	TransactionError string
	InTransaction    bool
	Phase            Phase

	// NoWallet is set when there is no wallet to connect at all.
	NoWallet bool
}

// Connected reports whether a session is active.
func (s State) Connected() bool { return s.Account != "" }

// Loading reports whether a session exists but its data has not arrived.
func (s State) Loading() bool {
	return s.Account != "" && (s.Token == nil || s.Balance == nil)
}

// WholeBalance is Balance in whole tokens.
func (s State) WholeBalance() *big.Int {
	if s.Token == nil {
		return new(big.Int)
	}
	return chain.WholeUnits(s.Balance, s.Token.Decimals)
}

func (s State) clone() State {
	out := s
	if s.PendingTx != nil {
		tx := *s.PendingTx
		out.PendingTx = &tx
	}
	if s.LastTx != nil {
		tx := *s.LastTx
		out.LastTx = &tx
	}
	return out
}
