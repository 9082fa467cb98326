package dapp

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/presalectl/internal/contract"
)

// TicketSize is the number of tokens priced by one unit price.
const TicketSize = 10

// Outcome is how a Purchase call ended.
type Outcome int

const (
	// OutcomeSkipped means nothing was sent: no session or a purchase was
	// already in flight.
	OutcomeSkipped Outcome = iota
	OutcomeConfirmed
	OutcomeRejected
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// TotalPrice is unitPrice × (amount / TicketSize) with integer division, so
// amounts that are not a multiple of TicketSize are under-charged.
func TotalPrice(unitPrice *big.Int, amount int64) *big.Int {
	tickets := big.NewInt(amount / TicketSize)
	return new(big.Int).Mul(unitPrice, tickets)
}

// Purchase approves the presale for the total price and buys amount
// tokens. Only one purchase runs at a time; a second call while one is in
// flight returns OutcomeSkipped. Failures land in State.TransactionError,
// except wallet rejections which leave no trace.
func (a *App) Purchase(ctx context.Context, amount int64) (Outcome, error) {
	if amount <= 0 {
		return OutcomeSkipped, ErrInvalidAmount
	}

	a.mu.Lock()
	if a.state.Account == "" || a.state.Token == nil || a.contracts == nil || a.state.InTransaction {
		a.mu.Unlock()
		return OutcomeSkipped, nil
	}
	gen := a.gen
	contracts := a.contracts
	unitPrice := a.state.Token.UnitPrice
	a.state.InTransaction = true
	a.state.TransactionError = ""
	a.state.Phase = PhaseApproving
	a.mu.Unlock()
	a.notify()

	start := time.Now()
	logger := a.logger.With("amount", amount)
	logger.Info("purchase started")

	err := a.runPurchase(ctx, gen, contracts, unitPrice, amount)

	outcome := OutcomeConfirmed
	switch {
	case err == nil:
		logger.Info("purchase confirmed", "elapsed", time.Since(start))
	case IsUserRejected(err):
		outcome = OutcomeRejected
		logger.Info("purchase rejected in wallet")
	default:
		outcome = OutcomeFailed
		logger.Error("purchase failed", "error", err)
	}

	a.updateIf(gen, func(s *State) {
		if outcome == OutcomeFailed {
			s.TransactionError = ErrorMessage(err)
		}
		if s.PendingTx != nil {
			last := *s.PendingTx
			s.LastTx = &last
		}
		s.PendingTx = nil
		s.InTransaction = false
		s.Phase = PhaseIdle
	})
	a.metrics.RecordPurchase(outcome.String(), time.Since(start))

	if outcome == OutcomeConfirmed {
		if err := a.refreshBalance(ctx, gen); err != nil {
			logger.Warn("balance refresh after purchase failed", "error", err)
		}
	}
	return outcome, nil
}

func (a *App) runPurchase(ctx context.Context, gen uint64, c *Contracts, unitPrice *big.Int, amount int64) error {
	total := TotalPrice(unitPrice, amount)

	approval, err := c.Payment.Approve(ctx, c.Presale.Address(), total)
	if err != nil {
		return fmt.Errorf("approving %s: %w", total, err)
	}
	a.logger.Debug("approval submitted", "hash", approval.Hash, "total", total)
	if err := a.wait(ctx, approval); err != nil {
		return fmt.Errorf("approval: %w", err)
	}

	tx, err := c.Presale.PurchaseToken(ctx, big.NewInt(amount))
	if err != nil {
		return fmt.Errorf("purchasing: %w", err)
	}
	a.updateIf(gen, func(s *State) {
		s.PendingTx = &PendingTransaction{Hash: tx.Hash, Status: TxPending}
		s.Phase = PhaseSubmitted
	})

	waitErr := a.wait(ctx, tx)
	status := TxConfirmed
	if waitErr != nil {
		status = TxFailed
	}
	a.updateIf(gen, func(s *State) {
		if s.PendingTx != nil {
			s.PendingTx.Status = status
		}
	})
	return waitErr
}

func (a *App) wait(ctx context.Context, tx *contract.PendingTx) error {
	ctx, cancel := context.WithTimeout(ctx, a.opts.ConfirmTimeout)
	defer cancel()
	_, err := tx.Wait(ctx)
	return err
}
