package wallet

import (
	"context"
	"fmt"
)

// ApprovalKind says what the user is asked to confirm.
type ApprovalKind int

const (
	ApprovalConnect ApprovalKind = iota
	ApprovalTransaction
)

// ApprovalRequest is shown to the user before an account is exposed or a
// transaction is signed.
type ApprovalRequest struct {
	Kind    ApprovalKind
	Account string
	To      string
	Data    string // 0x calldata
	Gas     uint64
}

// Summary is a one-line description of the request.
func (r ApprovalRequest) Summary() string {
	if r.Kind == ApprovalConnect {
		return fmt.Sprintf("Connect account %s", r.Account)
	}
	sel := r.Data
	if len(sel) > 10 {
		sel = sel[:10]
	}
	return fmt.Sprintf("Sign call %s on %s (gas %d)", sel, r.To, r.Gas)
}

// Approver decides whether a request goes ahead. Returning false rejects it
// the way a browser wallet's "Reject" button does.
type Approver interface {
	Approve(ctx context.Context, req ApprovalRequest) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, req ApprovalRequest) (bool, error)

func (f ApproverFunc) Approve(ctx context.Context, req ApprovalRequest) (bool, error) {
	return f(ctx, req)
}

// AutoApprove approves every request.
var AutoApprove Approver = ApproverFunc(func(context.Context, ApprovalRequest) (bool, error) {
	return true, nil
})
