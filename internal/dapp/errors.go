package dapp

import (
	"errors"

	"github.com/Mohsinsiddi/presalectl/internal/chain"
)

// ErrInvalidAmount is returned by Purchase for non-positive amounts.
var ErrInvalidAmount = errors.New("purchase amount must be positive")

// ErrorMessage is the text shown for a failed purchase: the node's nested
// data message when present, otherwise its top-level message.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, chain.ErrTransactionFailed) {
		return "Transaction failed"
	}
	var rpcErr *chain.RPCError
	if errors.As(err, &rpcErr) {
		if msg := rpcErr.DataMessage(); msg != "" {
			return msg
		}
		return rpcErr.Message
	}
	var revert *chain.RevertError
	if errors.As(err, &revert) {
		return revert.Error()
	}
	return err.Error()
}

// IsUserRejected reports whether the user declined in their wallet.
func IsUserRejected(err error) bool {
	return chain.IsUserRejected(err)
}
