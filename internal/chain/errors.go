package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Wallet and node error codes.
const (
	// CodeUserRejected is the EIP-1193 code for a request the user refused.
	CodeUserRejected = 4001
	// CodeExecutionReverted is returned by geth-style nodes for reverts.
	CodeExecutionReverted = 3
)

// ErrTransactionFailed is returned when a mined receipt carries status 0.
var ErrTransactionFailed = errors.New("transaction failed")

// RPCError is a JSON-RPC error object. Data is kept raw because nodes put
// either a nested {"message": ...} object or hex revert bytes there.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// DataMessage returns data.message when the node supplied one.
func (e *RPCError) DataMessage() string {
	if len(e.Data) == 0 {
		return ""
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Data, &nested); err != nil {
		return ""
	}
	return nested.Message
}

// RevertData returns the ABI-encoded revert payload carried in data, if any.
func (e *RPCError) RevertData() []byte {
	if len(e.Data) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(e.Data, &s); err != nil {
		var nested struct {
			Data string `json:"data"`
		}
		if err := json.Unmarshal(e.Data, &nested); err != nil {
			return nil
		}
		s = nested.Data
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil
	}
	return b
}

// UserRejected builds the error a wallet returns when the user declines.
func UserRejected(msg string) *RPCError {
	if msg == "" {
		msg = "User rejected the request."
	}
	return &RPCError{Code: CodeUserRejected, Message: msg}
}

// RevertError is a call or estimate that the EVM reverted.
type RevertError struct {
	Reason string
	RPC    *RPCError
}

func (e *RevertError) Error() string {
	if e.Reason != "" {
		return "execution reverted: " + e.Reason
	}
	return "execution reverted"
}

func (e *RevertError) Unwrap() error {
	if e.RPC == nil {
		return nil
	}
	return e.RPC
}

// Kind is the category an error falls into at the RPC boundary.
type Kind int

const (
	KindOther Kind = iota
	KindUserRejected
	KindRPC
	KindRevert
)

func (k Kind) String() string {
	switch k {
	case KindUserRejected:
		return "user_rejected"
	case KindRPC:
		return "rpc"
	case KindRevert:
		return "revert"
	default:
		return "other"
	}
}

// Classify decides once which variant err belongs to.
func Classify(err error) Kind {
	if err == nil {
		return KindOther
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == CodeUserRejected {
		return KindUserRejected
	}
	var revert *RevertError
	if errors.As(err, &revert) || errors.Is(err, ErrTransactionFailed) {
		return KindRevert
	}
	if rpcErr != nil {
		return KindRPC
	}
	return KindOther
}

// IsUserRejected reports whether err is a wallet rejection.
func IsUserRejected(err error) bool {
	return Classify(err) == KindUserRejected
}

// wrapRPCError turns node revert responses into RevertError.
func wrapRPCError(e *RPCError) error {
	if !isRevert(e) {
		return e
	}
	return &RevertError{Reason: revertReason(e), RPC: e}
}

func isRevert(e *RPCError) bool {
	if e.Code == CodeExecutionReverted {
		return true
	}
	msg := strings.ToLower(e.Message + " " + e.DataMessage())
	return strings.Contains(msg, "execution reverted") || strings.Contains(msg, "reverted with reason")
}

func revertReason(e *RPCError) string {
	if data := e.RevertData(); len(data) > 0 {
		if reason, err := abi.UnpackRevert(data); err == nil {
			return reason
		}
	}
	for _, msg := range []string{e.DataMessage(), e.Message} {
		if r := reasonFromMessage(msg); r != "" {
			return r
		}
	}
	return ""
}

// reasonFromMessage pulls the reason out of the common node phrasings:
//
//	execution reverted: <reason>
//	... reverted with reason string '<reason>'
func reasonFromMessage(msg string) string {
	if idx := strings.Index(msg, "reverted with reason string '"); idx >= 0 {
		rest := msg[idx+len("reverted with reason string '"):]
		if end := strings.LastIndex(rest, "'"); end >= 0 {
			return rest[:end]
		}
		return rest
	}
	if idx := strings.Index(msg, "execution reverted:"); idx >= 0 {
		return strings.TrimSpace(msg[idx+len("execution reverted:"):])
	}
	return ""
}
