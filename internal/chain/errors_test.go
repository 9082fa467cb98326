package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Error(string) payload for "Should Approve the token."
const approveRevertData = "0x08c379a0" +
	"0000000000000000000000000000000000000000000000000000000000000020" +
	"0000000000000000000000000000000000000000000000000000000000000019" +
	"53686f756c6420417070726f76652074686520746f6b656e2e00000000000000"

func TestDataMessageNested(t *testing.T) {
	e := &RPCError{Code: -32603, Message: "Internal JSON-RPC error.", Data: json.RawMessage(`{"message":"insufficient funds"}`)}
	assert.Equal(t, "insufficient funds", e.DataMessage())
}

func TestDataMessageAbsent(t *testing.T) {
	assert.Empty(t, (&RPCError{Code: -32000, Message: "x"}).DataMessage())
	assert.Empty(t, (&RPCError{Code: -32000, Message: "x", Data: json.RawMessage(`"0x1234"`)}).DataMessage())
}

func TestRevertDataHexString(t *testing.T) {
	e := &RPCError{Code: 3, Data: json.RawMessage(`"0xdeadbeef"`)}
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, e.RevertData())
}

func TestRevertDataNested(t *testing.T) {
	e := &RPCError{Code: -32603, Data: json.RawMessage(`{"message":"m","data":"0x0102"}`)}
	assert.Equal(t, []byte{0x01, 0x02}, e.RevertData())
}

func TestWrapRPCErrorDecodesRevertPayload(t *testing.T) {
	err := wrapRPCError(&RPCError{Code: 3, Message: "execution reverted", Data: json.RawMessage(`"` + approveRevertData + `"`)})

	var revert *RevertError
	require.True(t, errors.As(err, &revert))
	assert.Equal(t, "Should Approve the token.", revert.Reason)
	assert.Equal(t, KindRevert, Classify(err))
}

func TestWrapRPCErrorHardhatMessage(t *testing.T) {
	err := wrapRPCError(&RPCError{
		Code:    -32603,
		Message: "Internal JSON-RPC error.",
		Data:    json.RawMessage(`{"message":"Error: VM Exception while processing transaction: reverted with reason string 'Insufficent USDC balance.'"}`),
	})

	var revert *RevertError
	require.True(t, errors.As(err, &revert))
	assert.Equal(t, "Insufficent USDC balance.", revert.Reason)
}

func TestWrapRPCErrorPlainExecutionReverted(t *testing.T) {
	err := wrapRPCError(&RPCError{Code: -32000, Message: "execution reverted: Transfer from locked account."})

	var revert *RevertError
	require.True(t, errors.As(err, &revert))
	assert.Equal(t, "Transfer from locked account.", revert.Reason)
}

func TestWrapRPCErrorLeavesOthersAlone(t *testing.T) {
	orig := &RPCError{Code: -32000, Message: "nonce too low"}
	assert.Same(t, orig, wrapRPCError(orig))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindOther},
		{"plain", errors.New("boom"), KindOther},
		{"user rejected", UserRejected(""), KindUserRejected},
		{"wrapped user rejected", fmt.Errorf("approving: %w", UserRejected("")), KindUserRejected},
		{"rpc", &RPCError{Code: -32000, Message: "nonce too low"}, KindRPC},
		{"revert", &RevertError{Reason: "nope"}, KindRevert},
		{"receipt status 0", fmt.Errorf("%w (hash: 0x1)", ErrTransactionFailed), KindRevert},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestRPCErrorFromServerIsTyped(t *testing.T) {
	srv := rpcErrorServer(t, -32603, "Internal JSON-RPC error.", map[string]string{"message": "gas required exceeds allowance"})
	defer srv.Close()

	_, err := NewEVMClient(srv.URL).GasPrice(ctx)
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32603, rpcErr.Code)
	assert.Equal(t, "gas required exceeds allowance", rpcErr.DataMessage())
}

func TestRevertErrorMessage(t *testing.T) {
	assert.Equal(t, "execution reverted: x", (&RevertError{Reason: "x"}).Error())
	assert.Equal(t, "execution reverted", (&RevertError{}).Error())
}

func TestUserRejectedDefaultMessage(t *testing.T) {
	e := UserRejected("")
	assert.Equal(t, CodeUserRejected, e.Code)
	assert.Equal(t, "User rejected the request.", e.Message)
	assert.True(t, IsUserRejected(e))
}
