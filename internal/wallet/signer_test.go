package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/Mohsinsiddi/presalectl/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func sampleTx() *types.Transaction {
	to := common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0")
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(31337),
		Nonce:     3,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Gas:       60_000,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      []byte{0xde, 0xad, 0xbe, 0xef, 0x00},
	})
}

func signingWallet(t *testing.T) (*Wallet, SecretStore) {
	t.Helper()
	mgr := NewManager(WithInMemoryStore())
	w, err := mgr.AddWithKey("signer", testKey)
	require.NoError(t, err)
	return w, mgr.Keys()
}

func TestSignTxRecoversSender(t *testing.T) {
	w, ks := signingWallet(t)
	var seen ApprovalRequest
	approver := ApproverFunc(func(_ context.Context, req ApprovalRequest) (bool, error) {
		seen = req
		return true, nil
	})

	raw, err := NewSigner(w, ks, approver).SignTx(context.Background(), sampleTx(), big.NewInt(31337))
	require.NoError(t, err)

	tx := new(types.Transaction)
	require.NoError(t, tx.UnmarshalBinary(raw))
	from, err := types.Sender(types.NewLondonSigner(big.NewInt(31337)), tx)
	require.NoError(t, err)
	assert.Equal(t, w.Address, from.Hex())

	assert.Equal(t, ApprovalTransaction, seen.Kind)
	assert.Equal(t, "0xdeadbeef00", seen.Data)
	assert.Equal(t, uint64(60_000), seen.Gas)
	assert.Contains(t, seen.Summary(), "0xdeadbeef")
}

func TestSignTxDeclined(t *testing.T) {
	w, ks := signingWallet(t)
	deny := ApproverFunc(func(context.Context, ApprovalRequest) (bool, error) { return false, nil })

	_, err := NewSigner(w, ks, deny).SignTx(context.Background(), sampleTx(), big.NewInt(31337))
	require.Error(t, err)
	assert.True(t, chain.IsUserRejected(err))
}

func TestSignTxApproverError(t *testing.T) {
	w, ks := signingWallet(t)
	boom := errors.New("prompt closed")
	fail := ApproverFunc(func(context.Context, ApprovalRequest) (bool, error) { return false, boom })

	_, err := NewSigner(w, ks, fail).SignTx(context.Background(), sampleTx(), big.NewInt(31337))
	assert.ErrorIs(t, err, boom)
}

func TestSignTxWatchOnly(t *testing.T) {
	w := &Wallet{Name: "watcher", Address: "0x1", Type: TypeWatchOnly}
	_, err := NewSigner(w, NewInMemoryKeystore(), nil).SignTx(context.Background(), sampleTx(), big.NewInt(1))
	assert.ErrorContains(t, err, "watch-only")
}

func TestSignerAddress(t *testing.T) {
	w, ks := signingWallet(t)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", NewSigner(w, ks, nil).Address())
}
