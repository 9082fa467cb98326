package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/presalectl/internal/chain"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// TxSigner signs transactions for one account.
type TxSigner interface {
	Address() string
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) ([]byte, error)
}

// Signer signs EVM transactions for a signing wallet. Every signature is
// put to the Approver first.
type Signer struct {
	wallet   *Wallet
	ks       SecretStore
	approver Approver
}

// NewSigner creates a signer for the given wallet. A nil approver approves
// everything.
func NewSigner(w *Wallet, ks SecretStore, approver Approver) *Signer {
	if approver == nil {
		approver = AutoApprove
	}
	return &Signer{wallet: w, ks: ks, approver: approver}
}

// Address returns the wallet's address.
func (s *Signer) Address() string {
	return s.wallet.Address
}

// SignTx asks for approval, then signs tx and returns the raw signed bytes.
// A declined request yields a chain.CodeUserRejected error.
func (s *Signer) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) ([]byte, error) {
	if !s.wallet.CanSign() {
		return nil, fmt.Errorf("wallet %q is watch-only and cannot sign", s.wallet.Name)
	}

	req := ApprovalRequest{
		Kind:    ApprovalTransaction,
		Account: s.wallet.Address,
		To:      tx.To().Hex(),
		Data:    hexutil.Encode(tx.Data()),
		Gas:     tx.Gas(),
	}
	ok, err := s.approver.Approve(ctx, req)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, chain.UserRejected("User denied transaction signature.")
	}

	hexKey, err := s.ks.Retrieve(s.wallet.KeyRef)
	if err != nil {
		return nil, fmt.Errorf("retrieving key: %w", err)
	}

	privKey, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	signed, err := types.SignTx(tx, types.NewLondonSigner(chainID), privKey)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshaling signed tx: %w", err)
	}
	return raw, nil
}
