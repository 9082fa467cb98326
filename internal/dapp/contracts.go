package dapp

import (
	"context"
	"math/big"

	"github.com/Mohsinsiddi/presalectl/internal/contract"
	"github.com/Mohsinsiddi/presalectl/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// TokenContract is the read surface of the presale token.
type TokenContract interface {
	Name(ctx context.Context) (string, error)
	Symbol(ctx context.Context) (string, error)
	Decimals(ctx context.Context) (uint8, error)
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
}

// PresaleContract sells the token.
type PresaleContract interface {
	Address() common.Address
	PresalePrice(ctx context.Context) (*big.Int, error)
	PurchaseToken(ctx context.Context, amount *big.Int) (*contract.PendingTx, error)
}

// PaymentContract is the token the presale is paid in.
type PaymentContract interface {
	Approve(ctx context.Context, spender common.Address, amount *big.Int) (*contract.PendingTx, error)
}

// Contracts are the three handles bound to the session's signer.
type Contracts struct {
	Token   TokenContract
	Presale PresaleContract
	Payment PaymentContract
}

// Binder builds contract handles for a signer.
type Binder func(signer wallet.TxSigner) (*Contracts, error)

// Addresses locates the deployment.
type Addresses struct {
	Token   common.Address
	Factory common.Address
	Payment common.Address
}

// EVMBinder binds the deployment on backend.
func EVMBinder(backend contract.Backend, addrs Addresses, opts ...contract.BindOption) Binder {
	return func(signer wallet.TxSigner) (*Contracts, error) {
		withSigner := append([]contract.BindOption{contract.WithSigner(signer)}, opts...)
		return &Contracts{
			Token:   contract.NewToken(addrs.Token, backend, withSigner...),
			Presale: contract.NewPresale(addrs.Factory, backend, withSigner...),
			Payment: contract.NewPaymentToken(addrs.Payment, backend, withSigner...),
		}, nil
	}
}

func fetchTokenInfo(ctx context.Context, c *Contracts) (*TokenInfo, error) {
	name, err := c.Token.Name(ctx)
	if err != nil {
		return nil, err
	}
	symbol, err := c.Token.Symbol(ctx)
	if err != nil {
		return nil, err
	}
	decimals, err := c.Token.Decimals(ctx)
	if err != nil {
		return nil, err
	}
	price, err := c.Presale.PresalePrice(ctx)
	if err != nil {
		return nil, err
	}
	return &TokenInfo{Name: name, Symbol: symbol, Decimals: decimals, UnitPrice: price}, nil
}
