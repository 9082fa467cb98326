package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token is the presale token.
type Token struct{ *BoundContract }

// NewToken binds the presale token at address.
func NewToken(address common.Address, backend Backend, opts ...BindOption) *Token {
	return &Token{Bind(address, mustBuiltinABI("presaletoken"), backend, opts...)}
}

func (t *Token) Name(ctx context.Context) (string, error) {
	return callOne[string](ctx, t.BoundContract, "name")
}

func (t *Token) Symbol(ctx context.Context) (string, error) {
	return callOne[string](ctx, t.BoundContract, "symbol")
}

func (t *Token) Decimals(ctx context.Context) (uint8, error) {
	return callOne[uint8](ctx, t.BoundContract, "decimals")
}

// BalanceOf returns the raw token balance of account.
func (t *Token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return callOne[*big.Int](ctx, t.BoundContract, "balanceOf", account)
}

// Mint creates amount base units for the owner.
func (t *Token) Mint(ctx context.Context, amount *big.Int) (*PendingTx, error) {
	return t.Transact(ctx, "mint", amount)
}

// Burn destroys amount base units held by the caller.
func (t *Token) Burn(ctx context.Context, amount *big.Int) (*PendingTx, error) {
	return t.Transact(ctx, "burn", amount)
}

func (t *Token) Transfer(ctx context.Context, to common.Address, amount *big.Int) (*PendingTx, error) {
	return t.Transact(ctx, "transfer", to, amount)
}

// Lock blocks transfers out of account.
func (t *Token) Lock(ctx context.Context, account common.Address) (*PendingTx, error) {
	return t.Transact(ctx, "lock", account)
}

func (t *Token) Unlock(ctx context.Context, account common.Address) (*PendingTx, error) {
	return t.Transact(ctx, "unlock", account)
}

// PaymentToken is the ERC-20 the presale is paid in.
type PaymentToken struct{ *BoundContract }

// NewPaymentToken binds the payment token at address.
func NewPaymentToken(address common.Address, backend Backend, opts ...BindOption) *PaymentToken {
	return &PaymentToken{Bind(address, mustBuiltinABI("erc20"), backend, opts...)}
}

func (p *PaymentToken) Symbol(ctx context.Context) (string, error) {
	return callOne[string](ctx, p.BoundContract, "symbol")
}

func (p *PaymentToken) Decimals(ctx context.Context) (uint8, error) {
	return callOne[uint8](ctx, p.BoundContract, "decimals")
}

func (p *PaymentToken) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return callOne[*big.Int](ctx, p.BoundContract, "balanceOf", account)
}

func (p *PaymentToken) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return callOne[*big.Int](ctx, p.BoundContract, "allowance", owner, spender)
}

// Approve authorises spender to pull amount base units from the signer.
func (p *PaymentToken) Approve(ctx context.Context, spender common.Address, amount *big.Int) (*PendingTx, error) {
	return p.Transact(ctx, "approve", spender, amount)
}

// Presale is the presale factory.
type Presale struct{ *BoundContract }

// NewPresale binds the presale factory at address.
func NewPresale(address common.Address, backend Backend, opts ...BindOption) *Presale {
	return &Presale{Bind(address, mustBuiltinABI("presalefactory"), backend, opts...)}
}

// PresalePrice returns the payment-token price of one ticket of tokens.
func (p *Presale) PresalePrice(ctx context.Context) (*big.Int, error) {
	return callOne[*big.Int](ctx, p.BoundContract, "getPresalePrice")
}

// PurchaseToken buys amount whole tokens. The factory must already be
// approved for the total price.
func (p *Presale) PurchaseToken(ctx context.Context, amount *big.Int) (*PendingTx, error) {
	return p.Transact(ctx, "purchaseToken", amount)
}

func callOne[T any](ctx context.Context, c *BoundContract, method string, args ...any) (T, error) {
	var zero T
	out, err := c.Call(ctx, method, args...)
	if err != nil {
		return zero, err
	}
	if len(out) == 0 {
		return zero, fmt.Errorf("%s returned no values", method)
	}
	v, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s returned %T, want %T", method, out[0], zero)
	}
	return v, nil
}
