package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/presalectl/internal/chain"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DefaultGasLimit is used when the node cannot estimate a call for a reason
// other than a revert.
const DefaultGasLimit = uint64(200_000)

// ErrNoSigner is returned by Transact on a read-only binding.
var ErrNoSigner = errors.New("contract is bound without a signer")

// Backend is the node surface a BoundContract needs. *chain.EVMClient
// satisfies it.
type Backend interface {
	ReceiptWaiter
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	EstimateGas(ctx context.Context, from, to common.Address, data []byte, value *big.Int) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	SendRawTransaction(ctx context.Context, raw []byte) (string, error)
}

// Signer produces signed raw transactions for one account. Signing may
// block on user approval, so it takes a context.
type Signer interface {
	Address() string
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) ([]byte, error)
}

// BoundContract is an ABI bound to an address on one backend.
type BoundContract struct {
	address  common.Address
	abi      abi.ABI
	backend  Backend
	signer   Signer
	gasLimit uint64
	logger   *slog.Logger
}

// BindOption configures a BoundContract.
type BindOption func(*BoundContract)

// WithSigner lets the binding send transactions.
func WithSigner(s Signer) BindOption {
	return func(c *BoundContract) { c.signer = s }
}

// WithFallbackGas overrides DefaultGasLimit.
func WithFallbackGas(limit uint64) BindOption {
	return func(c *BoundContract) { c.gasLimit = limit }
}

// WithLogger sets the logger used for transaction submission.
func WithLogger(l *slog.Logger) BindOption {
	return func(c *BoundContract) { c.logger = l }
}

// Bind creates a BoundContract.
func Bind(address common.Address, parsed abi.ABI, backend Backend, opts ...BindOption) *BoundContract {
	c := &BoundContract{
		address:  address,
		abi:      parsed,
		backend:  backend,
		gasLimit: DefaultGasLimit,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Address returns the contract address.
func (c *BoundContract) Address() common.Address { return c.address }

// Call invokes a read-only method and returns the unpacked outputs.
func (c *BoundContract) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	out, err := c.backend.CallContract(ctx, c.address, data)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	values, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", method, err)
	}
	return values, nil
}

// Transact signs and broadcasts a state-changing call. It returns once the
// node has accepted the transaction; use PendingTx.Wait for the receipt.
func (c *BoundContract) Transact(ctx context.Context, method string, args ...any) (*PendingTx, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	from := common.HexToAddress(c.signer.Address())

	gas, err := c.backend.EstimateGas(ctx, from, c.address, data, nil)
	if err != nil {
		if chain.Classify(err) == chain.KindRevert {
			return nil, err
		}
		c.logger.Debug("gas estimate failed, using fallback",
			"method", method, "fallback", c.gasLimit, "error", err)
		gas = c.gasLimit
	}

	gasPrice, err := c.backend.GasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting gas price: %w", err)
	}
	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("getting nonce: %w", err)
	}
	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting chain id: %w", err)
	}

	to := c.address
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: gasPrice,
		GasFeeCap: new(big.Int).Mul(gasPrice, big.NewInt(2)),
		Gas:       gas,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      data,
	})

	raw, err := c.signer.SignTx(ctx, tx, chainID)
	if err != nil {
		// Rejections pass through untouched so callers can recognise them.
		return nil, err
	}

	hash, err := c.backend.SendRawTransaction(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("broadcasting %s: %w", method, err)
	}
	c.logger.Info("transaction sent",
		"method", method, "contract", c.address.Hex(), "hash", hash, "nonce", nonce, "gas", gas)
	return NewPendingTx(hash, c.backend), nil
}

// ReceiptWaiter resolves a transaction hash to its mined receipt.
type ReceiptWaiter interface {
	WaitForReceipt(ctx context.Context, hash string, every time.Duration) (*chain.TxReceipt, error)
}

// ReceiptPollInterval is how often PendingTx.Wait asks for the receipt.
var ReceiptPollInterval = 2 * time.Second

// PendingTx is a broadcast transaction awaiting inclusion.
type PendingTx struct {
	Hash   string
	waiter ReceiptWaiter
}

// NewPendingTx wraps hash so it can be awaited through w.
func NewPendingTx(hash string, w ReceiptWaiter) *PendingTx {
	return &PendingTx{Hash: hash, waiter: w}
}

// Wait blocks until the transaction is mined. A reverted receipt is returned
// alongside an error wrapping chain.ErrTransactionFailed.
func (p *PendingTx) Wait(ctx context.Context) (*chain.TxReceipt, error) {
	return p.waiter.WaitForReceipt(ctx, p.Hash, ReceiptPollInterval)
}
