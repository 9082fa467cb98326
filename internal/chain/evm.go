package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// CallHook observes every JSON-RPC round trip (used for metrics).
type CallHook func(method string, elapsed time.Duration, err error)

// EVMClient is a minimal JSON-RPC client for EVM chains.
type EVMClient struct {
	url    string
	client *http.Client
	hook   CallHook
	nextID atomic.Int64
}

// Option configures an EVMClient.
type Option func(*EVMClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *EVMClient) { c.client = hc }
}

// WithCallHook registers a hook invoked after every call.
func WithCallHook(h CallHook) Option {
	return func(c *EVMClient) { c.hook = h }
}

// NewEVMClient creates a new EVM JSON-RPC client pointed at url.
func NewEVMClient(url string, opts ...Option) *EVMClient {
	c := &EVMClient{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint this client talks to.
func (c *EVMClient) URL() string { return c.url }

// ChainID returns the chain's EIP-155 id.
func (c *EVMClient) ChainID(ctx context.Context) (*big.Int, error) {
	var hex string
	if err := c.call(ctx, &hex, "eth_chainId"); err != nil {
		return nil, err
	}
	id, err := hexutil.DecodeBig(hex)
	if err != nil {
		return nil, fmt.Errorf("could not parse chain id %q: %w", hex, err)
	}
	return id, nil
}

// NetVersion returns the network id as reported by net_version.
func (c *EVMClient) NetVersion(ctx context.Context) (string, error) {
	var v string
	if err := c.call(ctx, &v, "net_version"); err != nil {
		return "", err
	}
	return v, nil
}

// BlockNumber returns the latest block number.
func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	var hex string
	if err := c.call(ctx, &hex, "eth_blockNumber"); err != nil {
		return 0, err
	}
	n, err := hexutil.DecodeUint64(hex)
	if err != nil {
		return 0, fmt.Errorf("could not parse block number %q: %w", hex, err)
	}
	return n, nil
}

// GasPrice returns the current gas price.
func (c *EVMClient) GasPrice(ctx context.Context) (*big.Int, error) {
	var hex string
	if err := c.call(ctx, &hex, "eth_gasPrice"); err != nil {
		return nil, err
	}
	gp, err := hexutil.DecodeBig(hex)
	if err != nil {
		return nil, fmt.Errorf("could not parse gas price %q: %w", hex, err)
	}
	return gp, nil
}

// PendingNonceAt returns the transaction count of addr including queued
// transactions.
func (c *EVMClient) PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	var hex string
	if err := c.call(ctx, &hex, "eth_getTransactionCount", addr.Hex(), "pending"); err != nil {
		return 0, err
	}
	n, err := hexutil.DecodeUint64(hex)
	if err != nil {
		return 0, fmt.Errorf("could not parse nonce %q: %w", hex, err)
	}
	return n, nil
}

// EstimateGas estimates gas for a call from -> to carrying data.
func (c *EVMClient) EstimateGas(ctx context.Context, from, to common.Address, data []byte, value *big.Int) (uint64, error) {
	var hex string
	if err := c.call(ctx, &hex, "eth_estimateGas", callArgs(from, to, data, value)); err != nil {
		return 0, err
	}
	n, err := hexutil.DecodeUint64(hex)
	if err != nil {
		return 0, fmt.Errorf("could not parse gas estimate %q: %w", hex, err)
	}
	return n, nil
}

// CallContract executes a read-only eth_call against the latest block.
func (c *EVMClient) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	var hex string
	if err := c.call(ctx, &hex, "eth_call", map[string]string{
		"to":   to.Hex(),
		"data": hexutil.Encode(data),
	}, "latest"); err != nil {
		return nil, err
	}
	out, err := hexutil.Decode(hex)
	if err != nil {
		// Some nodes answer "0x" for empty output, which hexutil accepts;
		// anything else is malformed.
		return nil, fmt.Errorf("could not parse call result %q: %w", hex, err)
	}
	return out, nil
}

// SendRawTransaction broadcasts a signed raw transaction and returns its hash.
func (c *EVMClient) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	var hash string
	if err := c.call(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(raw)); err != nil {
		return "", err
	}
	return hash, nil
}

// TxReceipt holds the on-chain receipt of a mined transaction.
type TxReceipt struct {
	Hash        string
	Status      uint64 // 1 = success, 0 = reverted
	BlockNumber uint64
	GasUsed     uint64
}

// Succeeded reports whether the receipt carries a success status.
func (r *TxReceipt) Succeeded() bool { return r != nil && r.Status == 1 }

// TransactionReceipt fetches the receipt for hash.
// Returns nil, nil if the transaction is still pending.
func (c *EVMClient) TransactionReceipt(ctx context.Context, hash string) (*TxReceipt, error) {
	var r *struct {
		Status      hexutil.Uint64 `json:"status"`
		BlockNumber hexutil.Uint64 `json:"blockNumber"`
		GasUsed     hexutil.Uint64 `json:"gasUsed"`
	}
	if err := c.call(ctx, &r, "eth_getTransactionReceipt", hash); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil // still pending
	}
	return &TxReceipt{
		Hash:        hash,
		Status:      uint64(r.Status),
		BlockNumber: uint64(r.BlockNumber),
		GasUsed:     uint64(r.GasUsed),
	}, nil
}

// WaitForReceipt polls every interval until the transaction is mined or ctx
// is done. A mined receipt with status 0 is returned together with an error
// wrapping ErrTransactionFailed.
func (c *EVMClient) WaitForReceipt(ctx context.Context, hash string, every time.Duration) (*TxReceipt, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		receipt, err := c.TransactionReceipt(ctx, hash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			if !receipt.Succeeded() {
				return receipt, fmt.Errorf("%w (hash: %s)", ErrTransactionFailed, hash)
			}
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s not mined: %w", hash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Ping tests the RPC endpoint and returns latency + block number.
func (c *EVMClient) Ping(ctx context.Context) (latency time.Duration, blockNum uint64, err error) {
	start := time.Now()
	blockNum, err = c.BlockNumber(ctx)
	return time.Since(start), blockNum, err
}

// --- internal JSON-RPC plumbing ---

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

func callArgs(from, to common.Address, data []byte, value *big.Int) map[string]string {
	args := map[string]string{
		"from": from.Hex(),
		"to":   to.Hex(),
	}
	if len(data) > 0 {
		args["data"] = hexutil.Encode(data)
	}
	if value != nil && value.Sign() > 0 {
		args["value"] = hexutil.EncodeBig(value)
	}
	return args
}

func (c *EVMClient) call(ctx context.Context, result any, method string, params ...any) (err error) {
	if c.hook != nil {
		start := time.Now()
		defer func() { c.hook(method, time.Since(start), err) }()
	}

	if params == nil {
		params = []any{}
	}
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	if rpcResp.Error != nil {
		return wrapRPCError(rpcResp.Error)
	}

	if len(rpcResp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("parsing result: %w", err)
	}
	return nil
}
