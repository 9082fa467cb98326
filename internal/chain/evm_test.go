package chain

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// rpcMock creates a test HTTP server that serves a fixed JSON-RPC response
// per method. Pass method→result pairs; any unknown method returns an RPC error.
func rpcMock(t *testing.T, responses map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			ID     int    `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if result, ok := responses[req.Method]; ok {
			json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  result,
			})
		} else {
			json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error":   map[string]interface{}{"code": -32601, "message": "method not found"},
			})
		}
	}))
}

// rpcErrorServer creates a test HTTP server that always returns a JSON-RPC error.
func rpcErrorServer(t *testing.T, code int, msg string, data interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct{ ID int `json:"id"` }
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		errObj := map[string]interface{}{"code": code, "message": msg}
		if data != nil {
			errObj["data"] = data
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   errObj,
		})
	}))
}

// rpcBadJSON creates a server that returns malformed JSON.
func rpcBadJSON(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{not valid json`)) //nolint:errcheck
	}))
}

var ctx = context.Background()

// ---------------------------------------------------------------------------
// simple reads
// ---------------------------------------------------------------------------

func TestChainID(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_chainId": "0x7a69"})
	defer srv.Close()

	id, err := NewEVMClient(srv.URL).ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(31337), id.Int64())
}

func TestNetVersion(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"net_version": "4"})
	defer srv.Close()

	v, err := NewEVMClient(srv.URL).NetVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "4", v)
}

func TestBlockNumber(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_blockNumber": "0x10"})
	defer srv.Close()

	n, err := NewEVMClient(srv.URL).BlockNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), n)
}

func TestGasPrice(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_gasPrice": "0x3b9aca00"})
	defer srv.Close()

	gp, err := NewEVMClient(srv.URL).GasPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000_000), gp)
}

func TestPendingNonceAt(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getTransactionCount": "0x5"})
	defer srv.Close()

	n, err := NewEVMClient(srv.URL).PendingNonceAt(ctx, common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)
}

func TestEstimateGas(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_estimateGas": "0x5208"})
	defer srv.Close()

	gas, err := NewEVMClient(srv.URL).EstimateGas(ctx, common.HexToAddress("0x01"), common.HexToAddress("0x02"), []byte{0xaa}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(21000), gas)
}

func TestCallContract(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_call": "0x0000000000000000000000000000000000000000000000000000000000000064",
	})
	defer srv.Close()

	out, err := NewEVMClient(srv.URL).CallContract(ctx, common.HexToAddress("0x01"), []byte{0x70, 0xa0, 0x82, 0x31})
	require.NoError(t, err)
	require.Len(t, out, 32)
	assert.Equal(t, int64(100), new(big.Int).SetBytes(out).Int64())
}

func TestSendRawTransaction(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_sendRawTransaction": "0xabc123"})
	defer srv.Close()

	hash, err := NewEVMClient(srv.URL).SendRawTransaction(ctx, []byte{0x02, 0xf8})
	require.NoError(t, err)
	assert.Equal(t, "0xabc123", hash)
}

func TestBadJSONResponse(t *testing.T) {
	srv := rpcBadJSON(t)
	defer srv.Close()

	_, err := NewEVMClient(srv.URL).BlockNumber(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing response")
}

func TestUnreachableEndpoint(t *testing.T) {
	_, err := NewEVMClient("http://127.0.0.1:19995").BlockNumber(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RPC request failed")
}

func TestCallHookObservesEveryCall(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_blockNumber": "0x1"})
	defer srv.Close()

	var methods []string
	var errs []error
	c := NewEVMClient(srv.URL, WithCallHook(func(method string, _ time.Duration, err error) {
		methods = append(methods, method)
		errs = append(errs, err)
	}))

	_, err := c.BlockNumber(ctx)
	require.NoError(t, err)
	_, err = c.GasPrice(ctx) // not served → error
	require.Error(t, err)

	assert.Equal(t, []string{"eth_blockNumber", "eth_gasPrice"}, methods)
	assert.NoError(t, errs[0])
	assert.Error(t, errs[1])
}

// ---------------------------------------------------------------------------
// receipts
// ---------------------------------------------------------------------------

func TestTransactionReceiptSuccess(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": map[string]interface{}{
			"status":      "0x1",
			"blockNumber": "0x100",
			"gasUsed":     "0x5208",
		},
	})
	defer srv.Close()

	receipt, err := NewEVMClient(srv.URL).TransactionReceipt(ctx, "0xtxhash")
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.True(t, receipt.Succeeded())
	assert.Equal(t, uint64(256), receipt.BlockNumber)
	assert.Equal(t, uint64(21000), receipt.GasUsed)
	assert.Equal(t, "0xtxhash", receipt.Hash)
}

func TestTransactionReceiptPending(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getTransactionReceipt": nil})
	defer srv.Close()

	receipt, err := NewEVMClient(srv.URL).TransactionReceipt(ctx, "0xpending")
	require.NoError(t, err)
	assert.Nil(t, receipt, "pending tx should return nil receipt")
}

func TestWaitForReceiptAfterPending(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct{ ID int `json:"id"` }
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		var result interface{}
		if polls.Add(1) >= 3 {
			result = map[string]interface{}{"status": "0x1", "blockNumber": "0x2", "gasUsed": "0x1"}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result}) //nolint:errcheck
	}))
	defer srv.Close()

	receipt, err := NewEVMClient(srv.URL).WaitForReceipt(ctx, "0xabc", 5*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, receipt.Succeeded())
	assert.Equal(t, int32(3), polls.Load())
}

func TestWaitForReceiptReverted(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": map[string]interface{}{"status": "0x0", "blockNumber": "0x2", "gasUsed": "0x1"},
	})
	defer srv.Close()

	receipt, err := NewEVMClient(srv.URL).WaitForReceipt(ctx, "0xdead", time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransactionFailed))
	require.NotNil(t, receipt)
	assert.False(t, receipt.Succeeded())
}

func TestWaitForReceiptContextDone(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getTransactionReceipt": nil})
	defer srv.Close()

	cctx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()

	_, err := NewEVMClient(srv.URL).WaitForReceipt(cctx, "0xslow", 5*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPing(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_blockNumber": "0xff"})
	defer srv.Close()

	latency, block, err := NewEVMClient(srv.URL).Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(255), block)
	assert.Greater(t, latency, time.Duration(0))
}
