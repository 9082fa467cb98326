package contract_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Mohsinsiddi/presalectl/internal/chain"
	"github.com/Mohsinsiddi/presalectl/internal/contract"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The bindings should work unchanged against the real JSON-RPC client.
func TestPresalePriceOverJSONRPC(t *testing.T) {
	b, _ := contract.GetBuiltin("presalefactory")
	parsed, err := b.Parsed()
	require.NoError(t, err)
	encoded, err := parsed.Methods["getPresalePrice"].Outputs.Pack(big.NewInt(5))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if req.Method != "eth_call" {
			fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`)
			return
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":%q}`, hexutil.Encode(encoded))
	}))
	defer srv.Close()

	presale := contract.NewPresale(common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0"), chain.NewEVMClient(srv.URL))
	price, err := presale.PresalePrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), price.Int64())
}
