package solbc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/nazare-vault/internal/blockchain/solbc/rpc"
)

// accountServer отвечает на getMultipleAccounts из словаря адрес -> данные
func accountServer(t *testing.T, accounts map[string][]byte, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "getMultipleAccounts", req.Method)
		calls.Add(1)

		var keys []string
		require.NoError(t, json.Unmarshal(req.Params[0], &keys))

		value := make([]interface{}, len(keys))
		for i, k := range keys {
			data, ok := accounts[k]
			if !ok {
				continue
			}
			value[i] = map[string]interface{}{
				"data":       []string{base64.StdEncoding.EncodeToString(data), "base64"},
				"executable": false,
				"lamports":   1,
				"owner":      solana.SystemProgramID.String(),
				"rentEpoch":  0,
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"context": map[string]interface{}{"slot": 1},
				"value":   value,
			},
		})
	}))
}

func TestFetchAccountsChunksAndKeepsOrder(t *testing.T) {
	var calls atomic.Int32
	addresses := make([]solana.PublicKey, 150)
	accounts := make(map[string][]byte)
	for i := range addresses {
		addresses[i] = solana.NewWallet().PublicKey()
		if i%7 != 0 {
			accounts[addresses[i].String()] = []byte{byte(i)}
		}
	}
	srv := accountServer(t, accounts, &calls)
	defer srv.Close()

	client, err := NewClient([]string{srv.URL}, rpc.DefaultOptions(), solanarpc.CommitmentConfirmed, zap.NewNop())
	require.NoError(t, err)

	data, err := client.FetchAccounts(context.Background(), addresses)
	require.NoError(t, err)
	require.Len(t, data, len(addresses))
	assert.Equal(t, int32(2), calls.Load())

	for i := range addresses {
		if i%7 == 0 {
			assert.Nil(t, data[i], "account %d", i)
			continue
		}
		assert.Equal(t, []byte{byte(i)}, data[i], "account %d", i)
	}
}

func TestFetchAccountNotFound(t *testing.T) {
	var calls atomic.Int32
	known := solana.NewWallet().PublicKey()
	srv := accountServer(t, map[string][]byte{known.String(): {1, 2, 3}}, &calls)
	defer srv.Close()

	client, err := NewClient([]string{srv.URL}, rpc.DefaultOptions(), "", zap.NewNop())
	require.NoError(t, err)

	data, err := client.FetchAccount(context.Background(), known)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	_, err = client.FetchAccount(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrAccountNotFound)
	// отсутствие аккаунта не повторяется
	assert.Equal(t, int32(2), calls.Load())
}
