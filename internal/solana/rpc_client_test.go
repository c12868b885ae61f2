package solana

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newRPCServer(t *testing.T, result interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestHTTPClient_GetParsedTransaction(t *testing.T) {
	var gotParams []interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		if req.Method != "getTransaction" {
			t.Errorf("expected method getTransaction, got %s", req.Method)
		}
		gotParams = req.Params

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"slot":      int64(123456),
				"blockTime": int64(1700000000),
				"meta": map[string]interface{}{
					"err":         nil,
					"logMessages": []string{"Program log: Instruction: Create"},
					"innerInstructions": []interface{}{
						map[string]interface{}{
							"index": 0,
							"instructions": []interface{}{
								map[string]interface{}{
									"programId": "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s",
									"accounts":  []string{"a", "b"},
									"data":      "3Bxs4h24hBtQy9rw",
								},
								map[string]interface{}{
									"programId": "11111111111111111111111111111111",
									"program":   "system",
									"parsed":    map[string]interface{}{"type": "transfer"},
								},
							},
						},
					},
				},
				"transaction": map[string]interface{}{
					"signatures": []string{"testsig123"},
					"message": map[string]interface{}{
						"accountKeys": []interface{}{
							map[string]interface{}{"pubkey": "creator", "signer": true, "writable": true, "source": "transaction"},
							map[string]interface{}{"pubkey": "mint", "signer": true, "writable": true, "source": "transaction"},
						},
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	tx, err := client.GetParsedTransaction(ctx, "testsig123")
	if err != nil {
		t.Fatalf("GetParsedTransaction: %v", err)
	}

	if tx.Slot != 123456 {
		t.Errorf("expected slot 123456, got %d", tx.Slot)
	}
	if tx.BlockTime != 1700000000 {
		t.Errorf("expected blockTime 1700000000, got %d", tx.BlockTime)
	}
	if tx.Signature != "testsig123" {
		t.Errorf("expected signature testsig123, got %s", tx.Signature)
	}

	mint, ok := tx.AccountKeyAt(1)
	if !ok || mint != "mint" {
		t.Errorf("expected mint at index 1, got %q (ok=%v)", mint, ok)
	}
	if !tx.AccountKeys[0].Signer {
		t.Error("expected creator to be a signer")
	}

	ix, ok := tx.FindInnerInstruction("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
	if !ok {
		t.Fatal("expected metadata inner instruction")
	}
	if ix.Data != "3Bxs4h24hBtQy9rw" {
		t.Errorf("unexpected data: %s", ix.Data)
	}

	if _, ok := tx.FindInnerInstruction("11111111111111111111111111111111"); ok {
		t.Error("parsed instruction must not be reported as partially decoded")
	}

	if len(gotParams) != 2 {
		t.Fatalf("expected 2 params, got %d", len(gotParams))
	}
	opts, _ := gotParams[1].(map[string]interface{})
	if opts["encoding"] != "jsonParsed" || opts["commitment"] != "confirmed" {
		t.Errorf("unexpected options: %v", opts)
	}
	if v, _ := opts["maxSupportedTransactionVersion"].(float64); v != 0 {
		t.Errorf("unexpected maxSupportedTransactionVersion: %v", opts["maxSupportedTransactionVersion"])
	}
}

func TestHTTPClient_GetParsedTransaction_StringAccountKeys(t *testing.T) {
	server := newRPCServer(t, map[string]interface{}{
		"slot": int64(7),
		"meta": map[string]interface{}{"err": nil},
		"transaction": map[string]interface{}{
			"message": map[string]interface{}{
				"accountKeys": []string{"creator", "mint"},
			},
		},
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)

	tx, err := client.GetParsedTransaction(context.Background(), "sig")
	if err != nil {
		t.Fatalf("GetParsedTransaction: %v", err)
	}

	mint, ok := tx.AccountKeyAt(1)
	if !ok || mint != "mint" {
		t.Errorf("expected mint at index 1, got %q (ok=%v)", mint, ok)
	}
	if _, ok := tx.AccountKeyAt(2); ok {
		t.Error("expected index 2 to be out of range")
	}
}

func TestHTTPClient_GetParsedTransaction_NotFound(t *testing.T) {
	server := newRPCServer(t, nil)
	defer server.Close()

	client := NewHTTPClient(server.URL)

	tx, err := client.GetParsedTransaction(context.Background(), "nonexistent")
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
	if tx != nil {
		t.Errorf("expected nil transaction, got %+v", tx)
	}
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"slot": int64(999)},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)
	ctx := context.Background()

	tx, err := client.GetParsedTransaction(ctx, "sig")
	if err != nil {
		t.Fatalf("GetParsedTransaction: %v", err)
	}

	if tx.Slot != 999 {
		t.Errorf("expected slot 999, got %d", tx.Slot)
	}

	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32600,
				"message": "Invalid Request",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	_, err := client.GetParsedTransaction(ctx, "sig")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var rpcErr *rpcError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected rpcError, got %T", err)
	}

	if rpcErr.Code != -32600 {
		t.Errorf("expected code -32600, got %d", rpcErr.Code)
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := client.GetParsedTransaction(ctx, "sig")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
