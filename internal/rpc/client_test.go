package rpc

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/me/solbatch/internal/keys"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient starts a JSON-RPC stub that answers every request with
// the given handler and returns a client pointed at it.
func newTestClient(t *testing.T, handle func(method string, params []json.RawMessage) (any, *RPCError)) *Client {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		result, rpcErr := handle(req.Method, req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(ts.Close)
	c := NewClient(ts.URL, testLogger())
	c.pollInterval = time.Millisecond
	return c
}

func testPubkey(t *testing.T) keys.Pubkey {
	t.Helper()
	kp, err := keys.Generate()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return kp.Pub()
}

func TestGetBalance(t *testing.T) {
	pk := testPubkey(t)
	c := newTestClient(t, func(method string, params []json.RawMessage) (any, *RPCError) {
		if method != "getBalance" {
			t.Errorf("method = %s, want getBalance", method)
		}
		var addr string
		json.Unmarshal(params[0], &addr)
		if addr != pk.String() {
			t.Errorf("param = %s, want %s", addr, pk)
		}
		return map[string]any{"value": 2_500_000_000}, nil
	})

	got, err := c.GetBalance(context.Background(), pk)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if got != 2_500_000_000 {
		t.Errorf("balance = %d, want 2500000000", got)
	}
}

func TestRequestAirdropSurfacesRPCError(t *testing.T) {
	c := newTestClient(t, func(method string, params []json.RawMessage) (any, *RPCError) {
		return nil, &RPCError{Code: -32602, Message: "invalid params"}
	})

	_, err := c.RequestAirdrop(context.Background(), testPubkey(t), 1000)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "invalid params") {
		t.Errorf("err = %v, want rpc error message", err)
	}
}

func TestSendTransactionUsesBase64Encoding(t *testing.T) {
	c := newTestClient(t, func(method string, params []json.RawMessage) (any, *RPCError) {
		if method != "sendTransaction" {
			t.Errorf("method = %s", method)
		}
		var opts map[string]any
		json.Unmarshal(params[1], &opts)
		if opts["encoding"] != "base64" {
			t.Errorf("encoding = %v, want base64", opts["encoding"])
		}
		return "5sig", nil
	})

	sig, err := c.SendTransaction(context.Background(), "dGVzdA==")
	if err != nil {
		t.Fatalf("SendTransaction: %v", err)
	}
	if sig != "5sig" {
		t.Errorf("sig = %s", sig)
	}
}

func TestWaitForSignaturePollsUntilCommitment(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(method string, params []json.RawMessage) (any, *RPCError) {
		n := calls.Add(1)
		status := map[string]any{"confirmationStatus": "processed", "err": nil}
		if n >= 3 {
			status["confirmationStatus"] = "finalized"
		}
		return map[string]any{"value": []any{status}}, nil
	})

	if err := c.WaitForSignature(context.Background(), "sig", CommitmentFinalized); err != nil {
		t.Fatalf("WaitForSignature: %v", err)
	}
	if calls.Load() < 3 {
		t.Errorf("polled %d times, want at least 3", calls.Load())
	}
}

func TestWaitForSignatureConfirmedAcceptsFinalized(t *testing.T) {
	c := newTestClient(t, func(method string, params []json.RawMessage) (any, *RPCError) {
		return map[string]any{"value": []any{map[string]any{"confirmationStatus": "finalized", "err": nil}}}, nil
	})
	if err := c.WaitForSignature(context.Background(), "sig", CommitmentConfirmed); err != nil {
		t.Fatalf("WaitForSignature: %v", err)
	}
}

func TestWaitForSignatureReportsTransactionFailure(t *testing.T) {
	c := newTestClient(t, func(method string, params []json.RawMessage) (any, *RPCError) {
		status := map[string]any{
			"confirmationStatus": "confirmed",
			"err":                map[string]any{"InstructionError": []any{0, "Custom"}},
		}
		return map[string]any{"value": []any{status}}, nil
	})

	err := c.WaitForSignature(context.Background(), "sig", CommitmentConfirmed)
	if err == nil || !strings.Contains(err.Error(), "failed") {
		t.Fatalf("err = %v, want transaction failure", err)
	}
}

func TestWaitForSignatureHonorsContext(t *testing.T) {
	c := newTestClient(t, func(method string, params []json.RawMessage) (any, *RPCError) {
		// Signature never lands.
		return map[string]any{"value": []any{nil}}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.WaitForSignature(ctx, "sig", CommitmentFinalized)
	if err == nil {
		t.Fatal("expected a context error")
	}
}
