// Package rpc is a minimal JSON-RPC 2.0 client for a Solana node,
// covering the handful of methods the CLI needs.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/me/solbatch/internal/keys"
)

// Commitment is the confirmation level a query or wait targets.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// reached reports whether the status level satisfies the wanted level.
func (c Commitment) reached(status string) bool {
	rank := map[string]int{
		string(CommitmentProcessed): 0,
		string(CommitmentConfirmed): 1,
		string(CommitmentFinalized): 2,
	}
	got, ok := rank[status]
	if !ok {
		return false
	}
	return got >= rank[string(c)]
}

// Client talks JSON-RPC to a single node endpoint. It is safe for
// concurrent use; jobs fanned out by a worker share one Client.
type Client struct {
	endpoint     string
	httpClient   *http.Client
	logger       *slog.Logger
	pollInterval time.Duration
	nextID       atomic.Uint64
}

// NewClient creates a node client.
func NewClient(endpoint string, logger *slog.Logger) *Client {
	return &Client{
		endpoint:     endpoint,
		httpClient:   &http.Client{},
		logger:       logger.With("component", "rpc"),
		pollInterval: 500 * time.Millisecond,
	}
}

// RPCError is the error object of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// call performs one JSON-RPC round trip and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Debug("rpc request", "method", method, "id", req.ID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}

	var resp rpcResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return fmt.Errorf("%s: parse response (status %d): %w", method, httpResp.StatusCode, err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%s: %w", method, resp.Error)
	}
	if out != nil {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("%s: parse result: %w", method, err)
		}
	}
	return nil
}

// valueEnvelope is the {"context": ..., "value": ...} wrapper many node
// methods use.
type valueEnvelope[T any] struct {
	Value T `json:"value"`
}

// GetBalance returns the lamport balance of an account.
func (c *Client) GetBalance(ctx context.Context, account keys.Pubkey) (uint64, error) {
	var res valueEnvelope[uint64]
	if err := c.call(ctx, "getBalance", []any{account.String()}, &res); err != nil {
		return 0, err
	}
	return res.Value, nil
}

// RequestAirdrop asks the node to airdrop lamports and returns the
// transaction signature.
func (c *Client) RequestAirdrop(ctx context.Context, account keys.Pubkey, lamports uint64) (string, error) {
	var sig string
	if err := c.call(ctx, "requestAirdrop", []any{account.String(), lamports}, &sig); err != nil {
		return "", err
	}
	return sig, nil
}

// GetLatestBlockhash returns a recent blockhash usable for signing.
func (c *Client) GetLatestBlockhash(ctx context.Context) (string, error) {
	var res valueEnvelope[struct {
		Blockhash string `json:"blockhash"`
	}]
	if err := c.call(ctx, "getLatestBlockhash", nil, &res); err != nil {
		return "", err
	}
	return res.Value.Blockhash, nil
}

// SendTransaction submits a base64-encoded signed transaction and returns
// its signature. Preflight stays enabled, so obviously invalid
// transactions fail here instead of silently dropping.
func (c *Client) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	var sig string
	params := []any{txBase64, map[string]any{"encoding": "base64"}}
	if err := c.call(ctx, "sendTransaction", params, &sig); err != nil {
		return "", err
	}
	return sig, nil
}

// GetMinimumBalanceForRentExemption returns the lamports needed to make
// an account of the given data size rent exempt.
func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, dataLen int) (uint64, error) {
	var lamports uint64
	if err := c.call(ctx, "getMinimumBalanceForRentExemption", []any{dataLen}, &lamports); err != nil {
		return 0, err
	}
	return lamports, nil
}

// TokenAmount is a token balance in raw subunits plus its decimals.
type TokenAmount struct {
	Amount   string `json:"amount"`
	Decimals int    `json:"decimals"`
}

// GetTokenAccountBalance returns the balance of a token account.
func (c *Client) GetTokenAccountBalance(ctx context.Context, account keys.Pubkey) (TokenAmount, error) {
	var res valueEnvelope[TokenAmount]
	if err := c.call(ctx, "getTokenAccountBalance", []any{account.String()}, &res); err != nil {
		return TokenAmount{}, err
	}
	return res.Value, nil
}

// SignatureStatus is one entry of a getSignatureStatuses response.
type SignatureStatus struct {
	Confirmations      *int            `json:"confirmations"`
	ConfirmationStatus string          `json:"confirmationStatus"`
	Err                json.RawMessage `json:"err"`
}

// failed reports whether the status carries a transaction error.
func (s *SignatureStatus) failed() bool {
	return len(s.Err) > 0 && string(s.Err) != "null"
}

// GetSignatureStatuses looks up the cluster status of the given
// signatures. Unknown signatures come back as nil entries.
func (c *Client) GetSignatureStatuses(ctx context.Context, sigs []string) ([]*SignatureStatus, error) {
	params := []any{sigs, map[string]any{"searchTransactionHistory": true}}
	var res valueEnvelope[[]*SignatureStatus]
	if err := c.call(ctx, "getSignatureStatuses", params, &res); err != nil {
		return nil, err
	}
	return res.Value, nil
}

// WaitForSignature polls until the signature reaches the wanted
// commitment, the transaction fails, or ctx ends. Deadlines are the
// caller's job: pass a context with a timeout.
func (c *Client) WaitForSignature(ctx context.Context, sig string, commitment Commitment) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		statuses, err := c.GetSignatureStatuses(ctx, []string{sig})
		if err != nil {
			return err
		}
		if len(statuses) > 0 && statuses[0] != nil {
			st := statuses[0]
			if st.failed() {
				return fmt.Errorf("transaction %s failed: %s", sig, st.Err)
			}
			if commitment.reached(st.ConfirmationStatus) {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}
