// Package fullnode is the HTTP/JSON-RPC client for a Sui full node's
// read API. The client performs no retries and surfaces node errors
// verbatim; retry policy belongs to callers.
package fullnode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/asjadnft/sui-indexer/go/sui"
)

// ReadAPI is the subset of the node's read API the indexer consumes.
type ReadAPI interface {
	GetCheckpoint(ctx context.Context, seq uint64) (*sui.Checkpoint, error)
	MultiGetTransactionBlocks(ctx context.Context, digests []string) ([]*sui.TransactionBlock, error)
	TryMultiGetPastObjects(ctx context.Context, reqs []sui.GetPastObjectRequest, opts sui.ObjectDataOptions) ([]sui.PastObjectResponse, error)
	GetLatestSystemState(ctx context.Context) (*sui.SystemStateSummary, error)
}

// Client implements ReadAPI over a single HTTP endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	nextID   atomic.Int64
}

var _ ReadAPI = (*Client)(nil)

// NewClient returns a client for the given JSON-RPC endpoint.
// A nil httpClient uses http.DefaultClient; timeouts and cancellation
// come from the per-call context.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int64         `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      int64           `json:"id"`
}

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	var body, err = json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("calling %s: unexpected status %d: %s", method, resp.StatusCode, string(raw))
	}

	var envelope rpcResponse
	if err = json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("calling %s: %w", method, envelope.Error)
	}
	if result != nil {
		if err = json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

// GetCheckpoint fetches one checkpoint envelope by sequence number.
// The node replies with an error for sequence numbers it has not yet
// checkpointed; that error is returned as-is.
func (c *Client) GetCheckpoint(ctx context.Context, seq uint64) (*sui.Checkpoint, error) {
	var out sui.Checkpoint
	if err := c.call(ctx, "sui_getCheckpoint", []interface{}{strconv.FormatUint(seq, 10)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var fullTransactionOptions = map[string]bool{
	"showInput":    true,
	"showRawInput": true,
	"showEffects":  true,
	"showEvents":   true,
}

// MultiGetTransactionBlocks fetches full transaction payloads for the
// given digests. Callers chunk the digest list; the node rejects
// oversized batches.
func (c *Client) MultiGetTransactionBlocks(ctx context.Context, digests []string) ([]*sui.TransactionBlock, error) {
	var out []*sui.TransactionBlock
	if err := c.call(ctx, "sui_multiGetTransactionBlocks", []interface{}{digests, fullTransactionOptions}, &out); err != nil {
		return nil, err
	}
	if len(out) != len(digests) {
		return nil, fmt.Errorf("sui_multiGetTransactionBlocks returned %d blocks for %d digests", len(out), len(digests))
	}
	return out, nil
}

// TryMultiGetPastObjects fetches exact object versions. Callers chunk
// the request list.
func (c *Client) TryMultiGetPastObjects(ctx context.Context, reqs []sui.GetPastObjectRequest, opts sui.ObjectDataOptions) ([]sui.PastObjectResponse, error) {
	var out []sui.PastObjectResponse
	if err := c.call(ctx, "sui_tryMultiGetPastObjects", []interface{}{reqs, opts}, &out); err != nil {
		return nil, err
	}
	if len(out) != len(reqs) {
		return nil, fmt.Errorf("sui_tryMultiGetPastObjects returned %d objects for %d requests", len(out), len(reqs))
	}
	return out, nil
}

// GetLatestSystemState fetches the current system-state summary.
func (c *Client) GetLatestSystemState(ctx context.Context) (*sui.SystemStateSummary, error) {
	var out sui.SystemStateSummary
	if err := c.call(ctx, "suix_getLatestSuiSystemState", []interface{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
