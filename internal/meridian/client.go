// Package meridian is the transport client for the Meridian trading backend.
// The backend speaks MCP (JSON-RPC 2.0) over HTTP: one initialize handshake
// establishes a session, then each operation is a tools/call request.
package meridian

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mbecker/meridian-mcp/internal/retry"
)

const (
	protocolVersion = "2025-03-26"
	clientName      = "meridian-mcp"
	clientVersion   = "1.0.0"

	maxAttempts = 3
	baseBackoff = 250 * time.Millisecond
)

// TokenSource supplies the bearer credential for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// ToolCaller is the surface the tool handlers depend on: invoke a named
// backend tool and get its text payload back.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// ToolError is a tool-level failure reported by the backend (result with
// isError set), as opposed to a transport or protocol failure.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Tool, e.Message)
}

// Client implements ToolCaller over HTTP.
type Client struct {
	endpoint   string
	tokens     TokenSource
	httpClient *http.Client

	nextID atomic.Int64

	mu          sync.Mutex
	initialized bool
	sessionID   string
}

// NewClient creates a client for the backend at apiURL (base URL; the MCP
// endpoint lives at /mcp).
func NewClient(apiURL string, tokens TokenSource, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimSuffix(apiURL, "/") + "/mcp",
		tokens:   tokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// --- JSON-RPC wire types ---

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int64 `json:"id,omitempty"` // nil for notifications
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type toolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

// CallTool invokes a named tool on the backend and returns the concatenated
// text content of its result. Transport-level failures (network, 5xx, 429)
// are retried with backoff; anything else fails immediately.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if err := c.ensureSession(ctx); err != nil {
		return "", err
	}

	raw, err := c.call(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return "", err
	}

	var res toolResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("parse %s result: %w", name, err)
	}

	var sb strings.Builder
	for _, block := range res.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if res.IsError {
		return "", &ToolError{Tool: name, Message: sb.String()}
	}
	return sb.String(), nil
}

// ensureSession performs the MCP initialize handshake once per process and
// remembers the session identifier the backend assigns.
func (c *Client) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	established := c.initialized
	c.mu.Unlock()
	if established {
		return nil
	}

	_, err := c.call(ctx, "initialize", map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    clientName,
			"version": clientVersion,
		},
	})
	if err != nil {
		return fmt.Errorf("initialize session: %w", err)
	}

	// MCP requires an initialized notification before the first tools call.
	if err := c.notify(ctx, "notifications/initialized"); err != nil {
		return fmt.Errorf("confirm session: %w", err)
	}

	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()
	return nil
}

func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	req := rpcRequest{JSONRPC: "2.0", ID: &id, Method: method, Params: params}

	var result json.RawMessage
	err := retry.Do(ctx, maxAttempts, baseBackoff, func() error {
		body, err := c.post(ctx, req)
		if err != nil {
			return err
		}

		var resp rpcResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return retry.Permanent(fmt.Errorf("parse response: %w", err))
		}
		if resp.Error != nil {
			return retry.Permanent(fmt.Errorf("backend error (%d): %s", resp.Error.Code, resp.Error.Message))
		}
		result = resp.Result
		return nil
	})
	return result, err
}

func (c *Client) notify(ctx context.Context, method string) error {
	return retry.Do(ctx, maxAttempts, baseBackoff, func() error {
		_, err := c.post(ctx, rpcRequest{JSONRPC: "2.0", Method: method})
		return err
	})
}

// post sends one JSON-RPC message. Errors it returns directly are considered
// transient by the caller; client-level misuse is wrapped in retry.Permanent.
func (c *Client) post(ctx context.Context, rpcReq rpcRequest) ([]byte, error) {
	data, err := json.Marshal(rpcReq)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("obtain credential: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)

	c.mu.Lock()
	if c.sessionID != "" {
		req.Header.Set("Mcp-Session-Id", c.sessionID)
	}
	c.mu.Unlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if sid := resp.Header.Get("Mcp-Session-Id"); sid != "" {
		c.mu.Lock()
		c.sessionID = sid
		c.mu.Unlock()
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("backend unavailable (%d): %s", resp.StatusCode, string(body))
	}
	if resp.StatusCode >= 400 {
		return nil, retry.Permanent(fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body)))
	}

	return body, nil
}
