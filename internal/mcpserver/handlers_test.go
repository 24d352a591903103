package mcpserver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbecker/meridian-mcp/internal/journal"
)

// --- Test helpers ---

// fakeCaller records backend tool calls and plays back canned responses.
type fakeCaller struct {
	calls []call
	text  string
	err   error
}

type call struct {
	name string
	args map[string]any
}

func (f *fakeCaller) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func newTestHandlers(t *testing.T, backend *fakeCaller) *Handlers {
	t.Helper()
	jnl, err := journal.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = jnl.Close() })
	return NewHandlers(backend, jnl, nil)
}

func makeRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	if args == nil {
		args = map[string]any{}
	}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content block")
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

// ============================================================
// execute_trade
// ============================================================

func TestHandleExecuteTrade_Success(t *testing.T) {
	backend := &fakeCaller{text: `{"order_id":"ord_1","status":"filled"}`}
	h := newTestHandlers(t, backend)

	result, err := h.HandleExecuteTrade(context.Background(), makeRequest(map[string]any{
		"action": "buy",
		"token":  "SOL",
		"amount": "100",
		"chain":  "solana",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Buy SOL with 100 USDC on solana")
	assert.Contains(t, text, "ord_1")

	require.Len(t, backend.calls, 1)
	assert.Equal(t, "execute_intent", backend.calls[0].name)
	xml, ok := backend.calls[0].args["intent"].(string)
	require.True(t, ok)
	assert.Contains(t, xml, "<chain_id>solana:mainnet-beta</chain_id>")
	assert.Contains(t, xml, "<base>So11111111111111111111111111111111111111112</base>")
}

func TestHandleExecuteTrade_ExitConditionsForwarded(t *testing.T) {
	backend := &fakeCaller{text: `{}`}
	h := newTestHandlers(t, backend)

	result, err := h.HandleExecuteTrade(context.Background(), makeRequest(map[string]any{
		"action":      "buy",
		"token":       "TRUMP",
		"amount":      "50",
		"chain":       "solana",
		"take_profit": float64(20),
		"stop_loss":   float64(10),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	xml := backend.calls[0].args["intent"].(string)
	assert.Contains(t, xml, "<profit_percent>20</profit_percent>")
	assert.Contains(t, xml, "<loss_percent>10</loss_percent>")
	assert.Contains(t, resultText(t, result), "(TP: +20%) (SL: -10%)")
}

func TestHandleExecuteTrade_ValidationErrorVerbatim(t *testing.T) {
	backend := &fakeCaller{}
	h := newTestHandlers(t, backend)

	result, err := h.HandleExecuteTrade(context.Background(), makeRequest(map[string]any{
		"action": "buy",
		"token":  "SOL",
		"quote":  "AIUSD",
		"amount": "10",
		"chain":  "solana",
	}))
	require.NoError(t, err)
	require.True(t, result.IsError)

	// The builder's remediation text reaches the agent untouched.
	text := resultText(t, result)
	assert.Contains(t, text, `{action: "buy", base: "USDC", quote: "AIUSD", amount: "10", chain: "solana"}`)
	assert.Empty(t, backend.calls, "invalid trades never reach the backend")
}

func TestHandleExecuteTrade_BackendFailureJournaledAsFailed(t *testing.T) {
	backend := &fakeCaller{err: errors.New("backend unavailable (503)")}
	h := newTestHandlers(t, backend)

	result, err := h.HandleExecuteTrade(context.Background(), makeRequest(map[string]any{
		"action": "sell",
		"token":  "SOL",
		"amount": "all",
		"chain":  "solana",
	}))
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "backend unavailable")

	entries, jerr := h.journal.Recent(context.Background(), 1)
	require.NoError(t, jerr)
	require.Len(t, entries, 1)
	assert.Equal(t, "failed", entries[0].Status)
	assert.Equal(t, "Sell all SOL for USDC on solana", entries[0].Summary)
}

func TestHandleExecuteTrade_JournalsSubmitted(t *testing.T) {
	backend := &fakeCaller{text: `{}`}
	h := newTestHandlers(t, backend)

	_, err := h.HandleExecuteTrade(context.Background(), makeRequest(map[string]any{
		"action": "buy",
		"token":  "ETH",
		"amount": "0.5",
		"chain":  "ethereum",
	}))
	require.NoError(t, err)

	entries, jerr := h.journal.Recent(context.Background(), 1)
	require.NoError(t, jerr)
	require.Len(t, entries, 1)
	assert.Equal(t, "submitted", entries[0].Status)
	assert.Equal(t, "USDC", entries[0].Quote, "default quote is journaled explicitly")
}

// ============================================================
// preview_trade
// ============================================================

func TestHandlePreviewTrade_DoesNotSubmit(t *testing.T) {
	backend := &fakeCaller{}
	h := newTestHandlers(t, backend)

	result, err := h.HandlePreviewTrade(context.Background(), makeRequest(map[string]any{
		"action": "buy",
		"token":  "SOL",
		"amount": "100",
		"chain":  "solana",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Buy SOL with 100 USDC on solana")
	assert.Contains(t, text, "<intent><type>IMMEDIATE</type>")
	assert.Empty(t, backend.calls)

	entries, jerr := h.journal.Recent(context.Background(), 10)
	require.NoError(t, jerr)
	assert.Empty(t, entries, "previews are not journaled")
}

func TestHandlePreviewTrade_UnknownChain(t *testing.T) {
	h := newTestHandlers(t, &fakeCaller{})

	result, err := h.HandlePreviewTrade(context.Background(), makeRequest(map[string]any{
		"action": "buy",
		"token":  "ETH",
		"amount": "100",
		"chain":  "nosuchchain",
	}))
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "solana, ethereum, eth, base, arbitrum, arb, bsc, polygon, matic")
}

// ============================================================
// get_balances / get_positions
// ============================================================

func TestHandleGetBalances_Formatted(t *testing.T) {
	backend := &fakeCaller{text: `{"balances":[
		{"token":"AIUSD","amount":"1250.50","usdValue":"1250.50","staked":"1000"},
		{"token":"SOL","amount":"3.2","usdValue":"612.80","chain":"solana"}
	]}`}
	h := newTestHandlers(t, backend)

	result, err := h.HandleGetBalances(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "AIUSD: 1250.50")
	assert.Contains(t, text, "[staked: 1000]")
	assert.Contains(t, text, "SOL: 3.2")
	assert.Contains(t, text, "on solana")
}

func TestHandleGetBalances_ChainFilterResolved(t *testing.T) {
	backend := &fakeCaller{text: `[]`}
	h := newTestHandlers(t, backend)

	result, err := h.HandleGetBalances(context.Background(), makeRequest(map[string]any{"chain": "eth"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "eip155:1", backend.calls[0].args["chain_id"])
}

func TestHandleGetBalances_UnparseablePassthrough(t *testing.T) {
	backend := &fakeCaller{text: "maintenance window, try later"}
	h := newTestHandlers(t, backend)

	result, err := h.HandleGetBalances(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "maintenance window, try later", resultText(t, result))
}

func TestHandleGetPositions_BackendError(t *testing.T) {
	backend := &fakeCaller{err: errors.New("session expired")}
	h := newTestHandlers(t, backend)

	result, err := h.HandleGetPositions(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "session expired")
}

// ============================================================
// stake / unstake / withdraw
// ============================================================

func TestHandleStake(t *testing.T) {
	backend := &fakeCaller{text: `{"staked":"250","total_staked":"1250"}`}
	h := newTestHandlers(t, backend)

	result, err := h.HandleStake(context.Background(), makeRequest(map[string]any{"amount": "250"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	assert.Equal(t, "stake", backend.calls[0].name)
	assert.Equal(t, "250", backend.calls[0].args["amount"])
	assert.Contains(t, resultText(t, result), "Staked 250 AIUSD")
}

func TestHandleStake_MissingAmount(t *testing.T) {
	h := newTestHandlers(t, &fakeCaller{})
	result, err := h.HandleStake(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "amount is required")
}

func TestHandleUnstake(t *testing.T) {
	backend := &fakeCaller{text: `{}`}
	h := newTestHandlers(t, backend)

	result, err := h.HandleUnstake(context.Background(), makeRequest(map[string]any{"amount": "all"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "unstake", backend.calls[0].name)
	assert.Equal(t, "all", backend.calls[0].args["amount"])
}

func TestHandleWithdraw_ResolvesTokenAndChain(t *testing.T) {
	backend := &fakeCaller{text: `{"tx":"0xabc"}`}
	h := newTestHandlers(t, backend)

	result, err := h.HandleWithdraw(context.Background(), makeRequest(map[string]any{
		"token":      "usdc",
		"amount":     "50",
		"to_address": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		"chain":      "ethereum",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	args := backend.calls[0].args
	assert.Equal(t, "withdraw", backend.calls[0].name)
	assert.Equal(t, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", args["token"])
	assert.Equal(t, "eip155:1", args["chain_id"])
}

func TestHandleWithdraw_RejectsBadAddress(t *testing.T) {
	backend := &fakeCaller{}
	h := newTestHandlers(t, backend)

	tests := []struct {
		name  string
		chain string
		addr  string
	}{
		{"short hex on ethereum", "ethereum", "0x1234"},
		{"solana address on ethereum", "ethereum", "So11111111111111111111111111111111111111112"},
		{"hex address on solana", "solana", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleWithdraw(context.Background(), makeRequest(map[string]any{
				"token":      "USDC",
				"amount":     "5",
				"to_address": tt.addr,
				"chain":      tt.chain,
			}))
			require.NoError(t, err)
			require.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), "not a valid address")
		})
	}
	assert.Empty(t, backend.calls)
}

// ============================================================
// trade_history
// ============================================================

func TestHandleTradeHistory(t *testing.T) {
	backend := &fakeCaller{text: `{}`}
	h := newTestHandlers(t, backend)

	for _, amount := range []string{"1", "2", "3"} {
		_, err := h.HandleExecuteTrade(context.Background(), makeRequest(map[string]any{
			"action": "buy",
			"token":  "SOL",
			"amount": amount,
			"chain":  "solana",
		}))
		require.NoError(t, err)
	}

	result, err := h.HandleTradeHistory(context.Background(), makeRequest(map[string]any{"limit": float64(2)}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Last 2 trade(s)")
	assert.Equal(t, 2, strings.Count(text, "(submitted)"))
}

func TestHandleTradeHistory_Empty(t *testing.T) {
	h := newTestHandlers(t, &fakeCaller{})
	result, err := h.HandleTradeHistory(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "No trades recorded yet")
}

func TestHandleTradeHistory_NoJournal(t *testing.T) {
	h := NewHandlers(&fakeCaller{}, nil, nil)
	result, err := h.HandleTradeHistory(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	require.True(t, result.IsError)
}
