package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mbecker/meridian-mcp/internal/intent"
	"github.com/mbecker/meridian-mcp/internal/journal"
	"github.com/mbecker/meridian-mcp/internal/meridian"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client  meridian.ToolCaller
	journal *journal.Journal // optional; nil disables trade_history
	logger  *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client meridian.ToolCaller, jnl *journal.Journal, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{client: client, journal: jnl, logger: logger}
}

// tradeParamsFromRequest maps tool arguments onto builder input. Defaults and
// validation live in the builder, not here.
func tradeParamsFromRequest(req mcp.CallToolRequest) intent.TradeParams {
	params := intent.TradeParams{
		Action: intent.Action(req.GetString("action", "")),
		Base:   req.GetString("token", ""),
		Quote:  req.GetString("quote", ""),
		Amount: req.GetString("amount", ""),
		Chain:  req.GetString("chain", ""),
	}
	args := req.GetArguments()
	if v, ok := args["take_profit"].(float64); ok {
		params.TakeProfit = &v
	}
	if v, ok := args["stop_loss"].(float64); ok {
		params.StopLoss = &v
	}
	return params
}

// HandleExecuteTrade builds the intent XML and submits it to the backend.
func (h *Handlers) HandleExecuteTrade(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := tradeParamsFromRequest(req)

	// Builder messages are written for end users; pass them through verbatim.
	built, err := intent.Build(params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	response, err := h.client.CallTool(ctx, "execute_intent", map[string]any{"intent": built.XML})
	status := "submitted"
	if err != nil {
		status = "failed"
	}
	h.record(ctx, params, built.Summary, status)

	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Trade not executed: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(built.Summary)
	sb.WriteString("\n\nBackend response:\n")
	sb.WriteString(formatMaybeJSON(response))
	return mcp.NewToolResultText(sb.String()), nil
}

// HandlePreviewTrade builds the intent without submitting it.
func (h *Handlers) HandlePreviewTrade(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	built, err := intent.Build(tradeParamsFromRequest(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"%s\n\nIntent payload (not submitted):\n%s", built.Summary, built.XML)), nil
}

// HandleGetBalances returns the agent's token balances.
func (h *Handlers) HandleGetBalances(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := map[string]any{}
	if chain := req.GetString("chain", ""); chain != "" {
		chainID, err := intent.ResolveChain(chain)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		args["chain_id"] = chainID
	}

	raw, err := h.client.CallTool(ctx, "get_balances", args)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get balances: %v", err)), nil
	}

	return mcp.NewToolResultText(formatBalances(raw)), nil
}

// HandleGetPositions returns open positions.
func (h *Handlers) HandleGetPositions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.CallTool(ctx, "get_positions", map[string]any{})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get positions: %v", err)), nil
	}
	return mcp.NewToolResultText(formatMaybeJSON(raw)), nil
}

// HandleStake stakes AIUSD.
func (h *Handlers) HandleStake(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	amount := req.GetString("amount", "")
	if amount == "" {
		return mcp.NewToolResultError("amount is required"), nil
	}

	raw, err := h.client.CallTool(ctx, "stake", map[string]any{"amount": amount})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Stake failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Staked %s AIUSD.\n\n%s", amount, formatMaybeJSON(raw))), nil
}

// HandleUnstake unstakes AIUSD.
func (h *Handlers) HandleUnstake(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	amount := req.GetString("amount", "")
	if amount == "" {
		return mcp.NewToolResultError("amount is required"), nil
	}

	raw, err := h.client.CallTool(ctx, "unstake", map[string]any{"amount": amount})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Unstake failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Unstaked %s AIUSD.\n\n%s", amount, formatMaybeJSON(raw))), nil
}

// HandleWithdraw sends funds to an external wallet. The destination address
// is vetted against the chain's format before anything is submitted.
func (h *Handlers) HandleWithdraw(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token := req.GetString("token", "")
	if token == "" {
		return mcp.NewToolResultError("token is required"), nil
	}
	amount := req.GetString("amount", "")
	if amount == "" {
		return mcp.NewToolResultError("amount is required"), nil
	}
	toAddress := req.GetString("to_address", "")
	if toAddress == "" {
		return mcp.NewToolResultError("to_address is required"), nil
	}

	chainID, err := intent.ResolveChain(req.GetString("chain", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !intent.ValidAddress(chainID, toAddress) {
		return mcp.NewToolResultError(fmt.Sprintf(
			"%q is not a valid address on %s; double-check the destination before withdrawing", toAddress, chainID)), nil
	}

	raw, err := h.client.CallTool(ctx, "withdraw", map[string]any{
		"token":      intent.ResolveToken(token, chainID),
		"amount":     amount,
		"to_address": toAddress,
		"chain_id":   chainID,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Withdrawal failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Withdrawal of %s %s to %s submitted.\n\n%s", amount, token, toAddress, formatMaybeJSON(raw))), nil
}

// HandleTradeHistory lists recent locally journaled trades.
func (h *Handlers) HandleTradeHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.journal == nil {
		return mcp.NewToolResultError("trade journal is not enabled"), nil
	}

	entries, err := h.journal.Recent(ctx, req.GetInt("limit", 10))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read journal: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No trades recorded yet."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Last %d trade(s):\n\n", len(entries))
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. [%s] %s (%s)\n",
			i+1, e.CreatedAt.Format("2006-01-02 15:04 MST"), e.Summary, e.Status)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// record journals a submitted trade. Journal failures are logged, never
// surfaced: losing a history row must not look like a failed trade.
func (h *Handlers) record(ctx context.Context, params intent.TradeParams, summary, status string) {
	if h.journal == nil {
		return
	}
	quote := params.Quote
	if quote == "" {
		quote = intent.DefaultQuote
	}
	err := h.journal.Record(ctx, &journal.Entry{
		Action:  string(params.Action),
		Base:    params.Base,
		Quote:   quote,
		Amount:  params.Amount,
		Chain:   params.Chain,
		Summary: summary,
		Status:  status,
	})
	if err != nil {
		h.logger.Warn("failed to journal trade", "error", err, "summary", summary)
	}
}

// --- Formatting helpers ---

type balanceInfo struct {
	Token    string
	Amount   string
	USDValue string
	Chain    string
	Staked   string
}

// formatBalances renders the backend's balance payload. The backend returns
// JSON text; anything unparseable is shown raw rather than dropped.
func formatBalances(raw string) string {
	items, ok := parseBalanceItems(raw)
	if !ok {
		return raw
	}
	if len(items) == 0 {
		return "No balances found."
	}

	var sb strings.Builder
	sb.WriteString("Balances:\n")
	for _, b := range items {
		fmt.Fprintf(&sb, "  %s: %s", b.Token, b.Amount)
		if b.USDValue != "" {
			fmt.Fprintf(&sb, " (≈ $%s)", b.USDValue)
		}
		if b.Chain != "" {
			fmt.Fprintf(&sb, " on %s", b.Chain)
		}
		if b.Staked != "" && b.Staked != "0" {
			fmt.Fprintf(&sb, " [staked: %s]", b.Staked)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func parseBalanceItems(raw string) ([]balanceInfo, bool) {
	// Try as {"balances": [...]}
	var wrapper struct {
		Balances []map[string]any `json:"balances"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapper); err == nil && wrapper.Balances != nil {
		return balancesFromMaps(wrapper.Balances), true
	}

	// Try as a direct array
	var arr []map[string]any
	if err := json.Unmarshal([]byte(raw), &arr); err == nil {
		return balancesFromMaps(arr), true
	}

	return nil, false
}

func balancesFromMaps(maps []map[string]any) []balanceInfo {
	var items []balanceInfo
	for _, m := range maps {
		items = append(items, balanceInfo{
			Token:    getString(m, "token", "symbol"),
			Amount:   getString(m, "amount", "balance", "available"),
			USDValue: getString(m, "usdValue", "usd_value"),
			Chain:    getString(m, "chain", "chainId", "chain_id"),
			Staked:   getString(m, "staked"),
		})
	}
	return items
}

// formatMaybeJSON pretty-prints raw if it is JSON, else returns it as-is.
func formatMaybeJSON(raw string) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(raw), "", "  "); err != nil {
		return raw
	}
	return pretty.String()
}

// getString extracts a string value from a map, trying multiple key names.
func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%g", f)
			}
		}
	}
	return ""
}
