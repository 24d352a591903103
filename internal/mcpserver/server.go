package mcpserver

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mbecker/meridian-mcp/internal/journal"
	"github.com/mbecker/meridian-mcp/internal/meridian"
)

// New creates a configured MCP server with all Meridian tools registered.
// jnl may be nil, which disables the trade_history tool's backing store.
func New(client meridian.ToolCaller, jnl *journal.Journal, logger *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("meridian", "1.0.0")
	h := NewHandlers(client, jnl, logger)

	s.AddTool(ToolExecuteTrade, h.HandleExecuteTrade)
	s.AddTool(ToolPreviewTrade, h.HandlePreviewTrade)
	s.AddTool(ToolGetBalances, h.HandleGetBalances)
	s.AddTool(ToolGetPositions, h.HandleGetPositions)
	s.AddTool(ToolStake, h.HandleStake)
	s.AddTool(ToolUnstake, h.HandleUnstake)
	s.AddTool(ToolWithdraw, h.HandleWithdraw)
	s.AddTool(ToolTradeHistory, h.HandleTradeHistory)

	return s
}
