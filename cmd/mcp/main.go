// Meridian MCP server - exposes Meridian trading operations as MCP tools for LLM agents.
package main

import (
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mbecker/meridian-mcp/internal/auth"
	"github.com/mbecker/meridian-mcp/internal/config"
	"github.com/mbecker/meridian-mcp/internal/journal"
	"github.com/mbecker/meridian-mcp/internal/logging"
	"github.com/mbecker/meridian-mcp/internal/mcpserver"
	"github.com/mbecker/meridian-mcp/internal/meridian"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	authenticator, err := auth.New(cfg.APIURL, cfg.PrivateKey, auth.NewCache(cfg.CredentialsPath), cfg.RequestTimeout)
	if err != nil {
		logger.Error("failed to initialize wallet auth", "error", err)
		os.Exit(1)
	}

	jnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		// Trading works without history; run degraded rather than refuse to start.
		logger.Warn("trade journal unavailable", "error", err, "path", cfg.JournalPath)
		jnl = nil
	} else {
		defer jnl.Close()
	}

	client := meridian.NewClient(cfg.APIURL, authenticator, cfg.RequestTimeout)

	logger.Info("starting meridian mcp server",
		"api_url", cfg.APIURL,
		"wallet", authenticator.Address(),
	)

	s := mcpserver.New(client, jnl, logger)
	if err := server.ServeStdio(s); err != nil {
		logger.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
