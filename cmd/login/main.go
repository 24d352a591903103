// meridian-login performs the wallet-signature login once and writes the
// credential cache, so the MCP server starts with a warm token.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mbecker/meridian-mcp/internal/auth"
	"github.com/mbecker/meridian-mcp/internal/config"
	"github.com/mbecker/meridian-mcp/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	authenticator, err := auth.New(cfg.APIURL, cfg.PrivateKey, auth.NewCache(cfg.CredentialsPath), cfg.RequestTimeout)
	if err != nil {
		logger.Error("failed to initialize wallet auth", "error", err)
		os.Exit(1)
	}

	cred, err := authenticator.Login(context.Background())
	if err != nil {
		logger.Error("login failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Logged in as %s\n", cred.Address)
	fmt.Printf("Credential cached at %s (expires %s)\n", cfg.CredentialsPath, cred.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
}
