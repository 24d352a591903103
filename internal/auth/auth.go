// Package auth obtains and caches the bearer credential for the Meridian
// backend. Login is a wallet-signature exchange: the backend issues a
// challenge, the client signs it with the configured private key, and the
// backend returns a time-limited bearer token.
package auth

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrInvalidPrivateKey = errors.New("auth: invalid private key")
	ErrLoginRejected     = errors.New("auth: login rejected by backend")
)

// Authenticator implements the client's TokenSource: it serves the cached
// credential while valid and re-runs the login flow when it is not.
type Authenticator struct {
	apiURL     string
	key        *ecdsa.PrivateKey
	address    string
	cache      *Cache
	httpClient *http.Client

	mu  sync.Mutex
	cur *Credential

	now func() time.Time
}

// New creates an Authenticator from a hex private key (0x prefix optional).
func New(apiURL, privateKeyHex string, cache *Cache, timeout time.Duration) (*Authenticator, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}

	return &Authenticator{
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		key:        key,
		address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		cache:      cache,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}, nil
}

// Address returns the wallet address derived from the private key.
func (a *Authenticator) Address() string {
	return a.address
}

// Token returns a valid bearer token, logging in if the cached credential is
// missing or about to expire. Safe for concurrent use.
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cur.Valid(a.now()) {
		return a.cur.Token, nil
	}

	if a.cur == nil && a.cache != nil {
		if cred, err := a.cache.Load(); err == nil && cred.Valid(a.now()) && cred.Address == a.address {
			a.cur = cred
			return cred.Token, nil
		}
	}

	cred, err := a.login(ctx)
	if err != nil {
		return "", err
	}
	a.cur = cred
	return cred.Token, nil
}

// Login forces a fresh wallet-signature login and updates the cache.
func (a *Authenticator) Login(ctx context.Context) (*Credential, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cred, err := a.login(ctx)
	if err != nil {
		return nil, err
	}
	a.cur = cred
	return cred, nil
}

// login must be called with a.mu held.
func (a *Authenticator) login(ctx context.Context) (*Credential, error) {
	var challengeResp struct {
		Challenge string `json:"challenge"`
	}
	err := a.post(ctx, "/v1/auth/challenge", map[string]string{"address": a.address}, &challengeResp)
	if err != nil {
		return nil, fmt.Errorf("auth: request challenge: %w", err)
	}
	if challengeResp.Challenge == "" {
		return nil, fmt.Errorf("%w: empty challenge", ErrLoginRejected)
	}

	// EIP-191 personal-message signing, as the backend verifies it.
	sig, err := crypto.Sign(accounts.TextHash([]byte(challengeResp.Challenge)), a.key)
	if err != nil {
		return nil, fmt.Errorf("auth: sign challenge: %w", err)
	}

	var verifyResp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	err = a.post(ctx, "/v1/auth/verify", map[string]string{
		"address":   a.address,
		"signature": hexutil.Encode(sig),
	}, &verifyResp)
	if err != nil {
		return nil, fmt.Errorf("auth: verify signature: %w", err)
	}
	if verifyResp.Token == "" {
		return nil, fmt.Errorf("%w: no token in verify response", ErrLoginRejected)
	}

	cred := &Credential{
		Token:     verifyResp.Token,
		Address:   a.address,
		ExpiresAt: verifyResp.ExpiresAt,
	}
	if a.cache != nil {
		if err := a.cache.Store(cred); err != nil {
			// A broken cache should not block trading; the token still works.
			return cred, nil
		}
	}
	return cred, nil
}

func (a *Authenticator) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
