package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Credential is the cached bearer credential issued by the backend after a
// successful wallet login.
type Credential struct {
	Token     string    `json:"token"`
	Address   string    `json:"address"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Valid reports whether the credential can still be used. Credentials within
// a minute of expiry count as expired so an in-flight request cannot straddle
// the boundary.
func (c *Credential) Valid(now time.Time) bool {
	return c != nil && c.Token != "" && now.Add(time.Minute).Before(c.ExpiresAt)
}

// Cache persists the credential as a JSON file with owner-only permissions.
type Cache struct {
	path string
}

func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Load reads the cached credential. A missing file is not an error; it
// returns (nil, nil) so callers fall through to a fresh login.
func (c *Cache) Load() (*Credential, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", c.path, err)
	}
	return &cred, nil
}

// Store writes the credential, creating the parent directory if needed.
func (c *Cache) Store(cred *Credential) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Clear removes the cached credential. Clearing an absent cache is a no-op.
func (c *Cache) Clear() error {
	err := os.Remove(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
