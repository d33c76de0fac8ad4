// Package storage implements durable client-side state as a small JSON file,
// the console's analog of a browser's durable storage: fixed keys, replaced
// wholesale, purged on logout.
package storage

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"console/config"
	"console/internal/domain/entity"
	"console/internal/errors"

	"github.com/golang-jwt/jwt/v5"
)

// TokenFile persists the session token set at a fixed path. It also serves
// as the transport's token provider, so the access token read by every
// authenticated call is only ever replaced wholesale, never mutated.
type TokenFile struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	cached entity.TokenSet
	loaded bool
}

// NewTokenFile creates the store and primes the in-memory copy from disk, so
// a token persisted before a restart is usable immediately.
func NewTokenFile(cfg *config.Config, logger *slog.Logger) (*TokenFile, error) {
	store := &TokenFile{
		path:   cfg.Storage.TokenPath,
		logger: logger,
	}

	if err := os.MkdirAll(filepath.Dir(store.path), 0o700); err != nil {
		return nil, errors.Wrap(err, "create token storage directory")
	}

	if _, _, err := store.Load(); err != nil {
		// A corrupt token file is not fatal; the merchant logs in again.
		logger.Warn("Discarding unreadable token file", slog.Any("error", err))
		_ = store.Clear()
	}

	return store, nil
}

// Save replaces the persisted token set. When the access token is a JWT and
// no expiry was supplied, the exp claim fills it in.
func (s *TokenFile) Save(tokens entity.TokenSet) error {
	if tokens.ExpiresAt.IsZero() {
		tokens.ExpiresAt = jwtExpiry(tokens.AccessToken)
	}

	encoded, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode token set")
	}

	// Write-then-rename so a crash never leaves a half-written credential file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o600); err != nil {
		return errors.Wrap(err, "write token file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "replace token file")
	}

	s.mu.Lock()
	s.cached = tokens
	s.loaded = true
	s.mu.Unlock()

	return nil
}

// Load returns the persisted token set, reading from disk on first use.
func (s *TokenFile) Load() (entity.TokenSet, bool, error) {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()

		return s.cached, s.cached.AccessToken != "", nil
	}
	s.mu.RUnlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return entity.TokenSet{}, false, nil
		}

		return entity.TokenSet{}, false, errors.Wrap(err, "read token file")
	}

	var tokens entity.TokenSet
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return entity.TokenSet{}, false, errors.Wrap(err, "decode token file")
	}

	s.mu.Lock()
	s.cached = tokens
	s.loaded = true
	s.mu.Unlock()

	return tokens, tokens.AccessToken != "", nil
}

// Clear removes the persisted token set. Safe to call when nothing is stored.
func (s *TokenFile) Clear() error {
	s.mu.Lock()
	s.cached = entity.TokenSet{}
	s.loaded = true
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove token file")
	}

	return nil
}

// Token implements gateway.TokenProvider for the transport layer.
func (s *TokenFile) Token() (string, bool) {
	tokens, ok, err := s.Load()
	if err != nil || !ok {
		return "", false
	}

	return tokens.AccessToken, true
}

// jwtExpiry extracts the exp claim from a JWT access token without verifying
// the signature; verification is the backend's job, this is only metadata.
func jwtExpiry(accessToken string) (expiry time.Time) {
	if accessToken == "" {
		return expiry
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return expiry
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return expiry
	}

	return exp.Time
}
