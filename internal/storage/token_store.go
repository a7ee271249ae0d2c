package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"location-api/internal/repository"
)

// TokenKey is the well-known key holding the auth token.
const TokenKey = "authToken"

// TokenStore persists the auth token obtained from OTP login.
type TokenStore struct {
	kv repository.KeyValue
}

// NewTokenStore creates a token store over kv, which may be nil.
func NewTokenStore(kv repository.KeyValue) *TokenStore {
	return &TokenStore{kv: kv}
}

// Load returns the stored token.
func (s *TokenStore) Load(ctx context.Context) (string, bool) {
	if s == nil || s.kv == nil {
		return "", false
	}
	tok, err := s.kv.Get(ctx, TokenKey)
	if err != nil || strings.TrimSpace(tok) == "" {
		return "", false
	}
	return tok, true
}

// Save stores token. A blank token clears the key.
func (s *TokenStore) Save(ctx context.Context, token string) error {
	if s == nil || s.kv == nil {
		return nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return s.Clear(ctx)
	}
	if err := s.kv.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("storage: save token: %w", err)
	}
	return nil
}

// Clear removes the stored token.
func (s *TokenStore) Clear(ctx context.Context) error {
	if s == nil || s.kv == nil {
		return nil
	}
	if err := s.kv.Delete(ctx, TokenKey); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("storage: clear token: %w", err)
	}
	return nil
}
