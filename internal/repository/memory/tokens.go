package memory

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/vault-access/internal/repository"
)

type refreshToken struct {
	userID  string
	expires time.Time
	revoked bool
}

// RefreshTokens is an in-memory refresh token store keyed by token hash.
type RefreshTokens struct {
	mu     sync.Mutex
	tokens map[string]refreshToken
}

func NewRefreshTokens() *RefreshTokens {
	return &RefreshTokens{tokens: make(map[string]refreshToken)}
}

func (s *RefreshTokens) StoreRefresh(_ context.Context, userID, tokenHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = refreshToken{userID: userID, expires: exp}
	return nil
}

func (s *RefreshTokens) ValidateRefresh(_ context.Context, tokenHash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	if !ok || t.revoked || time.Now().UTC().After(t.expires) {
		return "", repository.ErrNotFound
	}
	return t.userID, nil
}

func (s *RefreshTokens) RevokeByHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	if !ok || t.revoked {
		return repository.ErrConflict
	}
	t.revoked = true
	s.tokens[tokenHash] = t
	return nil
}
