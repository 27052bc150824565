package memory

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/vault-access/internal/model"
	"github.com/iliyamo/vault-access/internal/repository"
)

// Sessions is an in-memory privileged session store.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]model.Session)}
}

func (s *Sessions) Create(_ context.Context, sess model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return repository.ErrDuplicate
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Sessions) GetByID(_ context.Context, id string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return model.Session{}, repository.ErrNotFound
	}
	return sess, nil
}

func (s *Sessions) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	sess.Revoked = true
	s.sessions[id] = sess
	return nil
}

func (s *Sessions) PurgeEndedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if sess.ExpiresAt.Before(cutoff) || (sess.Revoked && sess.IssuedAt.Before(cutoff)) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}
