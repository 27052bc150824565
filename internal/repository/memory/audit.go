package memory

import (
	"context"
	"sync"

	"github.com/iliyamo/vault-access/internal/model"
)

// AuditLog is an append-only in-memory audit sink.
type AuditLog struct {
	mu     sync.Mutex
	events []model.AuditEvent
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (l *AuditLog) Record(_ context.Context, ev model.AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

// List returns up to limit events, newest first.  limit <= 0 returns all.
func (l *AuditLog) List(_ context.Context, limit int) ([]model.AuditEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.events)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.AuditEvent, 0, n)
	for i := len(l.events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.events[i])
	}
	return out, nil
}

// Events returns a snapshot of all recorded events in insertion order.
func (l *AuditLog) Events() []model.AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.AuditEvent, len(l.events))
	copy(out, l.events)
	return out
}
