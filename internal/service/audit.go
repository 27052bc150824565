package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/vault-access/internal/model"
)

// Auditor stamps and forwards audit events to a sink.  Emission is best
// effort: a failing sink is logged and never fails the operation that
// produced the event.
type Auditor struct {
	sink    AuditSink
	log     *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewAuditor returns an Auditor writing to sink.  A nil sink discards
// events.  timeout bounds each Record call.
func NewAuditor(sink AuditSink, log *zap.Logger, timeout time.Duration) *Auditor {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Auditor{sink: sink, log: log, timeout: timeout, now: time.Now}
}

// Emit assigns an id and timestamp to ev and records it.  The caller's
// cancellation does not abort the write; only the audit timeout does.
func (a *Auditor) Emit(ctx context.Context, ev model.AuditEvent) {
	if a == nil || a.sink == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = a.now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()
	if err := a.sink.Record(ctx, ev); err != nil {
		a.log.Warn("audit record failed",
			zap.String("action", ev.Action),
			zap.String("actor_id", ev.ActorID),
			zap.String("event_id", ev.ID),
			zap.Error(err),
		)
	}
}

// FanoutSink records every event to each of its sinks.  All sinks are
// attempted; their errors are joined.
type FanoutSink []AuditSink

func (f FanoutSink) Record(ctx context.Context, ev model.AuditEvent) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
