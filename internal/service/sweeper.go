package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SessionSweeper periodically deletes sessions that expired more than
// retention ago.  Session validity never depends on it.
type SessionSweeper struct {
	cron      *cron.Cron
	sessions  SessionStore
	retention time.Duration
	log       *zap.Logger
	now       func() time.Time
}

// NewSessionSweeper creates a sweeper.  It does nothing until Start.
func NewSessionSweeper(sessions SessionStore, retention time.Duration, log *zap.Logger) *SessionSweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionSweeper{
		cron:      cron.New(),
		sessions:  sessions,
		retention: retention,
		log:       log,
		now:       time.Now,
	}
}

// Start schedules Sweep with a cron expression such as "@every 5m".
func (s *SessionSweeper) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.log.Warn("session sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("session sweeper started", zap.String("schedule", schedule), zap.Duration("retention", s.retention))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *SessionSweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep deletes sessions that expired, or were revoked after being issued,
// more than retention ago and returns how many were removed.
func (s *SessionSweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.retention)
	n, err := s.sessions.PurgeEndedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("purged stale sessions", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}
