package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/vault-access/internal/model"
)

// SessionRepo persists privileged vault sessions.  Validity is never
// decided here; callers compare ExpiresAt with the current time.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

func (r *SessionRepo) Create(ctx context.Context, s model.Session) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO vault_sessions
		(id, user_id, vault_item_id, scope, issued_at, expires_at, revoked) VALUES (?,?,?,?,?,?,?)`,
		s.ID, s.UserID, s.VaultItemID, string(s.Scope), s.IssuedAt, s.ExpiresAt, s.Revoked)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepo) GetByID(ctx context.Context, id string) (model.Session, error) {
	var (
		s     model.Session
		scope string
	)
	err := r.DB.QueryRowContext(ctx, `SELECT id, user_id, vault_item_id, scope, issued_at, expires_at, revoked
		FROM vault_sessions WHERE id=? LIMIT 1`, id).
		Scan(&s.ID, &s.UserID, &s.VaultItemID, &scope, &s.IssuedAt, &s.ExpiresAt, &s.Revoked)
	if err != nil {
		return model.Session{}, notFound(err)
	}
	s.Scope = model.AccessType(scope)
	return s, nil
}

// Revoke marks the session revoked.  Revoking twice is not an error.
func (r *SessionRepo) Revoke(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE vault_sessions SET revoked=1 WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports 0 affected rows when revoked was already 1.
		var exists int
		if err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM vault_sessions WHERE id=? LIMIT 1", id).Scan(&exists); err != nil {
			return notFound(err)
		}
	}
	return nil
}

// PurgeEndedBefore deletes sessions that expired before cutoff and revoked
// sessions issued before it.
func (r *SessionRepo) PurgeEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM vault_sessions WHERE expires_at < ? OR (revoked = 1 AND issued_at < ?)", cutoff, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}
