package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/iliyamo/vault-access/internal/model"
)

// AuditRepo is the append-only audit_events table.  It never updates or
// deletes a row.
type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Record inserts ev with its metadata encoded as JSON.
func (r *AuditRepo) Record(ctx context.Context, ev model.AuditEvent) error {
	var meta []byte
	if len(ev.Metadata) > 0 {
		var err error
		if meta, err = json.Marshal(ev.Metadata); err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO audit_events
		(id, actor_id, action, vault_item_id, target_user_id, metadata, occurred_at) VALUES (?,?,?,?,?,?,?)`,
		ev.ID, ev.ActorID, ev.Action, nullString(ev.VaultItemID), nullString(ev.TargetUserID), meta, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// List returns up to limit events, newest first.
func (r *AuditRepo) List(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id, actor_id, action, vault_item_id, target_user_id, metadata, occurred_at
		FROM audit_events ORDER BY occurred_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	out := make([]model.AuditEvent, 0)
	for rows.Next() {
		var (
			ev           model.AuditEvent
			vaultItemID  sql.NullString
			targetUserID sql.NullString
			meta         []byte
		)
		if err := rows.Scan(&ev.ID, &ev.ActorID, &ev.Action, &vaultItemID, &targetUserID, &meta, &ev.Timestamp); err != nil {
			return nil, err
		}
		ev.VaultItemID = stringPtr(vaultItemID)
		ev.TargetUserID = stringPtr(targetUserID)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &ev.Metadata); err != nil {
				return nil, fmt.Errorf("decode audit metadata %s: %w", ev.ID, err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
