package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/vault-access/internal/model"
)

const accessRequestColumns = `id, employee_id, admin_id, vault_item_id, reason, access_type, status,
	created_at, decided_at, decider_id`

// AccessRequestRepo persists access requests.  Status transitions are
// conditional updates so that concurrent decisions cannot both succeed.
type AccessRequestRepo struct{ DB *sql.DB }

func NewAccessRequestRepo(db *sql.DB) *AccessRequestRepo { return &AccessRequestRepo{DB: db} }

func (r *AccessRequestRepo) Create(ctx context.Context, req model.AccessRequest) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO access_requests
		(id, employee_id, admin_id, vault_item_id, reason, access_type, status, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		req.ID, req.EmployeeID, req.AdminID, req.VaultItemID, req.Reason,
		string(req.AccessType), string(req.Status), req.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert access request: %w", err)
	}
	return nil
}

func (r *AccessRequestRepo) GetByID(ctx context.Context, id string) (model.AccessRequest, error) {
	return scanAccessRequest(r.DB.QueryRowContext(ctx,
		"SELECT "+accessRequestColumns+" FROM access_requests WHERE id=? LIMIT 1", id))
}

// Decide moves a pending request to status.  It returns ErrConflict when
// the request exists but is no longer pending.
func (r *AccessRequestRepo) Decide(ctx context.Context, id string, status model.RequestStatus, deciderID string, at time.Time) (model.AccessRequest, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.AccessRequest{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"UPDATE access_requests SET status=?, decided_at=?, decider_id=? WHERE id=? AND status='pending'",
		string(status), at, deciderID, id)
	if err != nil {
		return model.AccessRequest{}, fmt.Errorf("update access request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.AccessRequest{}, err
	}

	req, err := scanAccessRequest(tx.QueryRowContext(ctx,
		"SELECT "+accessRequestColumns+" FROM access_requests WHERE id=? LIMIT 1", id))
	if err != nil {
		return model.AccessRequest{}, err
	}
	if n == 0 {
		return model.AccessRequest{}, ErrConflict
	}
	if err := tx.Commit(); err != nil {
		return model.AccessRequest{}, err
	}
	return req, nil
}

// ListPending returns pending requests, oldest first.
func (r *AccessRequestRepo) ListPending(ctx context.Context) ([]model.AccessRequest, error) {
	return r.list(ctx, "WHERE status='pending' ORDER BY created_at ASC")
}

// ListForEmployee returns every request of employeeID, newest first.
func (r *AccessRequestRepo) ListForEmployee(ctx context.Context, employeeID string) ([]model.AccessRequest, error) {
	return r.list(ctx, "WHERE employee_id=? ORDER BY created_at DESC", employeeID)
}

// FindApproved returns the most recent approved request of employeeID on
// vaultItemID.
func (r *AccessRequestRepo) FindApproved(ctx context.Context, employeeID, vaultItemID string) (model.AccessRequest, error) {
	return scanAccessRequest(r.DB.QueryRowContext(ctx,
		"SELECT "+accessRequestColumns+` FROM access_requests
		WHERE employee_id=? AND vault_item_id=? AND status='approved'
		ORDER BY created_at DESC LIMIT 1`, employeeID, vaultItemID))
}

func (r *AccessRequestRepo) CountWithStatus(ctx context.Context, employeeID, vaultItemID string, statuses ...model.RequestStatus) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	args := []any{employeeID, vaultItemID}
	for _, s := range statuses {
		args = append(args, string(s))
	}
	q := `SELECT COUNT(*) FROM access_requests WHERE employee_id=? AND vault_item_id=? AND status IN (` +
		strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",") + `)`
	var n int
	if err := r.DB.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count access requests: %w", err)
	}
	return n, nil
}

func (r *AccessRequestRepo) list(ctx context.Context, where string, args ...any) ([]model.AccessRequest, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+accessRequestColumns+" FROM access_requests "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list access requests: %w", err)
	}
	defer rows.Close()

	out := make([]model.AccessRequest, 0)
	for rows.Next() {
		req, err := scanAccessRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func scanAccessRequest(s rowScanner) (model.AccessRequest, error) {
	var (
		req        model.AccessRequest
		accessType string
		status     string
		decidedAt  sql.NullTime
		deciderID  sql.NullString
	)
	err := s.Scan(&req.ID, &req.EmployeeID, &req.AdminID, &req.VaultItemID, &req.Reason,
		&accessType, &status, &req.CreatedAt, &decidedAt, &deciderID)
	if err != nil {
		return model.AccessRequest{}, notFound(err)
	}
	req.AccessType = model.AccessType(accessType)
	req.Status = model.RequestStatus(status)
	if decidedAt.Valid {
		t := decidedAt.Time
		req.DecidedAt = &t
	}
	req.DeciderID = stringPtr(deciderID)
	return req, nil
}
