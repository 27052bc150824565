package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/vault-access/internal/model"
)

// VaultItemRepo reads the vault item catalogue.
type VaultItemRepo struct{ DB *sql.DB }

func NewVaultItemRepo(db *sql.DB) *VaultItemRepo { return &VaultItemRepo{DB: db} }

// Create inserts item.
func (r *VaultItemRepo) Create(ctx context.Context, item model.VaultItem) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO vault_items (id, title, created_at) VALUES (?,?,?)",
		item.ID, item.Title, item.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert vault item: %w", err)
	}
	return nil
}

func (r *VaultItemRepo) GetByID(ctx context.Context, id string) (model.VaultItem, error) {
	var it model.VaultItem
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, title, created_at FROM vault_items WHERE id=? LIMIT 1", id).
		Scan(&it.ID, &it.Title, &it.CreatedAt)
	if err != nil {
		return model.VaultItem{}, notFound(err)
	}
	return it, nil
}

// List returns every vault item ordered by title.
func (r *VaultItemRepo) List(ctx context.Context) ([]model.VaultItem, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, title, created_at FROM vault_items ORDER BY title")
	if err != nil {
		return nil, fmt.Errorf("list vault items: %w", err)
	}
	defer rows.Close()

	out := make([]model.VaultItem, 0)
	for rows.Next() {
		var it model.VaultItem
		if err := rows.Scan(&it.ID, &it.Title, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// VaultRecordRepo stores the investment records of each vault item.
// Amounts are DECIMAL(18,2) columns scanned through shopspring/decimal.
type VaultRecordRepo struct{ DB *sql.DB }

func NewVaultRecordRepo(db *sql.DB) *VaultRecordRepo { return &VaultRecordRepo{DB: db} }

// List returns the records of vaultItemID in insertion order.
func (r *VaultRecordRepo) List(ctx context.Context, vaultItemID string) ([]model.VaultRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, vault_item_id, investment_name, invested_amount,
		investment_date, instrument_type, remarks, created_at
		FROM vault_records WHERE vault_item_id=? ORDER BY created_at, id`, vaultItemID)
	if err != nil {
		return nil, fmt.Errorf("list vault records: %w", err)
	}
	defer rows.Close()

	out := make([]model.VaultRecord, 0)
	for rows.Next() {
		var (
			rec  model.VaultRecord
			date time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.VaultItemID, &rec.InvestmentName, &rec.InvestedAmount,
			&date, &rec.InstrumentType, &rec.Remarks, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.InvestmentDate = date.Format(model.InvestmentDateLayout)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Create validates p and inserts it as a new record of vaultItemID.
func (r *VaultRecordRepo) Create(ctx context.Context, vaultItemID string, p model.RecordPayload) (model.VaultRecord, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return model.VaultRecord{}, err
	}
	rec := model.VaultRecord{
		ID:             uuid.NewString(),
		VaultItemID:    vaultItemID,
		InvestmentName: p.InvestmentName,
		InvestedAmount: p.InvestedAmount,
		InvestmentDate: p.InvestmentDate,
		InstrumentType: p.InstrumentType,
		Remarks:        p.Remarks,
		CreatedAt:      time.Now().UTC(),
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO vault_records
		(id, vault_item_id, investment_name, invested_amount, investment_date, instrument_type, remarks, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		rec.ID, rec.VaultItemID, rec.InvestmentName, rec.InvestedAmount,
		rec.InvestmentDate, rec.InstrumentType, rec.Remarks, rec.CreatedAt)
	if err != nil {
		return model.VaultRecord{}, fmt.Errorf("insert vault record: %w", err)
	}
	return rec, nil
}
