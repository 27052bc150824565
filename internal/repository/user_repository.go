package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/vault-access/internal/model"
)

const userColumns = "id,username,password_hash,role,totp_secret,created_at"

// UserRepo is the MySQL user directory.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts u.  The username is normalized to lower case.
func (r *UserRepo) Create(ctx context.Context, u model.User) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, username, password_hash, role, totp_secret, created_at) VALUES (?,?,?,?,?,?)",
		u.ID, strings.ToLower(strings.TrimSpace(u.Username)), u.PasswordHash, string(u.Role), u.TOTPSecret, u.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// GetByUsername fetches a user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1",
		strings.ToLower(strings.TrimSpace(username)))
	return scanUser(row)
}

// ListByRole returns every user holding role, ordered by username.
func (r *UserRepo) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE role=? ORDER BY username", string(role))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// TOTPSecret returns the user's TOTP seed, empty when not enrolled.
func (r *UserRepo) TOTPSecret(ctx context.Context, userID string) (string, error) {
	var secret string
	err := r.DB.QueryRowContext(ctx,
		"SELECT totp_secret FROM users WHERE id=? LIMIT 1", userID).Scan(&secret)
	if err != nil {
		return "", notFound(err)
	}
	return secret, nil
}

// SetTOTPSecret replaces the user's TOTP seed.
func (r *UserRepo) SetTOTPSecret(ctx context.Context, userID, secret string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET totp_secret=? WHERE id=?", secret, userID)
	if err != nil {
		return fmt.Errorf("update totp secret: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u    model.User
		role string
	)
	if err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.TOTPSecret, &u.CreatedAt); err != nil {
		return model.User{}, notFound(err)
	}
	u.Role = model.Role(role)
	return u, nil
}
