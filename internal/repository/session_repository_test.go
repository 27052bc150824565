package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/vault-access/internal/model"
)

func TestSessionRepoGetByID(t *testing.T) {
	db, mock := newMock(t)
	issued := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM vault_sessions WHERE id=?")).
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "vault_item_id", "scope", "issued_at", "expires_at", "revoked"}).
			AddRow("s-1", "emp-1", "item-1", "write", issued, issued.Add(180*time.Second), false))

	s, err := NewSessionRepo(db).GetByID(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, model.AccessWrite, s.Scope)
	assert.True(t, s.IsValid(issued.Add(179*time.Second)))
	assert.False(t, s.IsValid(issued.Add(180*time.Second)))
}

func TestSessionRepoRevokeIsIdempotent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSessionRepo(db)
	upd := regexp.QuoteMeta("UPDATE vault_sessions SET revoked=1 WHERE id=?")
	exists := regexp.QuoteMeta("SELECT 1 FROM vault_sessions WHERE id=?")

	mock.ExpectExec(upd).WithArgs("s-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upd).WithArgs("s-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(exists).WithArgs("s-1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(upd).WithArgs("ghost").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(exists).WithArgs("ghost").WillReturnRows(sqlmock.NewRows([]string{"1"}))

	ctx := context.Background()
	require.NoError(t, repo.Revoke(ctx, "s-1"))
	require.NoError(t, repo.Revoke(ctx, "s-1"))
	assert.ErrorIs(t, repo.Revoke(ctx, "ghost"), ErrNotFound)
}

func TestSessionRepoPurge(t *testing.T) {
	db, mock := newMock(t)
	cutoff := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM vault_sessions WHERE expires_at < ? OR (revoked = 1 AND issued_at < ?)")).
		WithArgs(cutoff, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := NewSessionRepo(db).PurgeEndedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
