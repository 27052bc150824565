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

var accessRequestCols = []string{"id", "employee_id", "admin_id", "vault_item_id", "reason", "access_type", "status", "created_at", "decided_at", "decider_id"}

const decideUpdate = "UPDATE access_requests SET status=?, decided_at=?, decider_id=? WHERE id=? AND status='pending'"

func TestAccessRequestRepoDecide(t *testing.T) {
	db, mock := newMock(t)
	created := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	decided := created.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(decideUpdate)).
		WithArgs("approved", decided, "adm-1", "req-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM access_requests WHERE id=?")).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows(accessRequestCols).
			AddRow("req-1", "emp-1", "adm-1", "item-1", "r", "write", "approved", created, decided, "adm-1"))
	mock.ExpectCommit()

	req, err := NewAccessRequestRepo(db).Decide(context.Background(), "req-1", model.StatusApproved, "adm-1", decided)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, req.Status)
	assert.Equal(t, model.AccessWrite, req.AccessType)
	require.NotNil(t, req.DecidedAt)
	assert.Equal(t, decided, *req.DecidedAt)
	require.NotNil(t, req.DeciderID)
	assert.Equal(t, "adm-1", *req.DeciderID)
}

func TestAccessRequestRepoDecideAlreadyDecided(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(decideUpdate)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM access_requests WHERE id=?")).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows(accessRequestCols).
			AddRow("req-1", "emp-1", "adm-1", "item-1", "r", "read", "rejected", now, now, "adm-2"))
	mock.ExpectRollback()

	_, err := NewAccessRequestRepo(db).Decide(context.Background(), "req-1", model.StatusApproved, "adm-1", now)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAccessRequestRepoDecideUnknown(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(decideUpdate)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM access_requests WHERE id=?")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(accessRequestCols))
	mock.ExpectRollback()

	_, err := NewAccessRequestRepo(db).Decide(context.Background(), "nope", model.StatusApproved, "adm-1", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccessRequestRepoFindApproved(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE employee_id=? AND vault_item_id=? AND status='approved'")).
		WithArgs("emp-1", "item-1").
		WillReturnRows(sqlmock.NewRows(accessRequestCols).
			AddRow("req-1", "emp-1", "adm-1", "item-1", "r", "read", "approved", now, now, "adm-1"))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE employee_id=? AND vault_item_id=? AND status='approved'")).
		WithArgs("emp-2", "item-1").
		WillReturnRows(sqlmock.NewRows(accessRequestCols))

	repo := NewAccessRequestRepo(db)
	req, err := repo.FindApproved(context.Background(), "emp-1", "item-1")
	require.NoError(t, err)
	assert.Equal(t, model.AccessRead, req.AccessType)

	_, err = repo.FindApproved(context.Background(), "emp-2", "item-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccessRequestRepoCountWithStatus(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("status IN (?,?)")).
		WithArgs("emp-1", "item-1", "pending", "approved").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := NewAccessRequestRepo(db).CountWithStatus(context.Background(), "emp-1", "item-1", model.StatusPending, model.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAccessRequestRepoListPending(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status='pending' ORDER BY created_at ASC")).
		WillReturnRows(sqlmock.NewRows(accessRequestCols).
			AddRow("req-1", "emp-1", "adm-1", "item-1", "r", "read", "pending", now, nil, nil))

	reqs, err := NewAccessRequestRepo(db).ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Nil(t, reqs[0].DecidedAt)
	assert.Nil(t, reqs[0].DeciderID)
}
