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

func TestAuditRepoRecord(t *testing.T) {
	db, mock := newMock(t)
	item := "item-1"
	ts := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).
		WithArgs("ev-1", "emp-1", model.ActionVaultAccessGranted, "item-1", nil, []byte(`{"scope":"read"}`), ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewAuditRepo(db).Record(context.Background(), model.AuditEvent{
		ID:          "ev-1",
		ActorID:     "emp-1",
		Action:      model.ActionVaultAccessGranted,
		VaultItemID: &item,
		Metadata:    map[string]any{"scope": "read"},
		Timestamp:   ts,
	})
	require.NoError(t, err)
}

func TestAuditRepoList(t *testing.T) {
	db, mock := newMock(t)
	ts := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_events ORDER BY occurred_at DESC")).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "actor_id", "action", "vault_item_id", "target_user_id", "metadata", "occurred_at"}).
			AddRow("ev-2", "adm-1", model.ActionAccessRequestDecided, "item-1", "emp-1", []byte(`{"decision":"approve"}`), ts).
			AddRow("ev-1", "emp-1", model.ActionLogin, nil, nil, nil, ts.Add(-time.Minute)))

	events, err := NewAuditRepo(db).List(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "approve", events[0].Metadata["decision"])
	require.NotNil(t, events[0].TargetUserID)
	assert.Equal(t, "emp-1", *events[0].TargetUserID)
	assert.Nil(t, events[1].VaultItemID)
	assert.Nil(t, events[1].Metadata)
}
