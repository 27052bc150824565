package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/vault-access/internal/model"
)

func TestNewAuditEventMessage(t *testing.T) {
	item, target := "item-1", "admin-1"
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := NewAuditEventMessage(model.AuditEvent{
		ID:           "ev-1",
		ActorID:      "emp-1",
		Action:       model.ActionAccessRequestCreated,
		VaultItemID:  &item,
		TargetUserID: &target,
		Metadata:     map[string]any{"reason": "quarterly review"},
		Timestamp:    ts,
	})
	assert.Equal(t, "ev-1", msg.EventID)
	assert.Equal(t, "item-1", msg.VaultItemID)
	assert.Equal(t, "admin-1", msg.TargetUserID)
	assert.Equal(t, "2026-03-01T12:00:00Z", msg.OccurredAt)
}

func TestFormatAuditLine(t *testing.T) {
	line := FormatAuditLine(AuditEventMessage{
		EventID:    "ev-1",
		ActorID:    "emp-1",
		Action:     "record_created",
		Metadata:   map[string]any{"session_id": "s-1", "record_id": "r-1"},
		OccurredAt: "2026-03-01T12:00:00Z",
	})
	assert.Equal(t, "[2026-03-01T12:00:00Z] record_created | event_id=ev-1 | actor_id=emp-1 | record_id=r-1 | session_id=s-1\n", line)
}

func TestAuditLogWriterAppends(t *testing.T) {
	dir := t.TempDir()
	w := &AuditLogWriter{Dir: filepath.Join(dir, "logs")}

	for _, id := range []string{"ev-1", "ev-2"} {
		body, err := json.Marshal(AuditEventMessage{EventID: id, ActorID: "u", Action: "login", OccurredAt: "t"})
		require.NoError(t, err)
		require.NoError(t, w.Handle(body))
	}

	data, err := os.ReadFile(filepath.Join(dir, "logs", "audit.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "event_id=ev-1")
	assert.Contains(t, lines[1], "event_id=ev-2")
}

func TestAuditLogWriterRejectsMalformed(t *testing.T) {
	w := &AuditLogWriter{Dir: t.TempDir()}
	assert.Error(t, w.Handle([]byte("{not json")))
	assert.Error(t, w.Handle([]byte(`{"actor_id":"u"}`)))
}
