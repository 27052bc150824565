package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/vault-access/internal/model"
	"github.com/iliyamo/vault-access/internal/repository/memory"
)

func TestFanoutSinkRecordsToAll(t *testing.T) {
	a, b := memory.NewAuditLog(), memory.NewAuditLog()
	sink := FanoutSink{a, failingSink{}, nil, b}

	err := sink.Record(context.Background(), model.AuditEvent{ID: "ev-1", Action: model.ActionLogin})
	assert.Error(t, err)
	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}

func TestNilAuditorIsNoop(t *testing.T) {
	var a *Auditor
	assert.NotPanics(t, func() {
		a.Emit(context.Background(), model.AuditEvent{Action: model.ActionLogin})
	})
}
