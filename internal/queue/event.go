// Package queue carries audit events over RabbitMQ: a publisher that acts
// as an audit sink and a consumer that appends them to logs/audit.log.
package queue

import (
	"time"

	"github.com/iliyamo/vault-access/internal/model"
)

// AuditQueueName is the durable queue audit events are published to.
const AuditQueueName = "audit.events"

// AuditEventMessage is the wire form of an audit event.  It contains
// enough information for downstream consumers to log or alert without
// querying the primary database.
type AuditEventMessage struct {
	EventID      string         `json:"event_id"`
	ActorID      string         `json:"actor_id"`
	Action       string         `json:"action"`
	VaultItemID  string         `json:"vault_item_id,omitempty"`
	TargetUserID string         `json:"target_user_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	OccurredAt   string         `json:"occurred_at"`
}

// NewAuditEventMessage converts ev to its wire form.
func NewAuditEventMessage(ev model.AuditEvent) AuditEventMessage {
	msg := AuditEventMessage{
		EventID:    ev.ID,
		ActorID:    ev.ActorID,
		Action:     ev.Action,
		Metadata:   ev.Metadata,
		OccurredAt: ev.Timestamp.UTC().Format(time.RFC3339),
	}
	if ev.VaultItemID != nil {
		msg.VaultItemID = *ev.VaultItemID
	}
	if ev.TargetUserID != nil {
		msg.TargetUserID = *ev.TargetUserID
	}
	return msg
}
