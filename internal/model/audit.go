package model

import "time"

// Audit actions emitted by the access engine.
const (
	ActionAccessRequestCreated = "access_request_created"
	ActionAccessRequestDecided = "access_request_decided"
	ActionVaultAccessGranted   = "vault_access_granted"
	ActionVaultAccessDenied    = "vault_access_denied"
	ActionRecordCreated        = "record_created"
	ActionSessionEnded         = "session_ended"
	ActionLogin                = "login"
	ActionMFAEnrolled          = "mfa_enrolled"
)

// AuditEvent is an immutable record of a security-relevant transition.
// It is append-only: nothing in this service updates or deletes one.
type AuditEvent struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"actor_id"`
	Action       string         `json:"action"`
	VaultItemID  *string        `json:"vault_item_id,omitempty"`
	TargetUserID *string        `json:"target_user_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}
