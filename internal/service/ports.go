package service

import (
	"context"
	"time"

	"github.com/iliyamo/vault-access/internal/model"
)

// The interfaces below are the collaborators the access engine consumes.
// Each has a MySQL implementation in internal/repository and an in-memory
// one in internal/repository/memory.  Lookups return repository.ErrNotFound
// when nothing matches.

// UserDirectory resolves identity and role.  It is the only source of
// truth for roles.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (model.User, error)
	ListByRole(ctx context.Context, role model.Role) ([]model.User, error)
}

// VaultItemStore resolves vault items.
type VaultItemStore interface {
	GetByID(ctx context.Context, id string) (model.VaultItem, error)
	List(ctx context.Context) ([]model.VaultItem, error)
}

// GrantLookup is the read-only view of access requests used to derive a
// session grant.
type GrantLookup interface {
	// FindApproved returns the most recent approved request of employeeID
	// for vaultItemID.
	FindApproved(ctx context.Context, employeeID, vaultItemID string) (model.AccessRequest, error)
}

// AccessRequestStore persists the access request lifecycle.
type AccessRequestStore interface {
	GrantLookup

	Create(ctx context.Context, req model.AccessRequest) error
	GetByID(ctx context.Context, id string) (model.AccessRequest, error)
	// Decide moves a pending request to status in a single atomic step and
	// returns the updated request.  It returns repository.ErrConflict when
	// the request is no longer pending.
	Decide(ctx context.Context, id string, status model.RequestStatus, deciderID string, at time.Time) (model.AccessRequest, error)
	ListPending(ctx context.Context) ([]model.AccessRequest, error)
	ListForEmployee(ctx context.Context, employeeID string) ([]model.AccessRequest, error)
	// CountWithStatus counts requests of employeeID for vaultItemID whose
	// status is one of statuses.
	CountWithStatus(ctx context.Context, employeeID, vaultItemID string, statuses ...model.RequestStatus) (int, error)
}

// SessionStore persists privileged sessions.
type SessionStore interface {
	Create(ctx context.Context, s model.Session) error
	GetByID(ctx context.Context, id string) (model.Session, error)
	// Revoke sets revoked=true.  Revoking a revoked session is not an error.
	Revoke(ctx context.Context, id string) error
	// PurgeEndedBefore deletes sessions that expired before cutoff and
	// revoked sessions issued before it.
	PurgeEndedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// VaultRecordStore is the CRUD surface for vault records.  Create
// validates the payload and returns a validation error when it is invalid.
type VaultRecordStore interface {
	List(ctx context.Context, vaultItemID string) ([]model.VaultRecord, error)
	Create(ctx context.Context, vaultItemID string, p model.RecordPayload) (model.VaultRecord, error)
}

// AuditSink receives immutable audit events.
type AuditSink interface {
	Record(ctx context.Context, ev model.AuditEvent) error
}

// MFAProvider verifies step-up one-time codes.
type MFAProvider interface {
	Verify(ctx context.Context, userID, code string) (bool, error)
}
