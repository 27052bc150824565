package model

import (
	"strings"
	"time"
)

// AccessType is the capability asked for by a request and carried by a
// session as its scope.  Only Read and Write exist.
type AccessType string

const (
	AccessRead  AccessType = "read"
	AccessWrite AccessType = "write"
)

// ParseAccessType rejects anything other than "read" or "write".
func ParseAccessType(s string) (AccessType, error) {
	switch AccessType(strings.ToLower(strings.TrimSpace(s))) {
	case AccessRead:
		return AccessRead, nil
	case AccessWrite:
		return AccessWrite, nil
	}
	return "", ErrValidation("access_type must be one of read, write")
}

// Allows reports whether a session scoped to t may perform op.  Write
// implies read; read never implies write.
func (t AccessType) Allows(op AccessType) bool {
	if op == AccessWrite {
		return t == AccessWrite
	}
	return t == AccessRead || t == AccessWrite
}

// Decision is an administrator's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision accepts "approve" or "reject".
func ParseDecision(s string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(s))) {
	case DecisionApprove:
		return DecisionApprove, nil
	case DecisionReject:
		return DecisionReject, nil
	}
	return "", ErrValidation("decision must be one of approve, reject")
}

// Status returns the terminal request status the decision produces.
func (d Decision) Status() RequestStatus {
	if d == DecisionApprove {
		return StatusApproved
	}
	return StatusRejected
}

// RequestStatus tracks the request lifecycle.  The only transitions are
// pending→approved and pending→rejected.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// AccessRequest is an employee's ask for read or write capability on a
// vault item, addressed to an administrator.
//
// Fields:
//  ID          – UUID primary key.
//  EmployeeID  – requesting employee.
//  AdminID     – administrator the employee addressed.
//  VaultItemID – target vault item.
//  Reason      – non-empty justification.
//  AccessType  – read or write.
//  Status      – pending, approved or rejected.
//  CreatedAt   – creation timestamp.
//  DecidedAt   – set once when the request leaves pending.
//  DeciderID   – administrator that decided (may differ from AdminID).
type AccessRequest struct {
	ID          string        `json:"id"`
	EmployeeID  string        `json:"employee_id"`
	AdminID     string        `json:"admin_id"`
	VaultItemID string        `json:"vault_item_id"`
	Reason      string        `json:"reason"`
	AccessType  AccessType    `json:"access_type"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	DecidedAt   *time.Time    `json:"decided_at,omitempty"`
	DeciderID   *string       `json:"decider_id,omitempty"`
}
