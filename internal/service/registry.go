package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/vault-access/internal/model"
	"github.com/iliyamo/vault-access/internal/repository"
)

// UniquenessPolicy controls whether an employee may hold several requests
// for the same vault item at once.
type UniquenessPolicy string

const (
	// UniqueNone allows any number of pending or approved requests.
	UniqueNone UniquenessPolicy = "none"
	// UniquePending rejects a new request while one is still pending.
	UniquePending UniquenessPolicy = "pending"
	// UniqueOpen rejects a new request while one is pending or approved.
	UniqueOpen UniquenessPolicy = "open"
)

// ParseUniquenessPolicy maps a config value to a policy.  Empty means none.
func ParseUniquenessPolicy(s string) (UniquenessPolicy, error) {
	switch p := UniquenessPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", UniqueNone:
		return UniqueNone, nil
	case UniquePending, UniqueOpen:
		return p, nil
	}
	return "", fmt.Errorf("unknown access request uniqueness policy %q", s)
}

func (p UniquenessPolicy) blocking() []model.RequestStatus {
	switch p {
	case UniquePending:
		return []model.RequestStatus{model.StatusPending}
	case UniqueOpen:
		return []model.RequestStatus{model.StatusPending, model.StatusApproved}
	}
	return nil
}

// CreateRequestInput carries the fields of a new access request.  Reason
// and AccessType arrive unvalidated from the caller.
type CreateRequestInput struct {
	EmployeeID  string
	AdminID     string
	VaultItemID string
	Reason      string
	AccessType  string
}

// AccessRequestRegistry owns the pending→approved/rejected lifecycle of
// access requests.
type AccessRequestRegistry struct {
	users    UserDirectory
	items    VaultItemStore
	requests AccessRequestStore
	audit    *Auditor
	policy   UniquenessPolicy
	now      func() time.Time
}

// NewAccessRequestRegistry wires a registry.  All stores must be non-nil.
func NewAccessRequestRegistry(users UserDirectory, items VaultItemStore, requests AccessRequestStore, audit *Auditor, policy UniquenessPolicy) *AccessRequestRegistry {
	if users == nil || items == nil || requests == nil {
		panic("nil store passed to NewAccessRequestRegistry")
	}
	if policy == "" {
		policy = UniqueNone
	}
	return &AccessRequestRegistry{
		users:    users,
		items:    items,
		requests: requests,
		audit:    audit,
		policy:   policy,
		now:      time.Now,
	}
}

// Create files a pending request from an employee to an administrator.
func (r *AccessRequestRegistry) Create(ctx context.Context, in CreateRequestInput) (model.AccessRequest, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return model.AccessRequest{}, model.ErrValidation("reason is required")
	}
	accessType, err := model.ParseAccessType(in.AccessType)
	if err != nil {
		return model.AccessRequest{}, err
	}

	employee, err := r.users.GetByID(ctx, in.EmployeeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.AccessRequest{}, model.ErrNotFound("user not found")
		}
		return model.AccessRequest{}, fmt.Errorf("load employee: %w", err)
	}
	if employee.Role != model.RoleEmployee {
		return model.AccessRequest{}, model.ErrForbidden("only employees can request vault access")
	}

	if _, err := r.items.GetByID(ctx, in.VaultItemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.AccessRequest{}, model.ErrValidation("vault_item_id does not reference a vault item")
		}
		return model.AccessRequest{}, fmt.Errorf("load vault item: %w", err)
	}

	admin, err := r.users.GetByID(ctx, in.AdminID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return model.AccessRequest{}, fmt.Errorf("load admin: %w", err)
	}
	if err != nil || admin.Role != model.RoleAdmin {
		return model.AccessRequest{}, model.ErrValidation("admin_id does not reference an administrator")
	}

	if statuses := r.policy.blocking(); len(statuses) > 0 {
		n, err := r.requests.CountWithStatus(ctx, employee.ID, in.VaultItemID, statuses...)
		if err != nil {
			return model.AccessRequest{}, fmt.Errorf("count open requests: %w", err)
		}
		if n > 0 {
			return model.AccessRequest{}, model.ErrConflict("an open access request for this vault item already exists")
		}
	}

	req := model.AccessRequest{
		ID:          uuid.NewString(),
		EmployeeID:  employee.ID,
		AdminID:     admin.ID,
		VaultItemID: in.VaultItemID,
		Reason:      reason,
		AccessType:  accessType,
		Status:      model.StatusPending,
		CreatedAt:   r.now().UTC(),
	}
	if err := r.requests.Create(ctx, req); err != nil {
		return model.AccessRequest{}, fmt.Errorf("create access request: %w", err)
	}

	r.audit.Emit(ctx, model.AuditEvent{
		ActorID:      employee.ID,
		Action:       model.ActionAccessRequestCreated,
		VaultItemID:  strPtr(req.VaultItemID),
		TargetUserID: strPtr(admin.ID),
		Metadata: map[string]any{
			"request_id":  req.ID,
			"reason":      req.Reason,
			"access_type": string(req.AccessType),
		},
	})
	return req, nil
}

// Decide approves or rejects a pending request.  Any administrator may
// decide any request.  Exactly one of several concurrent decisions on the
// same request succeeds; the others get a conflict error.
func (r *AccessRequestRegistry) Decide(ctx context.Context, requestID, deciderID string, decision model.Decision) (model.AccessRequest, error) {
	if decision != model.DecisionApprove && decision != model.DecisionReject {
		return model.AccessRequest{}, model.ErrValidation("decision must be one of approve, reject")
	}
	decider, err := r.users.GetByID(ctx, deciderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.AccessRequest{}, model.ErrNotFound("user not found")
		}
		return model.AccessRequest{}, fmt.Errorf("load decider: %w", err)
	}
	if decider.Role != model.RoleAdmin {
		return model.AccessRequest{}, model.ErrForbidden("only administrators can decide access requests")
	}

	req, err := r.requests.Decide(ctx, requestID, decision.Status(), decider.ID, r.now().UTC())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return model.AccessRequest{}, model.ErrNotFound("access request not found")
	case errors.Is(err, repository.ErrConflict):
		return model.AccessRequest{}, model.ErrConflict("access request already decided")
	case err != nil:
		return model.AccessRequest{}, fmt.Errorf("decide access request: %w", err)
	}

	r.audit.Emit(ctx, model.AuditEvent{
		ActorID:      decider.ID,
		Action:       model.ActionAccessRequestDecided,
		VaultItemID:  strPtr(req.VaultItemID),
		TargetUserID: strPtr(req.EmployeeID),
		Metadata: map[string]any{
			"request_id": req.ID,
			"decision":   string(decision),
		},
	})
	return req, nil
}

// ListPending returns every pending request, oldest first.
func (r *AccessRequestRegistry) ListPending(ctx context.Context) ([]model.AccessRequest, error) {
	return r.requests.ListPending(ctx)
}

// ListForEmployee returns the requests filed by employeeID, newest first.
func (r *AccessRequestRegistry) ListForEmployee(ctx context.Context, employeeID string) ([]model.AccessRequest, error) {
	return r.requests.ListForEmployee(ctx, employeeID)
}
