package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/vault-access/internal/model"
	"github.com/iliyamo/vault-access/internal/repository"
)

// AuthorityConfig holds the session TTL and the bounds placed on calls to
// external collaborators.
type AuthorityConfig struct {
	SessionTTL   time.Duration
	MFATimeout   time.Duration
	StoreTimeout time.Duration
}

func (c AuthorityConfig) withDefaults() AuthorityConfig {
	if c.SessionTTL <= 0 {
		c.SessionTTL = model.DefaultSessionTTL
	}
	if c.MFATimeout <= 0 {
		c.MFATimeout = 3 * time.Second
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 5 * time.Second
	}
	return c
}

// Grant is what a successful authorization returns: the new session and a
// snapshot of the vault item's records taken at issuance.
type Grant struct {
	Session   model.Session       `json:"session"`
	VaultItem model.VaultItem     `json:"vault_item"`
	Records   []model.VaultRecord `json:"records"`
}

// UseResult is the outcome of a session use: the record list for reads,
// the created record for writes.
type UseResult struct {
	Records []model.VaultRecord `json:"records,omitempty"`
	Record  *model.VaultRecord  `json:"record,omitempty"`
}

// SessionAuthority turns an approved request (or an administrator's
// standing read privilege) plus a valid TOTP code into a time-boxed,
// scoped session, and enforces expiry and scope on every use.
type SessionAuthority struct {
	users    UserDirectory
	items    VaultItemStore
	grants   GrantLookup
	sessions SessionStore
	records  VaultRecordStore
	mfa      MFAProvider
	audit    *Auditor
	log      *zap.Logger
	cfg      AuthorityConfig
	now      func() time.Time
}

// NewSessionAuthority wires an authority.  Every collaborator except the
// auditor and logger must be non-nil.
func NewSessionAuthority(
	users UserDirectory,
	items VaultItemStore,
	grants GrantLookup,
	sessions SessionStore,
	records VaultRecordStore,
	mfa MFAProvider,
	audit *Auditor,
	log *zap.Logger,
	cfg AuthorityConfig,
) *SessionAuthority {
	if users == nil || items == nil || grants == nil || sessions == nil || records == nil || mfa == nil {
		panic("nil collaborator passed to NewSessionAuthority")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionAuthority{
		users:    users,
		items:    items,
		grants:   grants,
		sessions: sessions,
		records:  records,
		mfa:      mfa,
		audit:    audit,
		log:      log,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
}

// SessionTTL reports the configured session lifetime.
func (a *SessionAuthority) SessionTTL() time.Duration { return a.cfg.SessionTTL }

// Authorize verifies callerID's TOTP code and, when the caller holds a
// grant on vaultItemID, issues a new session and returns it with the
// current record snapshot.
func (a *SessionAuthority) Authorize(ctx context.Context, callerID, vaultItemID, totpCode string) (Grant, error) {
	caller, err := a.users.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Grant{}, model.ErrNotFound("user not found")
		}
		return Grant{}, fmt.Errorf("load caller: %w", err)
	}
	item, err := a.items.GetByID(ctx, vaultItemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Grant{}, model.ErrNotFound("vault item not found")
		}
		return Grant{}, fmt.Errorf("load vault item: %w", err)
	}

	if !a.verifyMFA(ctx, caller.ID, totpCode) {
		a.deny(ctx, caller.ID, item.ID, "mfa_failed")
		return Grant{}, model.ErrMFA()
	}

	scope, err := a.deriveScope(ctx, caller, item.ID)
	if err != nil {
		if model.KindOf(err) == model.KindForbidden {
			a.deny(ctx, caller.ID, item.ID, "no_grant")
		}
		return Grant{}, err
	}

	issued := a.now().UTC()
	sess := model.Session{
		ID:          uuid.NewString(),
		UserID:      caller.ID,
		VaultItemID: item.ID,
		Scope:       scope,
		IssuedAt:    issued,
		ExpiresAt:   issued.Add(a.cfg.SessionTTL),
	}
	if err := a.sessions.Create(ctx, sess); err != nil {
		return Grant{}, fmt.Errorf("create session: %w", err)
	}

	records, err := a.listRecords(ctx, item.ID)
	if err != nil {
		// The caller never receives this session, so close it.
		if rerr := a.sessions.Revoke(context.WithoutCancel(ctx), sess.ID); rerr != nil {
			a.log.Warn("revoke orphaned session failed", zap.String("session_id", sess.ID), zap.Error(rerr))
		}
		return Grant{}, err
	}

	a.audit.Emit(ctx, model.AuditEvent{
		ActorID:     caller.ID,
		Action:      model.ActionVaultAccessGranted,
		VaultItemID: strPtr(item.ID),
		Metadata: map[string]any{
			"session_id": sess.ID,
			"scope":      string(scope),
		},
	})
	return Grant{Session: sess, VaultItem: item, Records: records}, nil
}

// verifyMFA reports whether code is valid for userID.  Provider errors and
// timeouts count as a failed verification.
func (a *SessionAuthority) verifyMFA(ctx context.Context, userID, code string) bool {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.MFATimeout)
	defer cancel()
	ok, err := a.mfa.Verify(ctx, userID, code)
	if err != nil {
		a.log.Warn("mfa verification error", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	return ok
}

// deriveScope returns the scope a caller is entitled to on vaultItemID.
// Administrators hold a standing read-only grant; employees need an
// approved request, whose access type becomes the scope.
func (a *SessionAuthority) deriveScope(ctx context.Context, caller model.User, vaultItemID string) (model.AccessType, error) {
	switch caller.Role {
	case model.RoleAdmin:
		return model.AccessRead, nil
	case model.RoleEmployee:
		req, err := a.grants.FindApproved(ctx, caller.ID, vaultItemID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return "", model.ErrForbidden("no approved access")
			}
			return "", fmt.Errorf("find approved request: %w", err)
		}
		return req.AccessType, nil
	}
	return "", model.ErrForbidden("role %s cannot access vault data", caller.Role)
}

func (a *SessionAuthority) deny(ctx context.Context, actorID, vaultItemID, reason string) {
	a.audit.Emit(ctx, model.AuditEvent{
		ActorID:     actorID,
		Action:      model.ActionVaultAccessDenied,
		VaultItemID: strPtr(vaultItemID),
		Metadata:    map[string]any{"reason": reason},
	})
}

// UseSession performs op through sessionID.  Validity is recomputed
// against the current time on every call; an invalid session is marked
// revoked and rejected with no grace period.  Writes require write scope.
func (a *SessionAuthority) UseSession(ctx context.Context, callerID, sessionID string, op model.AccessType, payload *model.RecordPayload) (UseResult, error) {
	if op != model.AccessRead && op != model.AccessWrite {
		return UseResult{}, model.ErrValidation("operation must be one of read, write")
	}
	sess, err := a.loadOwnedSession(ctx, callerID, sessionID)
	if err != nil {
		return UseResult{}, err
	}

	if !sess.IsValid(a.now()) {
		if !sess.Revoked {
			if err := a.sessions.Revoke(ctx, sess.ID); err != nil {
				a.log.Warn("revoke expired session failed", zap.String("session_id", sess.ID), zap.Error(err))
			}
		}
		return UseResult{}, model.ErrSessionExpired()
	}

	if !sess.Scope.Allows(op) {
		return UseResult{}, model.ErrForbidden("session scope %s does not permit %s", sess.Scope, op)
	}

	if op == model.AccessRead {
		records, err := a.listRecords(ctx, sess.VaultItemID)
		if err != nil {
			return UseResult{}, err
		}
		return UseResult{Records: records}, nil
	}

	if payload == nil {
		return UseResult{}, model.ErrValidation("record payload is required")
	}
	rec, err := a.createRecord(ctx, sess.VaultItemID, payload.Normalize())
	if err != nil {
		return UseResult{}, err
	}
	a.audit.Emit(ctx, model.AuditEvent{
		ActorID:     sess.UserID,
		Action:      model.ActionRecordCreated,
		VaultItemID: strPtr(sess.VaultItemID),
		Metadata: map[string]any{
			"session_id": sess.ID,
			"record_id":  rec.ID,
		},
	})
	return UseResult{Record: &rec}, nil
}

// EndSession revokes sessionID.  Ending an expired or already revoked
// session succeeds.
func (a *SessionAuthority) EndSession(ctx context.Context, callerID, sessionID string) error {
	sess, err := a.loadOwnedSession(ctx, callerID, sessionID)
	if err != nil {
		return err
	}
	if err := a.sessions.Revoke(ctx, sess.ID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	a.audit.Emit(ctx, model.AuditEvent{
		ActorID:     sess.UserID,
		Action:      model.ActionSessionEnded,
		VaultItemID: strPtr(sess.VaultItemID),
		Metadata:    map[string]any{"session_id": sess.ID},
	})
	return nil
}

func (a *SessionAuthority) loadOwnedSession(ctx context.Context, callerID, sessionID string) (model.Session, error) {
	sess, err := a.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Session{}, model.ErrNotFound("session not found")
		}
		return model.Session{}, fmt.Errorf("load session: %w", err)
	}
	if sess.UserID != callerID {
		return model.Session{}, model.ErrForbidden("session belongs to another user")
	}
	return sess, nil
}

func (a *SessionAuthority) listRecords(ctx context.Context, vaultItemID string) ([]model.VaultRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.StoreTimeout)
	defer cancel()
	records, err := a.records.List(ctx, vaultItemID)
	if err != nil {
		return nil, fmt.Errorf("list vault records: %w", err)
	}
	return records, nil
}

func (a *SessionAuthority) createRecord(ctx context.Context, vaultItemID string, p model.RecordPayload) (model.VaultRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.StoreTimeout)
	defer cancel()
	rec, err := a.records.Create(ctx, vaultItemID, p)
	if err != nil {
		if model.KindOf(err) != "" {
			return model.VaultRecord{}, err
		}
		return model.VaultRecord{}, fmt.Errorf("create vault record: %w", err)
	}
	return rec, nil
}
