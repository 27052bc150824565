package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/vault-access/internal/model"
)

func payload(amount string) *model.RecordPayload {
	return &model.RecordPayload{
		InvestmentName: "Index Fund A",
		InvestedAmount: decimal.RequireFromString(amount),
		InvestmentDate: "2026-03-15",
		InstrumentType: "ETF",
		Remarks:        "rebalanced",
	}
}

func TestWriteSessionLifecycle(t *testing.T) {
	f := newFixture(UniqueNone, nil)
	ctx := context.Background()
	f.approved(model.AccessWrite)

	grant, err := f.auth.Authorize(ctx, "emp-1", itemID, validCode)
	require.NoError(t, err)
	sess := grant.Session
	assert.Equal(t, model.AccessWrite, sess.Scope)
	assert.Equal(t, 180*time.Second, sess.ExpiresAt.Sub(sess.IssuedAt))
	assert.False(t, sess.Revoked)
	assert.Empty(t, grant.Records)
	assert.Equal(t, "Growth Portfolio", grant.VaultItem.Title)

	res, err := f.auth.UseSession(ctx, "emp-1", sess.ID, model.AccessWrite, payload("2500.50"))
	require.NoError(t, err)
	require.NotNil(t, res.Record)
	assert.True(t, decimal.RequireFromString("2500.50").Equal(res.Record.InvestedAmount))

	_, err = f.auth.UseSession(ctx, "emp-1", sess.ID, model.AccessWrite, payload("-1"))
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	res, err = f.auth.UseSession(ctx, "emp-1", sess.ID, model.AccessRead, nil)
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)

	f.clock.Advance(181 * time.Second)
	_, err = f.auth.UseSession(ctx, "emp-1", sess.ID, model.AccessRead, nil)
	assert.Equal(t, model.KindSessionExpired, model.KindOf(err))

	stored, err := f.sessions.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, stored.Revoked)

	// The approval still stands, so a new step-up yields a fresh session.
	again, err := f.auth.Authorize(ctx, "emp-1", itemID, validCode)
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, again.Session.ID)
	assert.Len(t, again.Records, 1)

	assert.Equal(t, []string{
		model.ActionAccessRequestCreated,
		model.ActionAccessRequestDecided,
		model.ActionVaultAccessGranted,
		model.ActionRecordCreated,
		model.ActionVaultAccessGranted,
	}, f.actions())
}

func TestSessionExpiresExactlyAtTTL(t *testing.T) {
	f := newFixture(UniqueNone, nil)
	ctx := context.Background()
	f.approved(model.AccessRead)

	grant, err := f.auth.Authorize(ctx, "emp-1", itemID, validCode)
	require.NoError(t, err)

	f.clock.Advance(180*time.Second - time.Nanosecond)
	_, err = f.auth.UseSession(ctx, "emp-1", grant.Session.ID, model.AccessRead, nil)
	require.NoError(t, err)

	f.clock.Advance(time.Nanosecond)
	_, err = f.auth.UseSession(ctx, "emp-1", grant.Session.ID, model.AccessRead, nil)
	assert.Equal(t, model.KindSessionExpired, model.KindOf(err))
}

func TestReadScopeCannotWrite(t *testing.T) {
	f := newFixture(UniqueNone, nil)
	ctx := context.Background()
	f.approved(model.AccessRead)

	grant, err := f.auth.Authorize(ctx, "emp-1", itemID, validCode)
	require.NoError(t, err)
	assert.Equal(t, model.AccessRead, grant.Session.Scope)

	_, err = f.auth.UseSession(ctx, "emp-1", grant.Session.ID, model.AccessWrite, payload("10"))
	assert.Equal(t, model.KindForbidden, model.KindOf(err))

	records, err := f.records.List(ctx, itemID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAuthorizeWithoutApprovalIsForbidden(t *testing.T) {
	f := newFixture(UniqueNone, nil)
	ctx := context.Background()

	// A pending request grants nothing.
	_, err := f.registry.Create(ctx, CreateRequestInput{EmployeeID: "emp-1", AdminID: "adm-1", VaultItemID: itemID, Reason: "r", AccessType: "write"})
	require.NoError(t, err)

	_, err = f.auth.Authorize(ctx, "emp-1", itemID, validCode)
	assert.Equal(t, model.KindForbidden, model.KindOf(err))

	events := f.audit.Events()
	last := events[len(events)-1]
	assert.Equal(t, model.ActionVaultAccessDenied, last.Action)
	assert.Equal(t, "no_grant", last.Metadata["reason"])
}

func TestAuthorizeRejectedRequestIsForbidden(t *testing.T) {
	f := newFixture(UniqueNone, nil)
	ctx := context.Background()
	req, err := f.registry.Create(ctx, CreateRequestInput{EmployeeID: "emp-1", AdminID: "adm-1", VaultItemID: itemID, Reason: "r", AccessType: "read"})
	require.NoError(t, err)
	_, err = f.registry.Decide(ctx, req.ID, "adm-1", model.DecisionReject)
	require.NoError(t, err)

	_, err = f.auth.Authorize(ctx, "emp-1", itemID, validCode)
	assert.Equal(t, model.KindForbidden, model.KindOf(err))
}

func TestAuthorizeMFAFailure(t *testing.T) {
	f := newFixture(UniqueNone, nil)
	ctx := context.Background()
	f.approved(model.AccessWrite)

	_, err := f.auth.Authorize(ctx, "emp-1", itemID, "000000")
	require.Error(t, err)
	assert.Equal(t, model.KindMFA, model.KindOf(err))

	events := f.audit.Events()
	last := events[len(events)-1]
	assert.Equal(t, model.ActionVaultAccessDenied, last.Action)
	assert.Equal(t, "mfa_failed", last.Metadata["reason"])
	assert.Equal(t, itemID, *last.VaultItemID)
}

// A bad code yields the same error whether or not the caller holds a grant.
func TestMFAFailureDoesNotRevealApproval(t *testing.T) {
	f := newFixture(UniqueNone, nil)
	ctx := context.Background()

	_, errNoGrant := f.auth.Authorize(ctx, "emp-2", itemID, "000000")
	f.approved(model.AccessRead)
	_, errGrant := f.auth.Authorize(ctx, "emp-1", itemID, "000000")

	assert.Equal(t, errNoGrant.Error(), errGrant.Error())
	assert.Equal(t, model.KindMFA, model.KindOf(errNoGrant))
}

func TestAuthorizeMFAProviderUnavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("error", func(t *testing.T) {
		f := newFixture(UniqueNone, stubMFA{err: errors.New("provider down")})
		f.approved(model.AccessRead)
		_, err := f.auth.Authorize(ctx, "emp-1", itemID, validCode)
		assert.Equal(t, model.KindMFA, model.KindOf(err))
	})

	t.Run("timeout", func(t *testing.T) {
		f := newFixture(UniqueNone, stubMFA{delay: time.Second})
		f.approved(model.AccessRead)
		_, err := f.auth.Authorize(ctx, "emp-1", itemID, validCode)
		assert.Equal(t, model.KindMFA, model.KindOf(err))
	})
}

func TestAuthorizeAdminStandingRead(t *testing.T) {
	f := newFixture(UniqueNone, nil)
	ctx := context.Background()

	grant, err := f.auth.Authorize(ctx, "adm-1", itemID, validCode)
	require.NoError(t, err)
	assert.Equal(t, model.AccessRead, grant.Session.Scope)

	_, err = f.auth.UseSession(ctx, "adm-1", grant.Session.ID, model.AccessWrite, payload("1"))
	assert.Equal(t, model.KindForbidden, model.KindOf(err))

	events := f.audit.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.ActionVaultAccessGranted, events[0].Action)
	assert.Equal(t, "read", events[0].Metadata["scope"])
}

func TestAuthorizeAuditorForbidden(t *testing.T) {
	f := newFixture(UniqueNone, nil)
	_, err := f.auth.Authorize(context.Background(), "aud-1", itemID, validCode)
	assert.Equal(t, model.KindForbidden, model.KindOf(err))
}

func TestAuthorizeUnknownIDs(t *testing.T) {
	f := newFixture(UniqueNone, nil)
	ctx := context.Background()
	_, err := f.auth.Authorize(ctx, "ghost", itemID, validCode)
	assert.Equal(t, model.KindNotFound, model.KindOf(err))
	_, err = f.auth.Authorize(ctx, "emp-1", "missing", validCode)
	assert.Equal(t, model.KindNotFound, model.KindOf(err))
}

func TestUseSessionOwnership(t *testing.T) {
	f := newFixture(UniqueNone, nil)
	ctx := context.Background()
	f.approved(model.AccessRead)
	grant, err := f.auth.Authorize(ctx, "emp-1", itemID, validCode)
	require.NoError(t, err)

	_, err = f.auth.UseSession(ctx, "emp-2", grant.Session.ID, model.AccessRead, nil)
	assert.Equal(t, model.KindForbidden, model.KindOf(err))
	_, err = f.auth.UseSession(ctx, "emp-1", "missing", model.AccessRead, nil)
	assert.Equal(t, model.KindNotFound, model.KindOf(err))
	_, err = f.auth.UseSession(ctx, "emp-1", grant.Session.ID, model.AccessType("admin"), nil)
	assert.Equal(t, model.KindValidation, model.KindOf(err))
	err = f.auth.EndSession(ctx, "emp-2", grant.Session.ID)
	assert.Equal(t, model.KindForbidden, model.KindOf(err))
}

func TestWriteRequiresPayload(t *testing.T) {
	f := newFixture(UniqueNone, nil)
	ctx := context.Background()
	f.approved(model.AccessWrite)
	grant, err := f.auth.Authorize(ctx, "emp-1", itemID, validCode)
	require.NoError(t, err)

	_, err = f.auth.UseSession(ctx, "emp-1", grant.Session.ID, model.AccessWrite, nil)
	assert.Equal(t, model.KindValidation, model.KindOf(err))
}

func TestEndSession(t *testing.T) {
	f := newFixture(UniqueNone, nil)
	ctx := context.Background()
	f.approved(model.AccessWrite)
	grant, err := f.auth.Authorize(ctx, "emp-1", itemID, validCode)
	require.NoError(t, err)

	require.NoError(t, f.auth.EndSession(ctx, "emp-1", grant.Session.ID))
	_, err = f.auth.UseSession(ctx, "emp-1", grant.Session.ID, model.AccessRead, nil)
	assert.Equal(t, model.KindSessionExpired, model.KindOf(err))

	// Ending again, even after expiry, is not an error.
	f.clock.Advance(time.Hour)
	assert.NoError(t, f.auth.EndSession(ctx, "emp-1", grant.Session.ID))

	stored, err := f.sessions.GetByID(ctx, grant.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionRevoked, stored.State(f.clock.Now()))

	assert.Equal(t, model.KindNotFound, model.KindOf(f.auth.EndSession(ctx, "emp-1", "missing")))
}

func TestAuditFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(UniqueNone, nil)
	broken := NewAuditor(failingSink{}, nil, time.Second)
	f.registry.audit = broken
	f.auth.audit = broken
	ctx := context.Background()

	req, err := f.registry.Create(ctx, CreateRequestInput{EmployeeID: "emp-1", AdminID: "adm-1", VaultItemID: itemID, Reason: "r", AccessType: "write"})
	require.NoError(t, err)
	_, err = f.registry.Decide(ctx, req.ID, "adm-1", model.DecisionApprove)
	require.NoError(t, err)
	grant, err := f.auth.Authorize(ctx, "emp-1", itemID, validCode)
	require.NoError(t, err)
	_, err = f.auth.UseSession(ctx, "emp-1", grant.Session.ID, model.AccessWrite, payload("5"))
	require.NoError(t, err)
}

func TestCancelledCallerStillAudits(t *testing.T) {
	f := newFixture(UniqueNone, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.auth.audit.Emit(ctx, model.AuditEvent{ActorID: "emp-1", Action: model.ActionLogin})
	require.Len(t, f.audit.Events(), 1)
}
