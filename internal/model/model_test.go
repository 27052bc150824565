package model

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClosedVariants(t *testing.T) {
	at, err := ParseAccessType(" Write ")
	require.NoError(t, err)
	assert.Equal(t, AccessWrite, at)

	_, err = ParseAccessType("admin")
	assert.Equal(t, KindValidation, KindOf(err))

	d, err := ParseDecision("APPROVE")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, d.Status())
	assert.Equal(t, StatusRejected, DecisionReject.Status())

	_, err = ParseDecision("approved")
	assert.Equal(t, KindValidation, KindOf(err))

	r, ok := ParseRole("Auditor")
	assert.True(t, ok)
	assert.Equal(t, RoleAuditor, r)
	_, ok = ParseRole("root")
	assert.False(t, ok)
}

func TestScopeNeverEscalates(t *testing.T) {
	assert.True(t, AccessRead.Allows(AccessRead))
	assert.False(t, AccessRead.Allows(AccessWrite))
	assert.True(t, AccessWrite.Allows(AccessRead))
	assert.True(t, AccessWrite.Allows(AccessWrite))
}

func TestSessionValidityBoundary(t *testing.T) {
	issued := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	s := Session{IssuedAt: issued, ExpiresAt: issued.Add(DefaultSessionTTL)}

	assert.True(t, s.IsValid(issued))
	assert.Equal(t, SessionActive, s.State(issued.Add(179*time.Second)))
	assert.False(t, s.IsValid(s.ExpiresAt))
	assert.Equal(t, SessionExpired, s.State(s.ExpiresAt))

	s.Revoked = true
	assert.False(t, s.IsValid(issued))
	assert.Equal(t, SessionRevoked, s.State(s.ExpiresAt.Add(time.Hour)))
}

func TestRecordPayloadValidate(t *testing.T) {
	good := RecordPayload{
		InvestmentName: " Fund A ",
		InvestedAmount: decimal.NewFromInt(5000),
		InvestmentDate: "2026-03-31",
		InstrumentType: "Equity",
	}.Normalize()
	assert.Equal(t, "Fund A", good.InvestmentName)
	require.NoError(t, good.Validate())

	for _, amount := range []string{"0.01", "1000.50", "1000.500", "9999999999999999.99"} {
		p := good
		p.InvestedAmount = decimal.RequireFromString(amount)
		assert.NoError(t, p.Validate(), amount)
	}

	cases := map[string]func(p *RecordPayload){
		"negative amount": func(p *RecordPayload) { p.InvestedAmount = decimal.NewFromInt(-1) },
		"zero amount":     func(p *RecordPayload) { p.InvestedAmount = decimal.Zero },
		"sub-cent amount": func(p *RecordPayload) { p.InvestedAmount = decimal.RequireFromString("0.004") },
		"three decimals":  func(p *RecordPayload) { p.InvestedAmount = decimal.RequireFromString("12.345") },
		"too large":       func(p *RecordPayload) { p.InvestedAmount = decimal.New(1, 17) },
		"column limit":    func(p *RecordPayload) { p.InvestedAmount = decimal.New(1, 16) },
		"no name":         func(p *RecordPayload) { p.InvestmentName = "" },
		"bad date":        func(p *RecordPayload) { p.InvestmentDate = "31/03/2026" },
		"no instrument":   func(p *RecordPayload) { p.InstrumentType = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := good
			mutate(&p)
			assert.Equal(t, KindValidation, KindOf(p.Validate()))
		})
	}
}

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("decide: %w", ErrConflict("request already decided"))
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, ErrorKind(""), KindOf(fmt.Errorf("plain")))
	assert.Equal(t, KindMFA, KindOf(ErrMFA()))
	assert.Equal(t, KindSessionExpired, KindOf(ErrSessionExpired()))
}
