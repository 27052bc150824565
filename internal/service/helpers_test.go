package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iliyamo/vault-access/internal/model"
	"github.com/iliyamo/vault-access/internal/repository/memory"
)

const (
	validCode = "123456"
	itemID    = "item-growth"
)

// fakeClock is a settable time source shared by the registry, authority
// and auditor under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// stubMFA accepts validCode for every user.  err and delay simulate an
// unhealthy provider.
type stubMFA struct {
	err   error
	delay time.Duration
}

func (m stubMFA) Verify(ctx context.Context, _ string, code string) (bool, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	if m.err != nil {
		return false, m.err
	}
	return code == validCode, nil
}

type failingSink struct{}

func (failingSink) Record(context.Context, model.AuditEvent) error {
	return errors.New("audit store down")
}

type fixture struct {
	clock    *fakeClock
	users    *memory.Users
	items    *memory.VaultItems
	requests *memory.AccessRequests
	sessions *memory.Sessions
	records  *memory.VaultRecords
	audit    *memory.AuditLog
	registry *AccessRequestRegistry
	auth     *SessionAuthority
}

func newFixture(policy UniquenessPolicy, mfa MFAProvider) *fixture {
	f := &fixture{
		clock: &fakeClock{t: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)},
		users: memory.NewUsers(
			model.User{ID: "emp-1", Username: "alice", Role: model.RoleEmployee},
			model.User{ID: "emp-2", Username: "bob", Role: model.RoleEmployee},
			model.User{ID: "adm-1", Username: "carol", Role: model.RoleAdmin},
			model.User{ID: "adm-2", Username: "dave", Role: model.RoleAdmin},
			model.User{ID: "aud-1", Username: "erin", Role: model.RoleAuditor},
		),
		items:    memory.NewVaultItems(model.VaultItem{ID: itemID, Title: "Growth Portfolio"}),
		requests: memory.NewAccessRequests(),
		sessions: memory.NewSessions(),
		records:  memory.NewVaultRecords(),
		audit:    memory.NewAuditLog(),
	}
	if mfa == nil {
		mfa = stubMFA{}
	}
	auditor := NewAuditor(f.audit, nil, time.Second)
	auditor.now = f.clock.Now

	f.registry = NewAccessRequestRegistry(f.users, f.items, f.requests, auditor, policy)
	f.registry.now = f.clock.Now

	f.auth = NewSessionAuthority(f.users, f.items, f.requests, f.sessions, f.records, mfa, auditor, nil, AuthorityConfig{
		SessionTTL:   180 * time.Second,
		MFATimeout:   50 * time.Millisecond,
		StoreTimeout: time.Second,
	})
	f.auth.now = f.clock.Now
	return f
}

// approved files and approves a request for emp-1 on itemID.
func (f *fixture) approved(accessType model.AccessType) model.AccessRequest {
	ctx := context.Background()
	req, err := f.registry.Create(ctx, CreateRequestInput{
		EmployeeID:  "emp-1",
		AdminID:     "adm-1",
		VaultItemID: itemID,
		Reason:      "quarterly reconciliation",
		AccessType:  string(accessType),
	})
	if err != nil {
		panic(err)
	}
	req, err = f.registry.Decide(ctx, req.ID, "adm-1", model.DecisionApprove)
	if err != nil {
		panic(err)
	}
	return req
}

func (f *fixture) actions() []string {
	var out []string
	for _, ev := range f.audit.Events() {
		out = append(out, ev.Action)
	}
	return out
}
