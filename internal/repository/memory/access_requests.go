package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/vault-access/internal/model"
	"github.com/iliyamo/vault-access/internal/repository"
)

// AccessRequests is an in-memory access request store.  A single mutex
// makes Decide a compare-and-swap on status.
type AccessRequests struct {
	mu   sync.Mutex
	reqs map[string]model.AccessRequest
}

func NewAccessRequests() *AccessRequests {
	return &AccessRequests{reqs: make(map[string]model.AccessRequest)}
}

func (s *AccessRequests) Create(_ context.Context, req model.AccessRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reqs[req.ID]; ok {
		return repository.ErrDuplicate
	}
	s.reqs[req.ID] = req
	return nil
}

func (s *AccessRequests) GetByID(_ context.Context, id string) (model.AccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.reqs[id]
	if !ok {
		return model.AccessRequest{}, repository.ErrNotFound
	}
	return req, nil
}

func (s *AccessRequests) Decide(_ context.Context, id string, status model.RequestStatus, deciderID string, at time.Time) (model.AccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.reqs[id]
	if !ok {
		return model.AccessRequest{}, repository.ErrNotFound
	}
	if req.Status != model.StatusPending {
		return model.AccessRequest{}, repository.ErrConflict
	}
	req.Status = status
	req.DecidedAt = &at
	req.DeciderID = &deciderID
	s.reqs[id] = req
	return req, nil
}

func (s *AccessRequests) ListPending(_ context.Context) ([]model.AccessRequest, error) {
	return s.filter(func(r model.AccessRequest) bool { return r.Status == model.StatusPending }, false), nil
}

func (s *AccessRequests) ListForEmployee(_ context.Context, employeeID string) ([]model.AccessRequest, error) {
	return s.filter(func(r model.AccessRequest) bool { return r.EmployeeID == employeeID }, true), nil
}

func (s *AccessRequests) FindApproved(_ context.Context, employeeID, vaultItemID string) (model.AccessRequest, error) {
	matches := s.filter(func(r model.AccessRequest) bool {
		return r.EmployeeID == employeeID && r.VaultItemID == vaultItemID && r.Status == model.StatusApproved
	}, true)
	if len(matches) == 0 {
		return model.AccessRequest{}, repository.ErrNotFound
	}
	return matches[0], nil
}

func (s *AccessRequests) CountWithStatus(_ context.Context, employeeID, vaultItemID string, statuses ...model.RequestStatus) (int, error) {
	want := make(map[model.RequestStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	return len(s.filter(func(r model.AccessRequest) bool {
		return r.EmployeeID == employeeID && r.VaultItemID == vaultItemID && want[r.Status]
	}, false)), nil
}

// filter returns matching requests ordered by creation time.
func (s *AccessRequests) filter(keep func(model.AccessRequest) bool, newestFirst bool) []model.AccessRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AccessRequest, 0)
	for _, r := range s.reqs {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
