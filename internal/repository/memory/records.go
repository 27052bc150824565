package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/vault-access/internal/model"
)

// VaultRecords is an in-memory vault record store.  Records are kept in
// insertion order per vault item.
type VaultRecords struct {
	mu      sync.RWMutex
	records map[string][]model.VaultRecord
}

func NewVaultRecords() *VaultRecords {
	return &VaultRecords{records: make(map[string][]model.VaultRecord)}
}

func (s *VaultRecords) List(_ context.Context, vaultItemID string) ([]model.VaultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.records[vaultItemID]
	out := make([]model.VaultRecord, len(src))
	copy(out, src)
	return out, nil
}

func (s *VaultRecords) Create(_ context.Context, vaultItemID string, p model.RecordPayload) (model.VaultRecord, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return model.VaultRecord{}, err
	}
	rec := model.VaultRecord{
		ID:             uuid.NewString(),
		VaultItemID:    vaultItemID,
		InvestmentName: p.InvestmentName,
		InvestedAmount: p.InvestedAmount,
		InvestmentDate: p.InvestmentDate,
		InstrumentType: p.InstrumentType,
		Remarks:        p.Remarks,
		CreatedAt:      time.Now().UTC(),
	}
	s.mu.Lock()
	s.records[vaultItemID] = append(s.records[vaultItemID], rec)
	s.mu.Unlock()
	return rec, nil
}
