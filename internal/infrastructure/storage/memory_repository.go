package storage

import (
	"context"
	"sync"

	"GrantScanner/internal/domain"
	"GrantScanner/internal/ports"
)

// MemoryRepository keeps the proposal table and metrics snapshot in process memory.
type MemoryRepository struct {
	mu        sync.RWMutex
	proposals []domain.Proposal
	summary   *domain.MetricsSummary
}

var (
	_ ports.ProposalRepository = (*MemoryRepository)(nil)
	_ ports.MetricsCache       = (*MemoryRepository)(nil)
)

// NewMemoryRepository returns an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// SaveProposals replaces the stored table with the latest processing pass.
func (r *MemoryRepository) SaveProposals(_ context.Context, proposals []domain.Proposal) error {
	snapshot := make([]domain.Proposal, len(proposals))
	copy(snapshot, proposals)

	r.mu.Lock()
	r.proposals = snapshot
	r.mu.Unlock()
	return nil
}

// LoadProposals returns a copy of the stored table.
func (r *MemoryRepository) LoadProposals(_ context.Context) ([]domain.Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Proposal, len(r.proposals))
	copy(out, r.proposals)
	return out, nil
}

// SaveMetrics replaces the cached summary.
func (r *MemoryRepository) SaveMetrics(_ context.Context, summary domain.MetricsSummary) error {
	r.mu.Lock()
	r.summary = &summary
	r.mu.Unlock()
	return nil
}

// LoadMetrics returns the cached summary if one was saved.
func (r *MemoryRepository) LoadMetrics(_ context.Context) (domain.MetricsSummary, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.summary == nil {
		return domain.MetricsSummary{}, false, nil
	}
	return *r.summary, true, nil
}
