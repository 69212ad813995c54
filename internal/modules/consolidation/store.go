package consolidation

import (
	"sync"

	"github.com/niveshio/panorama/internal/domain"
)

// SnapshotStore holds the latest consolidated portfolio per user. Each cycle
// replaces the whole snapshot; stored portfolios are never mutated in place,
// so a reader holding a snapshot sees a consistent view while the next cycle
// runs.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*domain.ConsolidatedPortfolio
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: make(map[string]*domain.ConsolidatedPortfolio),
	}
}

// Put replaces the user's snapshot with the given portfolio.
func (s *SnapshotStore) Put(p *domain.ConsolidatedPortfolio) {
	if p == nil || p.UserID == "" {
		return
	}

	s.mu.Lock()
	s.snapshots[p.UserID] = p
	s.mu.Unlock()
}

// Get returns the user's latest snapshot, if any.
func (s *SnapshotStore) Get(userID string) (*domain.ConsolidatedPortfolio, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.snapshots[userID]
	return p, ok
}
