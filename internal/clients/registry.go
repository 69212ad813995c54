package clients

import (
	"fmt"
	"sort"
	"strings"

	"github.com/niveshio/panorama/internal/apperrors"
	"github.com/niveshio/panorama/internal/domain"
)

// Registry resolves broker identifiers to their adapters. It is populated
// once at wire-up and read-only afterwards.
type Registry struct {
	adapters map[string]domain.BrokerAdapter
}

// NewRegistry creates a registry from the given adapters, keyed by each
// adapter's own BrokerID.
func NewRegistry(adapters ...domain.BrokerAdapter) *Registry {
	r := &Registry{adapters: make(map[string]domain.BrokerAdapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.BrokerID()] = a
	}
	return r
}

// Get returns the adapter for a broker id.
func (r *Registry) Get(brokerID string) (domain.BrokerAdapter, error) {
	adapter, ok := r.adapters[strings.ToLower(strings.TrimSpace(brokerID))]
	if !ok {
		return nil, fmt.Errorf("no adapter for broker %q: %w", brokerID, apperrors.ErrInvalidBrokerID)
	}
	return adapter, nil
}

// BrokerIDs returns the registered broker ids in sorted order.
func (r *Registry) BrokerIDs() []string {
	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
