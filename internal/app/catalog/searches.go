package catalog

import (
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/osa030/mybeats/internal/infra/store"
)

// MaxRecentSearches is the number of remembered queries.
const MaxRecentSearches = 10

// RecentSearches remembers the latest search queries, most recent first.
type RecentSearches struct {
	mu      sync.RWMutex
	store   *store.Store
	queries []string
}

// NewRecentSearches creates an empty list backed by s.
func NewRecentSearches(s *store.Store) *RecentSearches {
	return &RecentSearches{store: s}
}

// Load restores remembered queries from the store.
func (r *RecentSearches) Load() {
	var queries []string
	r.store.Load(store.KeyRecentSearches, &queries)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = lo.Slice(queries, 0, MaxRecentSearches)
}

// Remember moves query to the front, dropping older duplicates.
func (r *RecentSearches) Remember(query string) {
	if strings.TrimSpace(query) == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	queries := lo.Without(r.queries, query)
	r.queries = lo.Slice(append([]string{query}, queries...), 0, MaxRecentSearches)
	r.store.Save(store.KeyRecentSearches, r.queries)
}

// Clear forgets every query.
func (r *RecentSearches) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.queries = nil
	r.store.Save(store.KeyRecentSearches, []string{})
}

// List returns the remembered queries.
func (r *RecentSearches) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.queries...)
}
