// Package history provides the recently-played list consumed by "previous".
package history

import (
	"sync"

	"github.com/samber/lo"

	"github.com/osa030/mybeats/internal/domain/song"
	"github.com/osa030/mybeats/internal/infra/store"
)

// Default bounds.
const (
	DefaultMaxEntries       = 50
	DefaultPersistedEntries = 20
)

// History is a bounded most-recent-first list of played songs.
type History struct {
	mu        sync.RWMutex
	items     []song.Song
	store     *store.Store
	max       int
	persisted int
}

// New creates an empty history. Non-positive bounds fall back to defaults.
func New(s *store.Store, maxEntries, persistedEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if persistedEntries < 0 {
		persistedEntries = DefaultPersistedEntries
	}
	return &History{
		store:     s,
		max:       maxEntries,
		persisted: min(persistedEntries, maxEntries),
	}
}

// Load restores the history from the store.
func (h *History) Load() {
	var items []song.Song
	h.store.Load(store.KeyRecentlyPlayed, &items)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = lo.Slice(items, 0, h.max)
}

// Add pushes a song to the front.
func (h *History) Add(s song.Song) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items = lo.Slice(append([]song.Song{s}, h.items...), 0, h.max)
	h.persistLocked()
}

// PopFront removes and returns the most recent song.
func (h *History) PopFront() (song.Song, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.items) == 0 {
		return song.Song{}, false
	}
	front := h.items[0]
	h.items = append([]song.Song(nil), h.items[1:]...)
	h.persistLocked()
	return front, true
}

// Front returns the most recent song without removing it.
func (h *History) Front() (song.Song, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.items) == 0 {
		return song.Song{}, false
	}
	return h.items[0], true
}

// Items returns a snapshot, most recent first.
func (h *History) Items() []song.Song {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]song.Song(nil), h.items...)
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}

func (h *History) persistLocked() {
	persisted := append([]song.Song{}, lo.Slice(h.items, 0, h.persisted)...)
	h.store.Save(store.KeyRecentlyPlayed, persisted)
}
