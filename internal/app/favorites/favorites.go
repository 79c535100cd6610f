// Package favorites provides the favorite songs, artists and albums sets.
package favorites

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/osa030/mybeats/internal/app/notification"
	"github.com/osa030/mybeats/internal/infra/store"
)

// Type selects one of the favorite sets.
type Type int

const (
	Songs Type = iota
	Artists
	Albums
)

// ErrUnknownType is returned for a Type outside Types.
var ErrUnknownType = errors.New("unknown favorite type")

// Types lists every favorite set.
var Types = []Type{Songs, Artists, Albums}

// String returns the string representation of the type.
func (t Type) String() string {
	switch t {
	case Songs:
		return "songs"
	case Artists:
		return "artists"
	case Albums:
		return "albums"
	default:
		return "unknown"
	}
}

// ParseType parses "songs", "artists" or "albums".
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownType, "%q", s)
}

func (t Type) valid() bool {
	return t >= Songs && t <= Albums
}

// itemName is the singular noun used in messages.
func (t Type) itemName() string {
	switch t {
	case Songs:
		return "song"
	case Artists:
		return "artist"
	case Albums:
		return "album"
	default:
		return "item"
	}
}

func (t Type) storageKey() string {
	switch t {
	case Songs:
		return store.KeyFavoriteSongs
	case Artists:
		return store.KeyFavoriteArtists
	case Albums:
		return store.KeyFavoriteAlbums
	default:
		return ""
	}
}

// Notifier receives favorite changes.
type Notifier interface {
	notification.Toaster
	FavoriteChanged(kind, id string, favorite bool)
}

// Favorites holds three independent identity sets: song IDs, artist names
// and album names. Sets keep insertion order.
type Favorites struct {
	mu       sync.RWMutex
	sets     map[Type][]string
	store    *store.Store
	notifier Notifier
}

// New creates empty favorites persisted to s. notifier may be nil.
func New(s *store.Store, notifier Notifier) *Favorites {
	return &Favorites{
		sets:     map[Type][]string{Songs: {}, Artists: {}, Albums: {}},
		store:    s,
		notifier: notifier,
	}
}

// Load restores all sets from the store.
func (f *Favorites) Load() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range Types {
		var ids []string
		f.store.Load(t.storageKey(), &ids)
		f.sets[t] = lo.Uniq(ids)
	}
}

// Add marks id as favorite. It re-persists even when already present.
func (f *Favorites) Add(t Type, id string) error {
	if !t.valid() {
		return errors.Wrapf(ErrUnknownType, "%d", int(t))
	}

	f.mu.Lock()
	if !lo.Contains(f.sets[t], id) {
		f.sets[t] = append(f.sets[t], id)
	}
	f.saveLocked(t)
	f.mu.Unlock()

	f.notify(t, id, true)
	return nil
}

// Remove unmarks id. It re-persists even when absent.
func (f *Favorites) Remove(t Type, id string) error {
	if !t.valid() {
		return errors.Wrapf(ErrUnknownType, "%d", int(t))
	}

	f.mu.Lock()
	f.sets[t] = lo.Without(f.sets[t], id)
	f.saveLocked(t)
	f.mu.Unlock()

	f.notify(t, id, false)
	return nil
}

// Toggle flips membership and returns the new state.
func (f *Favorites) Toggle(t Type, id string) (bool, error) {
	if f.Has(t, id) {
		return false, f.Remove(t, id)
	}
	if err := f.Add(t, id); err != nil {
		return false, err
	}
	return true, nil
}

// Has reports membership.
func (f *Favorites) Has(t Type, id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return lo.Contains(f.sets[t], id)
}

// List returns the members of a set in insertion order.
func (f *Favorites) List(t Type) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string{}, f.sets[t]...)
}

// Count returns the size of a set.
func (f *Favorites) Count(t Type) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sets[t])
}

func (f *Favorites) saveLocked(t Type) {
	f.store.Save(t.storageKey(), f.sets[t])
}

func (f *Favorites) notify(t Type, id string, favorite bool) {
	if f.notifier == nil {
		return
	}
	f.notifier.FavoriteChanged(t.String(), id, favorite)
	if favorite {
		f.notifier.Toast(notification.ToastSuccess, "Added "+t.itemName()+" to favorites")
	} else {
		f.notifier.Toast(notification.ToastInfo, "Removed "+t.itemName()+" from favorites")
	}
}
