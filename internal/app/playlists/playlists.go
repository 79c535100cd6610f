// Package playlists manages user-created playlists.
package playlists

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/osa030/mybeats/internal/app/notification"
	"github.com/osa030/mybeats/internal/domain/playlist"
	"github.com/osa030/mybeats/internal/domain/song"
	"github.com/osa030/mybeats/internal/infra/store"
)

var (
	// ErrNotFound is returned when no playlist has the given ID.
	ErrNotFound = errors.New("playlist not found")
	// ErrEmptyName is returned when creating or renaming without a name.
	ErrEmptyName = errors.New("playlist name is required")
	// ErrNotConfirmed is returned when a deletion was not confirmed.
	ErrNotConfirmed = errors.New("playlist deletion not confirmed")
)

// Manager owns the playlists and persists them on every change.
type Manager struct {
	mu        sync.RWMutex
	playlists []*playlist.Playlist
	store     *store.Store
	toaster   notification.Toaster
	now       func() time.Time
}

// NewManager creates an empty manager persisted to s. toaster may be nil.
func NewManager(s *store.Store, toaster notification.Toaster) *Manager {
	return &Manager{store: s, toaster: toaster, now: time.Now}
}

// Load restores playlists from the store.
func (m *Manager) Load() {
	var loaded []*playlist.Playlist
	m.store.Load(store.KeyPlaylists, &loaded)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.playlists = lo.Filter(loaded, func(p *playlist.Playlist, _ int) bool { return p != nil && p.ID != "" })
}

// Create adds a new empty playlist. IDs are time-ordered UUIDs.
func (m *Manager) Create(name, description string) (playlist.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		m.toast(notification.ToastWarning, "Please enter a playlist name")
		return playlist.Playlist{}, ErrEmptyName
	}

	id, err := uuid.NewV7()
	if err != nil {
		return playlist.Playlist{}, errors.Wrap(err, "failed to generate playlist id")
	}

	p := &playlist.Playlist{
		ID:          id.String(),
		Name:        name,
		Songs:       []song.Song{},
		Created:     m.now().UTC(),
		Description: strings.TrimSpace(description),
	}

	m.mu.Lock()
	m.playlists = append(m.playlists, p)
	m.saveLocked()
	snapshot := clone(p)
	m.mu.Unlock()

	m.toast(notification.ToastSuccess, fmt.Sprintf("Created playlist %q", name))
	return snapshot, nil
}

// AddSong appends a song to a playlist, rejecting duplicates by ID.
func (m *Manager) AddSong(id string, s song.Song) error {
	m.mu.Lock()
	p, err := m.findLocked(id)
	if err != nil {
		m.mu.Unlock()
		m.toast(notification.ToastError, "Playlist not found")
		return err
	}
	if err := p.AddSong(s); err != nil {
		m.mu.Unlock()
		m.toast(notification.ToastWarning, "Song already in playlist")
		return err
	}
	m.saveLocked()
	name := p.Name
	m.mu.Unlock()

	m.toast(notification.ToastSuccess, fmt.Sprintf("Added %q to %q", s.Title, name))
	return nil
}

// RemoveSong removes a song from a playlist and reports whether it was present.
func (m *Manager) RemoveSong(id, songID string) (bool, error) {
	m.mu.Lock()
	p, err := m.findLocked(id)
	if err != nil {
		m.mu.Unlock()
		return false, err
	}
	removed := p.RemoveSong(songID)
	if removed {
		m.saveLocked()
	}
	m.mu.Unlock()

	if removed {
		m.toast(notification.ToastInfo, "Song removed from playlist")
	}
	return removed, nil
}

// Rename changes the name of a playlist.
func (m *Manager) Rename(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	m.mu.Lock()
	p, err := m.findLocked(id)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	changed := p.Name != name
	if changed {
		p.Name = name
		m.saveLocked()
	}
	m.mu.Unlock()

	if changed {
		m.toast(notification.ToastSuccess, "Playlist renamed successfully")
	}
	return nil
}

// Delete removes a playlist. The caller must pass confirmed=true after the
// user agreed, since deletion cannot be undone.
func (m *Manager) Delete(id string, confirmed bool) error {
	m.mu.Lock()
	p, err := m.findLocked(id)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if !confirmed {
		m.mu.Unlock()
		return errors.Wrapf(ErrNotConfirmed, "delete %q", p.Name)
	}
	m.playlists = lo.Reject(m.playlists, func(x *playlist.Playlist, _ int) bool { return x.ID == id })
	m.saveLocked()
	m.mu.Unlock()

	m.toast(notification.ToastInfo, fmt.Sprintf("Deleted playlist %q", p.Name))
	return nil
}

// Get returns a copy of a playlist.
func (m *Manager) Get(id string) (playlist.Playlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, err := m.findLocked(id)
	if err != nil {
		return playlist.Playlist{}, err
	}
	return clone(p), nil
}

// List returns copies of all playlists in creation order.
func (m *Manager) List() []playlist.Playlist {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Map(m.playlists, func(p *playlist.Playlist, _ int) playlist.Playlist { return clone(p) })
}

func (m *Manager) findLocked(id string) (*playlist.Playlist, error) {
	p, ok := lo.Find(m.playlists, func(p *playlist.Playlist) bool { return p.ID == id })
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	return p, nil
}

func (m *Manager) saveLocked() {
	all := lo.Map(m.playlists, func(p *playlist.Playlist, _ int) playlist.Playlist { return *p })
	m.store.Save(store.KeyPlaylists, all)
}

func (m *Manager) toast(kind notification.ToastType, message string) {
	if m.toaster != nil {
		m.toaster.Toast(kind, message)
	}
}

func clone(p *playlist.Playlist) playlist.Playlist {
	c := *p
	c.Songs = append([]song.Song{}, p.Songs...)
	return c
}
