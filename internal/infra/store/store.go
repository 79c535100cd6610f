// Package store provides the persistent key-value store used to keep
// player state across restarts.
package store

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Persisted keys.
const (
	KeyThemeColor      = "theme-color"
	KeyRecentSearches  = "recentSearches"
	KeyFavoriteSongs   = "favoriteSongs"
	KeyFavoriteArtists = "favoriteArtists"
	KeyFavoriteAlbums  = "favoriteAlbums"
	KeyRecentlyPlayed  = "recentlyPlayed"
	KeyPlaylists       = "playlists"
	KeyQueue           = "queue"
)

// ErrNotFound is returned by a Backend when the key does not exist.
var ErrNotFound = errors.New("key not found")

// Backend is a durable byte-oriented key-value store.
type Backend interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Clear() error
	Close() error
}

// Store persists JSON values on top of a Backend.
// Failures are logged and reported as false; callers keep their
// in-memory state authoritative.
type Store struct {
	backend Backend
}

// New creates a store over the given backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Save encodes v as JSON under key.
func (s *Store) Save(key string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		zlog.Error().Err(err).Str("key", key).Msg("Failed to encode value for storage")
		return false
	}
	if err := s.backend.Put(key, data); err != nil {
		zlog.Error().Err(err).Str("key", key).Msg("Failed to save to storage")
		return false
	}
	return true
}

// Load decodes the value stored under key into v.
// On a miss or any error v is left untouched, so it keeps its default.
func (s *Store) Load(key string, v any) bool {
	data, err := s.backend.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			zlog.Error().Err(err).Str("key", key).Msg("Failed to load from storage")
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		zlog.Error().Err(err).Str("key", key).Msg("Failed to decode stored value")
		return false
	}
	return true
}

// Remove deletes key.
func (s *Store) Remove(key string) bool {
	if err := s.backend.Delete(key); err != nil {
		zlog.Error().Err(err).Str("key", key).Msg("Failed to remove from storage")
		return false
	}
	return true
}

// Clear deletes every key.
func (s *Store) Clear() bool {
	if err := s.backend.Clear(); err != nil {
		zlog.Error().Err(err).Msg("Failed to clear storage")
		return false
	}
	return true
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
