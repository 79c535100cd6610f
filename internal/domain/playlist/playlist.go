// Package playlist provides the Playlist domain entity.
package playlist

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/mybeats/internal/domain/song"
)

// ErrDuplicateSong is returned when a song is already in the playlist.
var ErrDuplicateSong = errors.New("song already in playlist")

// Playlist represents a user-created playlist.
type Playlist struct {
	ID          string      `json:"id"`          // Time-ordered unique ID
	Name        string      `json:"name"`        // Playlist name
	Songs       []song.Song `json:"songs"`       // Songs in play order
	Created     time.Time   `json:"created"`     // Creation time
	Description string      `json:"description"` // Free-form description
	Cover       string      `json:"cover"`       // Cover art URL
}

// SongIDs returns all song IDs in the playlist.
func (p *Playlist) SongIDs() []string {
	ids := make([]string, len(p.Songs))
	for i, s := range p.Songs {
		ids[i] = s.ID
	}
	return ids
}

// Contains reports whether a song with the given ID is in the playlist.
func (p *Playlist) Contains(songID string) bool {
	for _, s := range p.Songs {
		if s.ID == songID {
			return true
		}
	}
	return false
}

// AddSong appends a song, rejecting duplicates by ID.
// The first song added also provides the playlist cover when none is set.
func (p *Playlist) AddSong(s song.Song) error {
	if p.Contains(s.ID) {
		return errors.Wrapf(ErrDuplicateSong, "%q in %q", s.Title, p.Name)
	}
	p.Songs = append(p.Songs, s)
	if p.Cover == "" {
		p.Cover = s.Cover
	}
	return nil
}

// RemoveSong removes the song with the given ID and reports whether it was present.
func (p *Playlist) RemoveSong(songID string) bool {
	for i, s := range p.Songs {
		if s.ID == songID {
			p.Songs = append(p.Songs[:i], p.Songs[i+1:]...)
			return true
		}
	}
	return false
}

// TotalDuration returns the total duration of all songs in seconds.
func (p *Playlist) TotalDuration() int64 {
	var total int64
	for _, s := range p.Songs {
		total += int64(s.Seconds())
	}
	return total
}
