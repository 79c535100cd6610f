package playlist

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/mybeats/internal/domain/song"
)

func TestPlaylist_SongIDs(t *testing.T) {
	tests := []struct {
		name     string
		songs    []song.Song
		expected []string
	}{
		{
			name:     "empty playlist",
			songs:    []song.Song{},
			expected: []string{},
		},
		{
			name:     "single song",
			songs:    []song.Song{{ID: "song-1"}},
			expected: []string{"song-1"},
		},
		{
			name:     "multiple songs",
			songs:    []song.Song{{ID: "song-1"}, {ID: "song-2"}, {ID: "song-3"}},
			expected: []string{"song-1", "song-2", "song-3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Playlist{ID: "playlist-1", Songs: tt.songs}
			assert.Equal(t, tt.expected, p.SongIDs())
		})
	}
}

func TestPlaylist_AddSong(t *testing.T) {
	p := &Playlist{Name: "Road trip"}

	require.NoError(t, p.AddSong(song.Song{ID: "1", Title: "One", Cover: "https://img/one.png"}))
	require.NoError(t, p.AddSong(song.Song{ID: "2", Title: "Two", Cover: "https://img/two.png"}))

	err := p.AddSong(song.Song{ID: "1", Title: "One again"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateSong))

	assert.Equal(t, []string{"1", "2"}, p.SongIDs())
	assert.Equal(t, "https://img/one.png", p.Cover)
}

func TestPlaylist_RemoveSong(t *testing.T) {
	p := &Playlist{Songs: []song.Song{{ID: "1"}, {ID: "2"}, {ID: "3"}}}

	assert.True(t, p.RemoveSong("2"))
	assert.False(t, p.RemoveSong("2"))
	assert.Equal(t, []string{"1", "3"}, p.SongIDs())
}

func TestPlaylist_TotalDuration(t *testing.T) {
	tests := []struct {
		name     string
		songs    []song.Song
		expected int64
	}{
		{name: "empty playlist", songs: nil, expected: 0},
		{
			name:     "multiple songs",
			songs:    []song.Song{{Duration: "3:00"}, {Duration: "2:30"}, {Duration: "1:00"}},
			expected: 390,
		},
		{
			name:     "malformed duration counts as zero",
			songs:    []song.Song{{Duration: "3:00"}, {Duration: "n/a"}},
			expected: 180,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Playlist{Songs: tt.songs}
			assert.Equal(t, tt.expected, p.TotalDuration())
		})
	}
}
