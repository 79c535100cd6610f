package loader

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/mybeats/internal/domain/song"
	"github.com/osa030/mybeats/internal/infra/audio"
	"github.com/osa030/mybeats/internal/infra/audio/audiotest"
)

func TestLoader_URL(t *testing.T) {
	l := New("https://cdn.example.com/audio/", nil)

	assert.Equal(t, []string{"mp3", "ogg", "m4a"}, l.Formats())
	assert.Equal(t, "https://cdn.example.com/audio/midnightdrive.mp3", l.URL("Midnight Drive!", "mp3"))
	assert.Equal(t, "https://cdn.example.com/audio/dontstop.ogg", l.URL("Don't Stop", "ogg"))
	assert.Equal(t, "", l.URL("?!", "mp3"))
}

func TestLoader_Load(t *testing.T) {
	s := song.Song{ID: "1", Title: "Neon Rain"}
	base := "https://cdn.example.com/audio"

	tests := []struct {
		name         string
		fail         []string
		wantAttempts []string
		wantFormat   string
		wantErr      error
		wantPlaying  bool
	}{
		{
			name:         "first format plays",
			wantAttempts: []string{base + "/neonrain.mp3"},
			wantFormat:   "mp3",
			wantPlaying:  true,
		},
		{
			name:         "falls back to m4a",
			fail:         []string{"mp3", "ogg"},
			wantAttempts: []string{base + "/neonrain.mp3", base + "/neonrain.ogg", base + "/neonrain.m4a"},
			wantFormat:   "m4a",
			wantPlaying:  true,
		},
		{
			name:         "all formats fail",
			fail:         []string{"mp3", "ogg", "m4a"},
			wantAttempts: []string{base + "/neonrain.mp3", base + "/neonrain.ogg", base + "/neonrain.m4a"},
			wantErr:      ErrAllFormatsFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := audiotest.NewElement()
			el.LoadHook = audiotest.FailFormats(tt.fail...)
			l := New(base, []string{"mp3", "ogg", "m4a"})

			res := l.Load(context.Background(), el, s)

			assert.Equal(t, tt.wantAttempts, res.Attempts)
			assert.Equal(t, tt.wantAttempts, el.Loads())
			assert.Equal(t, tt.wantFormat, res.Format)
			assert.Equal(t, tt.wantPlaying, !el.Paused())
			if tt.wantErr != nil {
				assert.True(t, errors.Is(res.Err, tt.wantErr))
				assert.False(t, res.OK())
				assert.Empty(t, res.URL)
			} else {
				require.NoError(t, res.Err)
				assert.True(t, res.OK())
				assert.Equal(t, el.Source(), res.URL)
			}
		})
	}
}

func TestLoader_EmptyFilename(t *testing.T) {
	el := audiotest.NewElement()
	l := New("https://cdn.example.com", nil)

	res := l.Load(context.Background(), el, song.Song{ID: "x", Title: "!!!"})

	assert.True(t, errors.Is(res.Err, ErrEmptyFilename))
	assert.Empty(t, res.Attempts)
	assert.Empty(t, el.Loads())
}

func TestLoader_CanceledContext(t *testing.T) {
	el := audiotest.NewElement()
	l := New("https://cdn.example.com", nil)

	ctx, cancel := context.WithCancel(context.Background())
	// the first candidate fails and cancels, so no further candidate is tried
	el.LoadHook = func(_ context.Context, _ string) error {
		cancel()
		return audio.ErrNoSource
	}

	res := l.Load(ctx, el, song.Song{ID: "1", Title: "Echo"})

	require.Error(t, res.Err)
	assert.False(t, errors.Is(res.Err, ErrAllFormatsFailed))
	assert.Len(t, el.Loads(), 1)
}

func TestLoader_PlayRejected(t *testing.T) {
	el := audiotest.NewElement()
	el.PlayErr = errors.New("autoplay blocked")
	l := New("https://cdn.example.com", nil)

	res := l.Load(context.Background(), el, song.Song{ID: "1", Title: "Echo"})

	assert.True(t, errors.Is(res.Err, ErrAllFormatsFailed))
	assert.Len(t, res.Attempts, 3)
	assert.Empty(t, res.Format)
	assert.True(t, el.Paused())
}
