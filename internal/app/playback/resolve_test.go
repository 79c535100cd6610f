package playback

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/mybeats/internal/domain/song"
)

func fixedIntn(v int) func(int) int {
	return func(int) int { return v }
}

func TestResolveNext(t *testing.T) {
	album := []song.Song{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	queued := []song.Song{{ID: "q"}}

	tests := []struct {
		name      string
		queued    []song.Song
		album     []song.Song
		index     int
		shuffle   bool
		repeat    RepeatMode
		intn      func(int) int
		wantID    string
		wantIndex int
		wantOK    bool
	}{
		{name: "queue head wins", queued: queued, album: album, index: 0, wantID: "q", wantIndex: -1, wantOK: true},
		{name: "sequential", album: album, index: 0, wantID: "b", wantIndex: 1, wantOK: true},
		{name: "end of album stops", album: album, index: 2, wantOK: false},
		{name: "end of album with repeat one stops", album: album, index: 2, repeat: RepeatOne, wantOK: false},
		{name: "repeat all wraps", album: album, index: 2, repeat: RepeatAll, wantID: "a", wantIndex: 0, wantOK: true},
		{name: "single song repeat all replays", album: album[:1], index: 0, repeat: RepeatAll, wantID: "a", wantIndex: 0, wantOK: true},
		{name: "unknown index starts album", album: album, index: -1, wantID: "a", wantIndex: 0, wantOK: true},
		{name: "shuffle picks intn", album: album, index: 0, shuffle: true, intn: fixedIntn(2), wantID: "c", wantIndex: 2, wantOK: true},
		{name: "shuffle accepts same index", album: album, index: 1, shuffle: true, intn: fixedIntn(1), wantID: "b", wantIndex: 1, wantOK: true},
		{name: "shuffle ignores end of album", album: album, index: 2, shuffle: true, intn: fixedIntn(0), wantID: "a", wantIndex: 0, wantOK: true},
		{name: "out of range intn is clamped", album: album, index: 0, shuffle: true, intn: fixedIntn(7), wantID: "a", wantIndex: 0, wantOK: true},
		{name: "empty album", album: nil, index: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intn := tt.intn
			if intn == nil {
				intn = fixedIntn(0)
			}
			res, ok := ResolveNext(tt.queued, tt.album, tt.index, tt.shuffle, tt.repeat, intn)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, res.Song.ID)
				assert.Equal(t, tt.wantIndex, res.Index)
				assert.Equal(t, len(tt.queued) > 0, res.FromQueue)
			}
		})
	}
}

func TestResolveNext_ShuffleStaysInBounds(t *testing.T) {
	album := []song.Song{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"}}
	for i := 0; i < 200; i++ {
		res, ok := ResolveNext(nil, album, i%len(album), true, RepeatOff, rand.IntN)
		assert.True(t, ok)
		assert.GreaterOrEqual(t, res.Index, 0)
		assert.Less(t, res.Index, len(album))
	}
}

func TestResolvePrevious(t *testing.T) {
	album := []song.Song{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	tests := []struct {
		name   string
		album  []song.Song
		index  int
		wantID string
		wantOK bool
	}{
		{name: "previous", album: album, index: 2, wantID: "b", wantOK: true},
		{name: "wraps to last", album: album, index: 0, wantID: "c", wantOK: true},
		{name: "unknown index goes to last", album: album, index: -1, wantID: "c", wantOK: true},
		{name: "empty album", album: nil, index: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := ResolvePrevious(tt.album, tt.index)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantID, res.Song.ID)
			}
		})
	}
}
