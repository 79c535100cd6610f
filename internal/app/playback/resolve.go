package playback

import "github.com/osa030/mybeats/internal/domain/song"

// Resolution is the outcome of ResolveNext.
type Resolution struct {
	Song      song.Song
	Index     int  // Album index, -1 for queued songs
	FromQueue bool // Song is the queue head
}

// ResolveNext decides what plays after the song at currentIndex of album.
// The queue head always wins. Otherwise shuffle picks intn(len(album)),
// possibly the current index again, and sequential order stops at the end
// of the album unless repeat is RepeatAll. A currentIndex outside the
// album resolves to its first song.
func ResolveNext(queued, album []song.Song, currentIndex int, shuffle bool, repeat RepeatMode, intn func(int) int) (Resolution, bool) {
	if len(queued) > 0 {
		return Resolution{Song: queued[0], Index: -1, FromQueue: true}, true
	}
	if len(album) == 0 {
		return Resolution{}, false
	}

	var next int
	switch {
	case shuffle:
		next = intn(len(album))
		if next < 0 || next >= len(album) {
			next = 0
		}
	case currentIndex < 0 || currentIndex >= len(album):
		next = 0
	case currentIndex+1 < len(album):
		next = currentIndex + 1
	case repeat == RepeatAll:
		next = 0
	default:
		return Resolution{}, false
	}

	return Resolution{Song: album[next], Index: next}, true
}

// ResolvePrevious returns the song before currentIndex, wrapping to the
// last song. Shuffle is not applied.
func ResolvePrevious(album []song.Song, currentIndex int) (Resolution, bool) {
	n := len(album)
	if n == 0 {
		return Resolution{}, false
	}
	if currentIndex < 0 || currentIndex >= n {
		return Resolution{Song: album[n-1], Index: n - 1}, true
	}
	prev := (currentIndex - 1 + n) % n
	return Resolution{Song: album[prev], Index: prev}, true
}

// indexOf returns the album index of the song with id, or -1.
func indexOf(album []song.Song, id string) int {
	for i, s := range album {
		if s.ID == id {
			return i
		}
	}
	return -1
}
