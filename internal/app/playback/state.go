// Package playback owns the currently loaded song and every playback
// transition: play, pause, next, previous, seek and the end-of-song policy.
package playback

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/mybeats/internal/domain/song"
)

// Status represents the lifecycle of the current song.
type Status int

const (
	StatusIdle    Status = iota // Nothing loaded, or stopped
	StatusLoading               // Audio loader is resolving a source
	StatusPlaying               // Element is playing
	StatusPaused                // Element is paused, or the load failed
	StatusEnded                 // Song reached its end
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// RepeatMode is the repeat policy.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota // Stop at the end of the album
	RepeatAll                   // Wrap to the start of the album
	RepeatOne                   // Restart the current song when it ends
)

// String returns the string representation of the repeat mode.
func (r RepeatMode) String() string {
	switch r {
	case RepeatOff:
		return "off"
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "unknown"
	}
}

// Next returns the mode that follows r in the OFF, ALL, ONE cycle.
func (r RepeatMode) Next() RepeatMode {
	switch r {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// ParseRepeatMode parses "off", "all" or "one".
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return RepeatOff, nil
	case "all":
		return RepeatAll, nil
	case "one":
		return RepeatOne, nil
	default:
		return RepeatOff, errors.Newf("unknown repeat mode %q", s)
	}
}

// State is a point-in-time copy of the playback state.
type State struct {
	Song         *song.Song
	Artist       string
	Album        string
	Status       Status
	IsPlaying    bool
	Duration     float64 // Seconds; 0 until known
	CurrentTime  float64 // Seconds
	TotalTime    float64 // Seconds reported by the element
	CurrentIndex int     // Index within the album, -1 when unknown
	Shuffle      bool
	Repeat       RepeatMode
}

// Length returns the song length in seconds: the engine duration when
// known, otherwise what the element reports.
func (s State) Length() float64 {
	if s.Duration > 0 {
		return s.Duration
	}
	return s.TotalTime
}
