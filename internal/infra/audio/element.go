// Package audio provides the audio element abstraction driven by the
// playback engine, and an HTTP-backed implementation of it.
package audio

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNoSource is returned when playing an element without a loaded source.
	ErrNoSource = errors.New("no audio source loaded")
	// ErrSourceChanged is returned by Load when the source was replaced mid-load.
	ErrSourceChanged = errors.New("audio source changed during load")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("audio element closed")
)

// EventType represents the type of element event.
type EventType int

const (
	EventPlay EventType = iota
	EventPause
	EventTimeUpdate
	EventLoadedMetadata
	EventEnded
	EventError
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventPlay:
		return "play"
	case EventPause:
		return "pause"
	case EventTimeUpdate:
		return "timeupdate"
	case EventLoadedMetadata:
		return "loadedmetadata"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is emitted by an element when its state changes.
type Event struct {
	Type EventType
	Src  string
	Err  error
}

// Element is a single-source media element. Only the playback engine drives it.
type Element interface {
	// SetSource replaces the source and abandons any loaded resource.
	SetSource(src string)
	// Source returns the current source.
	Source() string
	// Load blocks until the source can play through, or fails.
	Load(ctx context.Context) error
	// Play starts or resumes playback.
	Play() error
	// Pause pauses playback.
	Pause()
	// Paused reports whether playback is paused.
	Paused() bool
	// CurrentTime returns the playback position.
	CurrentTime() time.Duration
	// SetCurrentTime moves the playback position.
	SetCurrentTime(d time.Duration)
	// Duration returns the media duration, 0 until metadata is known.
	Duration() time.Duration
	// Events returns the event channel.
	Events() <-chan Event
	// Close releases the element.
	Close() error
}
