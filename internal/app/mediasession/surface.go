// Package mediasession mirrors playback state onto the operating system's
// now-playing surface and routes its transport controls back to the engine.
package mediasession

import (
	"github.com/osa030/mybeats/internal/app/catalog"
)

// PlaybackState is the state advertised to the surface.
type PlaybackState string

const (
	StateNone    PlaybackState = "none"
	StatePaused  PlaybackState = "paused"
	StatePlaying PlaybackState = "playing"
)

// Action is a transport control offered by the surface.
type Action string

const (
	ActionPlay          Action = "play"
	ActionPause         Action = "pause"
	ActionStop          Action = "stop"
	ActionPreviousTrack Action = "previoustrack"
	ActionNextTrack     Action = "nexttrack"
	ActionSeekTo        Action = "seekto"
	ActionSeekBackward  Action = "seekbackward"
	ActionSeekForward   Action = "seekforward"
)

// Actions lists every action the bridge registers.
var Actions = []Action{
	ActionPlay,
	ActionPause,
	ActionStop,
	ActionPreviousTrack,
	ActionNextTrack,
	ActionSeekTo,
	ActionSeekBackward,
	ActionSeekForward,
}

// ActionDetails carries the arguments of seek actions.
type ActionDetails struct {
	SeekTime   float64 // Absolute position in seconds, seekto only
	SeekOffset float64 // Relative offset in seconds, 0 selects the default
	FastSeek   bool
}

// ActionHandler handles one action.
type ActionHandler func(details ActionDetails)

// Metadata describes the now-playing song.
type Metadata struct {
	Title   string
	Artist  string
	Album   string
	Artwork []catalog.Artwork
}

// PositionState describes the playback position.
type PositionState struct {
	Duration     float64
	PlaybackRate float64
	Position     float64
}

// Surface is an operating system now-playing integration.
type Surface interface {
	// Available reports whether the host supports a media session.
	Available() bool
	SetMetadata(m Metadata) error
	ClearMetadata() error
	SetPlaybackState(state PlaybackState) error
	// SetPositionState publishes the position; nil resets it.
	SetPositionState(state *PositionState) error
	SetActionHandler(action Action, handler ActionHandler) error
}
