package playback

// EventType represents a playback event type.
type EventType int

const (
	EventSongChanged    EventType = iota // A new song became current and is loading
	EventSongLoaded                      // The current song loaded and started
	EventLoadFailed                      // Every candidate source failed
	EventStateChanged                    // Play, pause or stop
	EventTimeUpdate                      // Position moved
	EventMetadataLoaded                  // Duration became known
	EventEnded                           // The current song reached its end
	EventModeChanged                     // Shuffle or repeat changed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventSongChanged:
		return "song_changed"
	case EventSongLoaded:
		return "song_loaded"
	case EventLoadFailed:
		return "load_failed"
	case EventStateChanged:
		return "state_changed"
	case EventTimeUpdate:
		return "time_update"
	case EventMetadataLoaded:
		return "metadata_loaded"
	case EventEnded:
		return "ended"
	case EventModeChanged:
		return "mode_changed"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type  EventType
	State State // State after the change
}
