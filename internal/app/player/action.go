package player

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mybeats/internal/app/favorites"
	"github.com/osa030/mybeats/internal/domain/song"
)

// ErrUnknownAction is returned for action names outside ActionKind.
var ErrUnknownAction = errors.New("unknown action")

// ErrQueueIndex is returned when remove-queue names no queued song.
var ErrQueueIndex = errors.New("queue index out of range")

// ActionKind is a user action on a song.
type ActionKind int

const (
	ActionPlaySong ActionKind = iota
	ActionFavorite
	ActionPlayNext
	ActionAddQueue
	ActionRemoveQueue
	ActionAddPlaylist
	ActionRemoveFromPlaylist
)

// ActionKinds lists every action kind.
var ActionKinds = []ActionKind{
	ActionPlaySong,
	ActionFavorite,
	ActionPlayNext,
	ActionAddQueue,
	ActionRemoveQueue,
	ActionAddPlaylist,
	ActionRemoveFromPlaylist,
}

// String returns the wire name of the action kind.
func (k ActionKind) String() string {
	switch k {
	case ActionPlaySong:
		return "play-song"
	case ActionFavorite:
		return "favorite"
	case ActionPlayNext:
		return "play-next"
	case ActionAddQueue:
		return "add-queue"
	case ActionRemoveQueue:
		return "remove-queue"
	case ActionAddPlaylist:
		return "add-playlist"
	case ActionRemoveFromPlaylist:
		return "remove-from-playlist"
	default:
		return "unknown"
	}
}

// ParseActionKind parses a wire name.
func ParseActionKind(s string) (ActionKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, k := range ActionKinds {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownAction, "%q", s)
}

// Action is one user action. Song is the subject of every kind; QueueIndex
// is used by remove-queue and PlaylistID by the playlist kinds.
type Action struct {
	Kind       ActionKind
	Song       song.Song
	QueueIndex int
	PlaylistID string
}

// Dispatch performs an action.
func (m *Manager) Dispatch(ctx context.Context, a Action) error {
	zlog.Debug().Msgf("player: dispatch %s song=%q", a.Kind, a.Song.Title)

	switch a.Kind {
	case ActionPlaySong:
		return m.engine.PlaySong(ctx, a.Song)

	case ActionFavorite:
		if err := a.Song.Validate(); err != nil {
			return err
		}
		_, err := m.favorites.Toggle(favorites.Songs, a.Song.ID)
		return err

	case ActionPlayNext:
		if err := a.Song.Validate(); err != nil {
			return err
		}
		m.queue.AddAt(a.Song, 0)
		return nil

	case ActionAddQueue:
		if err := a.Song.Validate(); err != nil {
			return err
		}
		m.queue.Add(a.Song)
		return nil

	case ActionRemoveQueue:
		if _, ok := m.queue.Remove(a.QueueIndex); !ok {
			return errors.Wrapf(ErrQueueIndex, "%d", a.QueueIndex)
		}
		return nil

	case ActionAddPlaylist:
		if err := a.Song.Validate(); err != nil {
			return err
		}
		return m.playlists.AddSong(a.PlaylistID, a.Song)

	case ActionRemoveFromPlaylist:
		_, err := m.playlists.RemoveSong(a.PlaylistID, a.Song.ID)
		return err

	default:
		return errors.Wrapf(ErrUnknownAction, "kind %d", int(a.Kind))
	}
}
