// Package mpris exposes the media session on the D-Bus session bus using
// the MPRIS MediaPlayer2 interfaces.
package mpris

import (
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mybeats/internal/app/mediasession"
)

const (
	objectPath      dbus.ObjectPath = "/org/mpris/MediaPlayer2"
	rootInterface                   = "org.mpris.MediaPlayer2"
	playerInterface                 = "org.mpris.MediaPlayer2.Player"
	busNamePrefix                   = "org.mpris.MediaPlayer2."
	trackPathPrefix                 = "/org/mybeats/track/"
	noTrack         dbus.ObjectPath = "/org/mpris/MediaPlayer2/TrackList/NoTrack"
)

// MPRIS playback status values.
const (
	statusPlaying = "Playing"
	statusPaused  = "Paused"
	statusStopped = "Stopped"
)

// Surface is a mediasession.Surface backed by MPRIS. A Surface without a
// bus connection reports itself unavailable.
type Surface struct {
	mu sync.Mutex

	conn  *dbus.Conn
	props *prop.Properties
	name  string

	handlers map[mediasession.Action]mediasession.ActionHandler
	status   string
	trackID  dbus.ObjectPath
	trackSeq uint64
	metadata mediasession.Metadata
	hasTrack bool
	length   int64 // Microseconds
}

// Connect claims org.mpris.MediaPlayer2.<name> on the session bus and
// exports the player object.
func Connect(name string) (*Surface, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to session bus")
	}

	s := newSurface(name)
	s.conn = conn

	if err := s.export(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	reply, err := conn.RequestName(busNamePrefix+name, dbus.NameFlagDoNotQueue)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "failed to request bus name")
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		_ = conn.Close()
		return nil, errors.Newf("bus name %s%s already taken", busNamePrefix, name)
	}

	zlog.Info().Msgf("mpris: exported %s%s", busNamePrefix, name)
	return s, nil
}

func newSurface(name string) *Surface {
	return &Surface{
		name:     name,
		handlers: make(map[mediasession.Action]mediasession.ActionHandler),
		status:   statusStopped,
		trackID:  noTrack,
	}
}

// export publishes the root and player objects with their properties.
func (s *Surface) export() error {
	root := &rootObject{}
	player := &playerObject{surface: s}

	if err := s.conn.Export(root, objectPath, rootInterface); err != nil {
		return errors.Wrap(err, "failed to export root object")
	}
	if err := s.conn.Export(player, objectPath, playerInterface); err != nil {
		return errors.Wrap(err, "failed to export player object")
	}

	props, err := prop.Export(s.conn, objectPath, s.propertySpec())
	if err != nil {
		return errors.Wrap(err, "failed to export properties")
	}
	s.props = props

	node := &introspect.Node{
		Name: string(objectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       rootInterface,
				Methods:    introspect.Methods(root),
				Properties: props.Introspection(rootInterface),
			},
			{
				Name:       playerInterface,
				Methods:    introspect.Methods(player),
				Properties: props.Introspection(playerInterface),
				Signals: []introspect.Signal{{
					Name: "Seeked",
					Args: []introspect.Arg{{Name: "Position", Type: "x"}},
				}},
			},
		},
	}
	if err := s.conn.Export(introspect.NewIntrospectable(node), objectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return errors.Wrap(err, "failed to export introspection")
	}
	return nil
}

func (s *Surface) propertySpec() prop.Map {
	ro := func(v any) *prop.Prop {
		return &prop.Prop{Value: v, Writable: false, Emit: prop.EmitTrue}
	}
	return prop.Map{
		rootInterface: {
			"CanQuit":             ro(false),
			"CanRaise":            ro(false),
			"HasTrackList":        ro(false),
			"Identity":            ro(s.name),
			"SupportedUriSchemes": ro([]string{}),
			"SupportedMimeTypes":  ro([]string{}),
		},
		playerInterface: {
			"PlaybackStatus": ro(statusStopped),
			"Rate":           ro(1.0),
			"Metadata":       ro(map[string]dbus.Variant{"mpris:trackid": dbus.MakeVariant(noTrack)}),
			"Volume":         ro(1.0),
			"Position":       {Value: int64(0), Writable: false, Emit: prop.EmitFalse},
			"MinimumRate":    ro(1.0),
			"MaximumRate":    ro(1.0),
			"CanGoNext":      ro(false),
			"CanGoPrevious":  ro(false),
			"CanPlay":        ro(false),
			"CanPause":       ro(false),
			"CanSeek":        ro(false),
			"CanControl":     ro(true),
		},
	}
}

// Available implements mediasession.Surface.
func (s *Surface) Available() bool {
	return s != nil && s.conn != nil
}

// SetMetadata implements mediasession.Surface.
func (s *Surface) SetMetadata(m mediasession.Metadata) error {
	s.mu.Lock()
	s.trackSeq++
	s.trackID = dbus.ObjectPath(trackPathPrefix + strconv.FormatUint(s.trackSeq, 10))
	s.metadata = m
	s.hasTrack = true
	s.length = 0
	value := s.metadataLocked()
	s.mu.Unlock()

	return s.set(playerInterface, "Metadata", value)
}

// ClearMetadata implements mediasession.Surface.
func (s *Surface) ClearMetadata() error {
	s.mu.Lock()
	s.trackID = noTrack
	s.metadata = mediasession.Metadata{}
	s.hasTrack = false
	s.length = 0
	value := s.metadataLocked()
	s.mu.Unlock()

	return s.set(playerInterface, "Metadata", value)
}

// SetPlaybackState implements mediasession.Surface.
func (s *Surface) SetPlaybackState(state mediasession.PlaybackState) error {
	status := statusOf(state)

	s.mu.Lock()
	s.status = status
	s.mu.Unlock()

	return s.set(playerInterface, "PlaybackStatus", status)
}

// SetPositionState implements mediasession.Surface.
func (s *Surface) SetPositionState(state *mediasession.PositionState) error {
	var position, length int64
	if state != nil {
		position = microseconds(state.Position)
		length = microseconds(state.Duration)
	}

	s.mu.Lock()
	lengthChanged := s.hasTrack && length > 0 && length != s.length
	if lengthChanged {
		s.length = length
	}
	metadata := s.metadataLocked()
	s.mu.Unlock()

	if lengthChanged {
		if err := s.set(playerInterface, "Metadata", metadata); err != nil {
			return err
		}
	}
	return s.set(playerInterface, "Position", position)
}

// SetActionHandler implements mediasession.Surface.
func (s *Surface) SetActionHandler(action mediasession.Action, handler mediasession.ActionHandler) error {
	s.mu.Lock()
	s.handlers[action] = handler
	s.mu.Unlock()

	caps := map[string][]mediasession.Action{
		"CanGoNext":     {mediasession.ActionNextTrack},
		"CanGoPrevious": {mediasession.ActionPreviousTrack},
		"CanPlay":       {mediasession.ActionPlay},
		"CanPause":      {mediasession.ActionPause},
		"CanSeek":       {mediasession.ActionSeekTo, mediasession.ActionSeekForward, mediasession.ActionSeekBackward},
	}
	for name, actions := range caps {
		for _, a := range actions {
			if a == action {
				if err := s.set(playerInterface, name, handler != nil); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Close releases the bus name and connection.
func (s *Surface) Close() error {
	if !s.Available() {
		return nil
	}
	if _, err := s.conn.ReleaseName(busNamePrefix + s.name); err != nil {
		zlog.Debug().Err(err).Msg("mpris: failed to release bus name")
	}
	return s.conn.Close()
}

// invoke runs the handler registered for action.
func (s *Surface) invoke(action mediasession.Action, details mediasession.ActionDetails) *dbus.Error {
	s.mu.Lock()
	handler := s.handlers[action]
	s.mu.Unlock()

	if handler == nil {
		return dbus.MakeFailedError(errors.Newf("action %s not supported", action))
	}
	handler(details)
	return nil
}

func (s *Surface) currentStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Surface) currentTrack() dbus.ObjectPath {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackID
}

// emitSeeked announces a position jump to clients.
func (s *Surface) emitSeeked(position int64) {
	if !s.Available() {
		return
	}
	if err := s.conn.Emit(objectPath, playerInterface+".Seeked", position); err != nil {
		zlog.Debug().Err(err).Msg("mpris: failed to emit Seeked")
	}
}

func (s *Surface) set(iface, name string, value any) error {
	if s.props == nil {
		return nil
	}
	if err := s.props.Set(iface, name, dbus.MakeVariant(value)); err != nil {
		return errors.Newf("failed to set %s.%s: %s", iface, name, err.Error())
	}
	return nil
}

// metadataLocked builds the MPRIS metadata map.
// Must be called with lock held.
func (s *Surface) metadataLocked() map[string]dbus.Variant {
	md := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(s.trackID),
	}
	if !s.hasTrack {
		return md
	}

	md["xesam:title"] = dbus.MakeVariant(s.metadata.Title)
	md["xesam:artist"] = dbus.MakeVariant([]string{s.metadata.Artist})
	md["xesam:album"] = dbus.MakeVariant(s.metadata.Album)
	if s.length > 0 {
		md["mpris:length"] = dbus.MakeVariant(s.length)
	}
	if n := len(s.metadata.Artwork); n > 0 {
		// largest size is listed last
		md["mpris:artUrl"] = dbus.MakeVariant(s.metadata.Artwork[n-1].Src)
	}
	return md
}

func statusOf(state mediasession.PlaybackState) string {
	switch state {
	case mediasession.StatePlaying:
		return statusPlaying
	case mediasession.StatePaused:
		return statusPaused
	default:
		return statusStopped
	}
}

func microseconds(seconds float64) int64 {
	return int64(seconds * 1e6)
}

var _ mediasession.Surface = (*Surface)(nil)
