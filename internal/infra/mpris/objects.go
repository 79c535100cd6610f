package mpris

import (
	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"

	"github.com/osa030/mybeats/internal/app/mediasession"
)

// rootObject serves org.mpris.MediaPlayer2. The daemon has no window to
// raise and is not quit over the bus.
type rootObject struct{}

func (rootObject) Raise() *dbus.Error { return nil }

func (rootObject) Quit() *dbus.Error {
	return dbus.MakeFailedError(errors.New("quit not supported"))
}

// playerObject serves org.mpris.MediaPlayer2.Player.
type playerObject struct {
	surface *Surface
}

func (p *playerObject) Next() *dbus.Error {
	return p.surface.invoke(mediasession.ActionNextTrack, mediasession.ActionDetails{})
}

func (p *playerObject) Previous() *dbus.Error {
	return p.surface.invoke(mediasession.ActionPreviousTrack, mediasession.ActionDetails{})
}

func (p *playerObject) Pause() *dbus.Error {
	return p.surface.invoke(mediasession.ActionPause, mediasession.ActionDetails{})
}

func (p *playerObject) Play() *dbus.Error {
	return p.surface.invoke(mediasession.ActionPlay, mediasession.ActionDetails{})
}

func (p *playerObject) PlayPause() *dbus.Error {
	if p.surface.currentStatus() == statusPlaying {
		return p.Pause()
	}
	return p.Play()
}

func (p *playerObject) Stop() *dbus.Error {
	return p.surface.invoke(mediasession.ActionStop, mediasession.ActionDetails{})
}

// Seek moves by offset microseconds. Negative offsets seek backward.
func (p *playerObject) Seek(offset int64) *dbus.Error {
	action, details, ok := seekAction(offset)
	if !ok {
		return nil
	}
	return p.surface.invoke(action, details)
}

// SetPosition jumps to position microseconds if trackID is still current.
func (p *playerObject) SetPosition(trackID dbus.ObjectPath, position int64) *dbus.Error {
	if position < 0 || trackID != p.surface.currentTrack() {
		return nil
	}
	err := p.surface.invoke(mediasession.ActionSeekTo, mediasession.ActionDetails{
		SeekTime: seconds(position),
	})
	if err == nil {
		p.surface.emitSeeked(position)
	}
	return err
}

func (p *playerObject) OpenUri(uri string) *dbus.Error {
	return dbus.MakeFailedError(errors.Newf("cannot open %s", uri))
}

func seekAction(offset int64) (mediasession.Action, mediasession.ActionDetails, bool) {
	switch {
	case offset > 0:
		return mediasession.ActionSeekForward, mediasession.ActionDetails{SeekOffset: seconds(offset)}, true
	case offset < 0:
		return mediasession.ActionSeekBackward, mediasession.ActionDetails{SeekOffset: seconds(-offset)}, true
	default:
		return "", mediasession.ActionDetails{}, false
	}
}

func seconds(us int64) float64 {
	return float64(us) / 1e6
}
