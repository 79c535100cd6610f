package mpris

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/mybeats/internal/app/catalog"
	"github.com/osa030/mybeats/internal/app/mediasession"
)

type call struct {
	action  mediasession.Action
	details mediasession.ActionDetails
}

func newRecordingSurface(t *testing.T) (*Surface, *[]call) {
	t.Helper()
	s := newSurface("mybeats")
	calls := &[]call{}
	for _, a := range mediasession.Actions {
		action := a
		require.NoError(t, s.SetActionHandler(action, func(d mediasession.ActionDetails) {
			*calls = append(*calls, call{action: action, details: d})
		}))
	}
	return s, calls
}

func TestSurface_Available(t *testing.T) {
	var nilSurface *Surface
	assert.False(t, nilSurface.Available())
	assert.False(t, newSurface("mybeats").Available())
	assert.NoError(t, newSurface("mybeats").Close())
}

func TestSurface_Metadata(t *testing.T) {
	s := newSurface("mybeats")

	s.mu.Lock()
	empty := s.metadataLocked()
	s.mu.Unlock()
	assert.Equal(t, noTrack, empty["mpris:trackid"].Value())
	assert.Len(t, empty, 1)

	require.NoError(t, s.SetMetadata(mediasession.Metadata{
		Title:  "Midnight Drive",
		Artist: "Neon Coast",
		Album:  "Night Lines",
		Artwork: []catalog.Artwork{
			{Src: "https://img.example/96.jpg", Sizes: "96x96"},
			{Src: "https://img.example/512.jpg", Sizes: "512x512"},
		},
	}))
	first := s.currentTrack()
	assert.NotEqual(t, noTrack, first)

	require.NoError(t, s.SetPositionState(&mediasession.PositionState{Duration: 200, PlaybackRate: 1, Position: 12}))

	s.mu.Lock()
	md := s.metadataLocked()
	s.mu.Unlock()
	assert.Equal(t, "Midnight Drive", md["xesam:title"].Value())
	assert.Equal(t, []string{"Neon Coast"}, md["xesam:artist"].Value())
	assert.Equal(t, "Night Lines", md["xesam:album"].Value())
	assert.Equal(t, int64(200_000_000), md["mpris:length"].Value())
	assert.Equal(t, "https://img.example/512.jpg", md["mpris:artUrl"].Value())

	require.NoError(t, s.SetMetadata(mediasession.Metadata{Title: "Other"}))
	assert.NotEqual(t, first, s.currentTrack())

	require.NoError(t, s.ClearMetadata())
	assert.Equal(t, noTrack, s.currentTrack())
	require.NoError(t, s.SetPositionState(nil))
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		state mediasession.PlaybackState
		want  string
	}{
		{mediasession.StatePlaying, "Playing"},
		{mediasession.StatePaused, "Paused"},
		{mediasession.StateNone, "Stopped"},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.state))
		})
	}
}

func TestPlayerObject_Dispatch(t *testing.T) {
	tests := []struct {
		name   string
		invoke func(p *playerObject) *dbus.Error
		want   []call
	}{
		{
			name:   "next",
			invoke: (*playerObject).Next,
			want:   []call{{action: mediasession.ActionNextTrack}},
		},
		{
			name:   "previous",
			invoke: (*playerObject).Previous,
			want:   []call{{action: mediasession.ActionPreviousTrack}},
		},
		{
			name:   "stop",
			invoke: (*playerObject).Stop,
			want:   []call{{action: mediasession.ActionStop}},
		},
		{
			name:   "play pause while stopped plays",
			invoke: (*playerObject).PlayPause,
			want:   []call{{action: mediasession.ActionPlay}},
		},
		{
			name:   "seek forward",
			invoke: func(p *playerObject) *dbus.Error { return p.Seek(5_000_000) },
			want:   []call{{action: mediasession.ActionSeekForward, details: mediasession.ActionDetails{SeekOffset: 5}}},
		},
		{
			name:   "seek backward",
			invoke: func(p *playerObject) *dbus.Error { return p.Seek(-2_500_000) },
			want:   []call{{action: mediasession.ActionSeekBackward, details: mediasession.ActionDetails{SeekOffset: 2.5}}},
		},
		{
			name:   "zero seek is ignored",
			invoke: func(p *playerObject) *dbus.Error { return p.Seek(0) },
			want:   []call{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, calls := newRecordingSurface(t)
			p := &playerObject{surface: s}

			assert.Nil(t, tt.invoke(p))
			assert.Equal(t, tt.want, *calls)
		})
	}
}

func TestPlayerObject_PlayPauseWhilePlaying(t *testing.T) {
	s, calls := newRecordingSurface(t)
	require.NoError(t, s.SetPlaybackState(mediasession.StatePlaying))

	p := &playerObject{surface: s}
	assert.Nil(t, p.PlayPause())
	assert.Equal(t, []call{{action: mediasession.ActionPause}}, *calls)
}

func TestPlayerObject_SetPosition(t *testing.T) {
	s, calls := newRecordingSurface(t)
	require.NoError(t, s.SetMetadata(mediasession.Metadata{Title: "Midnight Drive"}))
	p := &playerObject{surface: s}

	// stale track id
	assert.Nil(t, p.SetPosition(noTrack, 1_000_000))
	// negative position
	assert.Nil(t, p.SetPosition(s.currentTrack(), -1))
	assert.Empty(t, *calls)

	assert.Nil(t, p.SetPosition(s.currentTrack(), 42_000_000))
	assert.Equal(t, []call{{action: mediasession.ActionSeekTo, details: mediasession.ActionDetails{SeekTime: 42}}}, *calls)
}

func TestPlayerObject_Unsupported(t *testing.T) {
	p := &playerObject{surface: newSurface("mybeats")}

	assert.NotNil(t, p.Next())
	assert.NotNil(t, p.OpenUri("file:///tmp/a.mp3"))
	assert.NotNil(t, rootObject{}.Quit())
	assert.Nil(t, rootObject{}.Raise())
}
