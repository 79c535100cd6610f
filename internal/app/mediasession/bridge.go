package mediasession

import (
	"context"
	"math"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mybeats/internal/app/catalog"
	"github.com/osa030/mybeats/internal/app/playback"
	"github.com/osa030/mybeats/internal/domain/song"
)

// Metadata fallbacks for songs with missing fields.
const (
	UnknownSong   = "Unknown Song"
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
)

// timeUpdateThrottle limits position pushes caused by timeupdate events.
const timeUpdateThrottle = 500 * time.Millisecond

// Player is the engine surface driven by action handlers.
type Player interface {
	Play() error
	Pause() error
	Stop() error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	SeekTo(seconds float64) bool
	Snapshot() playback.State
}

// CoverResolver resolves album cover art.
type CoverResolver interface {
	CoverURL(album string) string
}

// Config holds bridge configuration.
type Config struct {
	SyncInterval     time.Duration // Position sync period while playing
	SeekOffset       float64       // Default seekbackward/seekforward offset in seconds
	RestartThreshold float64       // previoustrack restarts past this position in seconds
}

// Bridge projects playback state onto a Surface. It never changes playback
// state except through registered action handlers.
type Bridge struct {
	mu     sync.Mutex
	pushMu sync.Mutex // Serializes position writes

	surface Surface
	player  Player
	covers  CoverResolver
	config  Config

	ctx         context.Context
	initialized bool
	available   bool

	metadata           *Metadata
	state              PlaybackState
	syncCancel         func()
	lastPositionUpdate time.Time
}

// NewBridge creates a bridge. Call Setup before use.
func NewBridge(surface Surface, player Player, covers CoverResolver, config Config) *Bridge {
	if config.SyncInterval <= 0 {
		config.SyncInterval = time.Second
	}
	if config.SeekOffset <= 0 {
		config.SeekOffset = 10
	}
	if config.RestartThreshold <= 0 {
		config.RestartThreshold = 3
	}
	return &Bridge{
		surface: surface,
		player:  player,
		covers:  covers,
		config:  config,
		state:   StateNone,
	}
}

// Setup feature-detects the surface and registers action handlers. It
// reports whether the surface is usable; when it is not, every other
// method is a no-op. ctx bounds actions that load songs.
func (b *Bridge) Setup(ctx context.Context) bool {
	b.mu.Lock()
	if b.initialized {
		available := b.available
		b.mu.Unlock()
		return available
	}
	b.initialized = true
	b.ctx = ctx

	if b.surface == nil || !b.surface.Available() {
		b.mu.Unlock()
		zlog.Warn().Msg("mediasession: media session not supported, now-playing integration disabled")
		return false
	}
	b.available = true
	b.mu.Unlock()

	if err := b.surface.ClearMetadata(); err != nil {
		zlog.Debug().Err(err).Msg("mediasession: failed to clear metadata")
	}

	handlers := map[Action]ActionHandler{
		ActionPlay:          b.onPlay,
		ActionPause:         b.onPause,
		ActionStop:          b.onStop,
		ActionPreviousTrack: b.onPreviousTrack,
		ActionNextTrack:     b.onNextTrack,
		ActionSeekTo:        b.onSeekTo,
		ActionSeekBackward:  b.onSeekBackward,
		ActionSeekForward:   b.onSeekForward,
	}
	for _, action := range Actions {
		if err := b.surface.SetActionHandler(action, handlers[action]); err != nil {
			zlog.Debug().Err(err).Msgf("mediasession: action %s not supported", action)
		}
	}

	zlog.Info().Msg("mediasession: initialized")
	return true
}

// HandleEvent projects one engine event.
func (b *Bridge) HandleEvent(ev playback.Event) {
	if !b.isAvailable() {
		return
	}

	switch ev.Type {
	case playback.EventSongChanged:
		b.setPlaybackState(StateNone)

	case playback.EventSongLoaded:
		if ev.State.Song != nil {
			b.UpdateMetadata(*ev.State.Song)
		}
		b.setPlaybackState(stateOf(ev.State))

	case playback.EventLoadFailed:
		b.setPlaybackState(StatePaused)

	case playback.EventStateChanged:
		state := stateOf(ev.State)
		b.setPlaybackState(state)
		if state == StateNone {
			b.resetPosition()
		}

	case playback.EventMetadataLoaded:
		b.UpdatePosition()

	case playback.EventTimeUpdate:
		b.mu.Lock()
		due := time.Since(b.lastPositionUpdate) > timeUpdateThrottle
		b.mu.Unlock()
		if due {
			b.UpdatePosition()
		}

	case playback.EventEnded:
		b.setPlaybackState(StatePaused)
		b.resetPosition()
	}
}

// UpdateMetadata publishes s as the now-playing song.
func (b *Bridge) UpdateMetadata(s song.Song) {
	if !b.isAvailable() {
		return
	}

	cover := s.Cover
	if cover == "" && s.Album != "" && b.covers != nil {
		cover = b.covers.CoverURL(s.Album)
	}

	m := Metadata{
		Title:   fallback(s.Title, UnknownSong),
		Artist:  fallback(s.Artist, UnknownArtist),
		Album:   fallback(s.Album, UnknownAlbum),
		Artwork: catalog.ArtworkFor(cover),
	}
	if err := b.surface.SetMetadata(m); err != nil {
		zlog.Error().Err(err).Msg("mediasession: failed to update metadata")
		return
	}

	b.mu.Lock()
	b.metadata = &m
	b.mu.Unlock()

	b.UpdatePosition()
}

// ClearMetadata removes the now-playing song.
func (b *Bridge) ClearMetadata() {
	if !b.isAvailable() {
		return
	}
	if err := b.surface.ClearMetadata(); err != nil {
		zlog.Warn().Err(err).Msg("mediasession: failed to clear metadata")
		return
	}
	b.mu.Lock()
	b.metadata = nil
	b.mu.Unlock()
}

// UpdatePosition publishes the position when the duration is known.
func (b *Bridge) UpdatePosition() {
	if !b.isAvailable() {
		return
	}

	b.pushMu.Lock()
	defer b.pushMu.Unlock()
	b.updatePosition()
}

func (b *Bridge) updatePosition() {
	st := b.player.Snapshot()
	duration := st.Length()
	current := st.CurrentTime
	if math.IsInf(duration, 0) || math.IsNaN(duration) || duration <= 0 {
		return
	}
	if math.IsInf(current, 0) || math.IsNaN(current) || current < 0 {
		return
	}

	err := b.surface.SetPositionState(&PositionState{
		Duration:     duration,
		PlaybackRate: 1,
		Position:     math.Min(current, duration),
	})
	if err != nil {
		zlog.Warn().Err(err).Msg("mediasession: failed to update position")
		return
	}

	b.mu.Lock()
	b.lastPositionUpdate = time.Now()
	b.mu.Unlock()
}

// Metadata returns the last published metadata.
func (b *Bridge) Metadata() (Metadata, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.metadata == nil {
		return Metadata{}, false
	}
	return *b.metadata, true
}

// PlaybackState returns the last published playback state.
func (b *Bridge) PlaybackState() PlaybackState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Syncing reports whether the position sync loop is running.
func (b *Bridge) Syncing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.syncCancel != nil
}

// Close stops the position sync loop.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopSyncLocked()
}

// setPlaybackState publishes state and starts the sync loop while playing.
func (b *Bridge) setPlaybackState(state PlaybackState) {
	if err := b.surface.SetPlaybackState(state); err != nil {
		zlog.Warn().Err(err).Msg("mediasession: failed to update playback state")
	}

	b.mu.Lock()
	b.state = state
	if state == StatePlaying {
		b.startSyncLocked()
	} else {
		b.stopSyncLocked()
	}
	b.mu.Unlock()

	b.UpdatePosition()
}

func (b *Bridge) resetPosition() {
	b.pushMu.Lock()
	defer b.pushMu.Unlock()

	if err := b.surface.SetPositionState(nil); err != nil {
		zlog.Warn().Err(err).Msg("mediasession: failed to reset position")
	}
}

// startSyncLocked restarts the periodic position sync.
// Must be called with lock held.
func (b *Bridge) startSyncLocked() {
	b.stopSyncLocked()

	ctx, cancel := context.WithCancel(context.Background())
	b.syncCancel = cancel
	interval := b.config.SyncInterval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.pushMu.Lock()
				if ctx.Err() == nil {
					b.updatePosition()
				}
				b.pushMu.Unlock()
			}
		}
	}()
}

// stopSyncLocked stops the periodic position sync.
// Must be called with lock held.
func (b *Bridge) stopSyncLocked() {
	if b.syncCancel != nil {
		b.syncCancel()
		b.syncCancel = nil
	}
}

func (b *Bridge) isAvailable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available
}

func (b *Bridge) actionContext() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return context.Background()
	}
	return b.ctx
}

func (b *Bridge) onPlay(ActionDetails) {
	if err := b.player.Play(); err != nil {
		zlog.Debug().Err(err).Msg("mediasession: play action ignored")
	}
}

func (b *Bridge) onPause(ActionDetails) {
	if err := b.player.Pause(); err != nil {
		zlog.Debug().Err(err).Msg("mediasession: pause action ignored")
	}
}

func (b *Bridge) onStop(ActionDetails) {
	if err := b.player.Stop(); err != nil {
		zlog.Debug().Err(err).Msg("mediasession: stop action ignored")
	}
	b.setPlaybackState(StateNone)
	b.resetPosition()
}

func (b *Bridge) onPreviousTrack(ActionDetails) {
	st := b.player.Snapshot()
	if st.Song != nil && st.CurrentTime > b.config.RestartThreshold {
		b.player.SeekTo(0)
		b.UpdatePosition()
		return
	}
	if err := b.player.Previous(b.actionContext()); err != nil {
		zlog.Debug().Err(err).Msg("mediasession: previous action ignored")
	}
}

func (b *Bridge) onNextTrack(ActionDetails) {
	if err := b.player.Next(b.actionContext()); err != nil {
		zlog.Debug().Err(err).Msg("mediasession: next action ignored")
	}
}

func (b *Bridge) onSeekTo(details ActionDetails) {
	if math.IsNaN(details.SeekTime) {
		return
	}
	seekTime := math.Max(0, details.SeekTime)
	if length := b.player.Snapshot().Length(); length > 0 {
		seekTime = math.Min(seekTime, length)
	}
	b.player.SeekTo(seekTime)
	b.UpdatePosition()
}

func (b *Bridge) onSeekBackward(details ActionDetails) {
	offset := details.SeekOffset
	if offset <= 0 {
		offset = b.config.SeekOffset
	}
	st := b.player.Snapshot()
	b.player.SeekTo(math.Max(st.CurrentTime-offset, 0))
	b.UpdatePosition()
}

func (b *Bridge) onSeekForward(details ActionDetails) {
	offset := details.SeekOffset
	if offset <= 0 {
		offset = b.config.SeekOffset
	}
	st := b.player.Snapshot()
	target := st.CurrentTime + offset
	if length := st.Length(); length > 0 {
		target = math.Min(target, length)
	}
	b.player.SeekTo(target)
	b.UpdatePosition()
}

// stateOf maps engine state to the surface playback state.
func stateOf(st playback.State) PlaybackState {
	switch {
	case st.IsPlaying:
		return StatePlaying
	case st.Status == playback.StatusIdle:
		return StateNone
	default:
		return StatePaused
	}
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
