package playback

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mybeats/internal/app/loader"
	"github.com/osa030/mybeats/internal/domain/song"
	"github.com/osa030/mybeats/internal/infra/audio"
)

// Errors
var (
	ErrNoTrack         = errors.New("no track loaded")
	ErrNoNextSong      = errors.New("no next song")
	ErrNoPreviousSong  = errors.New("no previous song")
	ErrEmptyCollection = errors.New("collection has no songs")
	ErrEngineClosed    = errors.New("playback engine closed")
)

const eventBufferSize = 64

// Queue is the pending-play list consumed by Next.
type Queue interface {
	Next() (song.Song, bool)
	Items() []song.Song
	Replace(songs []song.Song)
}

// History is the recently-played list consumed by Previous.
type History interface {
	Add(s song.Song)
	PopFront() (song.Song, bool)
}

// AlbumSource resolves the songs of an album for album-relative navigation.
type AlbumSource interface {
	AlbumSongs(artist, album string) ([]song.Song, bool)
}

// SongLoader resolves and starts a playable source for a song on an element.
type SongLoader interface {
	Load(ctx context.Context, el audio.Element, s song.Song) loader.Result
}

// durationHinter is implemented by elements that accept a fallback duration.
type durationHinter interface {
	SetDurationHint(d time.Duration)
}

// Config holds engine configuration.
type Config struct {
	RestartThreshold time.Duration  // Previous restarts the song past this position
	Intn             func(n int) int // Shuffle source, rand.IntN when nil
}

// Engine is the single authority over the audio element and the current song.
type Engine struct {
	mu sync.RWMutex

	element audio.Element
	loader  SongLoader
	queue   Queue
	history History
	albums  AlbumSource
	config  Config

	// Current song state
	current      *song.Song
	status       Status
	isPlaying    bool
	duration     float64
	currentIndex int
	shuffle      bool
	repeat       RepeatMode

	// Load bookkeeping
	generation uint64
	loadCancel context.CancelFunc
	loadMu     sync.Mutex // Serializes element use by loads

	eventCh chan Event
	closed  bool
}

// NewEngine creates an idle engine driving element.
func NewEngine(element audio.Element, l SongLoader, q Queue, h History, albums AlbumSource, config Config) *Engine {
	if config.RestartThreshold <= 0 {
		config.RestartThreshold = 3 * time.Second
	}
	if config.Intn == nil {
		config.Intn = rand.IntN
	}
	return &Engine{
		element:      element,
		loader:       l,
		queue:        q,
		history:      h,
		albums:       albums,
		config:       config,
		status:       StatusIdle,
		currentIndex: -1,
		eventCh:      make(chan Event, eventBufferSize),
	}
}

// Events returns the event channel.
func (e *Engine) Events() <-chan Event {
	return e.eventCh
}

// Run consumes element events until ctx is done or the element closes.
func (e *Engine) Run(ctx context.Context) {
	events := e.element.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.handleElementEvent(ctx, ev)
		}
	}
}

// PlaySong makes s current and loads it. The previously current song is
// pushed onto History before s replaces it. Load failures are logged and
// leave s current with playback paused; only an invalid song is an error.
func (e *Engine) PlaySong(ctx context.Context, s song.Song) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return e.playSong(ctx, s, true)
}

func (e *Engine) playSong(ctx context.Context, s song.Song, pushHistory bool) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}

	if pushHistory && e.current != nil && e.current.ID != s.ID {
		e.history.Add(*e.current)
	}

	e.current = &s
	e.status = StatusLoading
	e.isPlaying = false
	e.duration = 0
	e.currentIndex = e.albumIndexLocked(s)

	e.generation++
	gen := e.generation
	if e.loadCancel != nil {
		e.loadCancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	e.loadCancel = cancel

	e.sendEventLocked(EventSongChanged)
	e.mu.Unlock()
	defer cancel()

	zlog.Debug().Msgf("playback: loading song=%s artist=%s album=%s", s.Title, s.Artist, s.Album)

	e.loadMu.Lock()
	if !e.isCurrentGeneration(gen) {
		e.loadMu.Unlock()
		return nil
	}
	result := e.loader.Load(loadCtx, e.element, s)
	e.loadMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation || e.closed {
		zlog.Debug().Msgf("playback: discarding superseded load: song=%s", s.Title)
		return nil
	}
	e.loadCancel = nil

	if !result.OK() {
		zlog.Error().Err(result.Err).Msgf("playback: failed to load song=%s attempts=%d", s.Title, len(result.Attempts))
		e.isPlaying = false
		e.status = StatusPaused
		e.sendEventLocked(EventLoadFailed)
		return nil
	}

	e.isPlaying = !e.element.Paused()
	if e.isPlaying {
		e.status = StatusPlaying
	} else {
		e.status = StatusPaused
	}
	e.refreshDurationLocked()
	zlog.Info().Msgf("playback: playing song=%s format=%s duration=%.1fs", s.Title, result.Format, e.duration)
	e.sendEventLocked(EventSongLoaded)
	return nil
}

// Play resumes the current song. Element failures are logged.
func (e *Engine) Play() error {
	if !e.hasCurrent() {
		return ErrNoTrack
	}
	if err := e.element.Play(); err != nil {
		zlog.Error().Err(err).Msg("playback: play failed")
	}
	e.syncPlaying()
	return nil
}

// Pause pauses the current song.
func (e *Engine) Pause() error {
	if !e.hasCurrent() {
		return ErrNoTrack
	}
	e.element.Pause()
	e.syncPlaying()
	return nil
}

// TogglePlay pauses a playing song and resumes a paused one.
func (e *Engine) TogglePlay() error {
	if !e.hasCurrent() {
		return ErrNoTrack
	}
	if e.element.Paused() {
		return e.Play()
	}
	return e.Pause()
}

// syncPlaying takes the playing flag from the element so a control call is
// reflected before the element reports it.
func (e *Engine) syncPlaying() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil || e.closed {
		return
	}

	playing := !e.element.Paused()
	status := e.status
	switch {
	case playing:
		status = StatusPlaying
	case status == StatusPlaying || status == StatusLoading:
		status = StatusPaused
	}
	if playing == e.isPlaying && status == e.status {
		return
	}
	e.isPlaying = playing
	e.status = status
	e.sendEventLocked(EventStateChanged)
}

// Stop pauses and rewinds the current song.
func (e *Engine) Stop() error {
	if !e.hasCurrent() {
		return ErrNoTrack
	}
	e.element.Pause()
	e.element.SetCurrentTime(0)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.isPlaying = false
	e.status = StatusIdle
	e.sendEventLocked(EventStateChanged)
	return nil
}

// Next plays the queue head, or the next song of the current album under
// the shuffle and repeat policies. ErrNoNextSong means nothing changed.
func (e *Engine) Next(ctx context.Context) error {
	e.mu.RLock()
	current := e.current
	index := e.currentIndex
	shuffle, repeat := e.shuffle, e.repeat
	e.mu.RUnlock()

	queued := e.queue.Items()
	if len(queued) > 1 {
		queued = queued[:1]
	}

	var album []song.Song
	if len(queued) == 0 {
		if current == nil {
			return ErrNoNextSong
		}
		songs, ok := e.albums.AlbumSongs(current.Artist, current.Album)
		if !ok {
			zlog.Debug().Msgf("playback: album not in catalog: artist=%s album=%s", current.Artist, current.Album)
			return ErrNoNextSong
		}
		album = songs
		index = indexOf(album, current.ID)
	}

	res, ok := ResolveNext(queued, album, index, shuffle, repeat, e.config.Intn)
	if !ok {
		return ErrNoNextSong
	}
	if res.FromQueue {
		if popped, ok := e.queue.Next(); ok {
			res.Song = popped
		}
	}
	return e.playSong(ctx, res.Song, true)
}

// Previous restarts the current song once it is past the restart
// threshold. Otherwise it plays the History head without pushing the
// current song, or falls back to the previous song of the album.
func (e *Engine) Previous(ctx context.Context) error {
	e.mu.RLock()
	current := e.current
	e.mu.RUnlock()

	if current != nil && e.element.CurrentTime() > e.config.RestartThreshold {
		e.element.SetCurrentTime(0)
		e.mu.Lock()
		e.sendEventLocked(EventTimeUpdate)
		e.mu.Unlock()
		return nil
	}

	if s, ok := e.history.PopFront(); ok {
		return e.playSong(ctx, s, false)
	}

	if current == nil {
		return ErrNoPreviousSong
	}
	album, ok := e.albums.AlbumSongs(current.Artist, current.Album)
	if !ok {
		return ErrNoPreviousSong
	}
	res, ok := ResolvePrevious(album, indexOf(album, current.ID))
	if !ok {
		return ErrNoPreviousSong
	}
	return e.playSong(ctx, res.Song, true)
}

// SeekTo moves to seconds clamped to [0, duration]. It reports false and
// leaves the position unchanged for NaN, infinite values or no song.
func (e *Engine) SeekTo(seconds float64) bool {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return false
	}
	seconds = math.Max(0, seconds)
	if length := e.lengthLocked(); length > 0 {
		seconds = math.Min(length, seconds)
	}
	e.element.SetCurrentTime(secondsToDuration(seconds))
	e.sendEventLocked(EventTimeUpdate)
	return true
}

// Skip seeks by a relative offset in seconds.
func (e *Engine) Skip(seconds float64) bool {
	return e.SeekTo(e.element.CurrentTime().Seconds() + seconds)
}

// ToggleShuffle flips shuffle and returns the new value.
func (e *Engine) ToggleShuffle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shuffle = !e.shuffle
	e.sendEventLocked(EventModeChanged)
	return e.shuffle
}

// SetShuffle sets shuffle.
func (e *Engine) SetShuffle(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shuffle == on {
		return
	}
	e.shuffle = on
	e.sendEventLocked(EventModeChanged)
}

// CycleRepeat advances OFF, ALL, ONE, OFF and returns the new mode.
func (e *Engine) CycleRepeat() RepeatMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.repeat = e.repeat.Next()
	e.sendEventLocked(EventModeChanged)
	return e.repeat
}

// SetRepeat sets the repeat mode.
func (e *Engine) SetRepeat(mode RepeatMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.repeat == mode {
		return
	}
	e.repeat = mode
	e.sendEventLocked(EventModeChanged)
}

// PlayCollection replaces the queue with every song but the first, then
// plays the first.
func (e *Engine) PlayCollection(ctx context.Context, songs []song.Song) error {
	if len(songs) == 0 {
		return ErrEmptyCollection
	}
	e.queue.Replace(songs[1:])
	return e.PlaySong(ctx, songs[0])
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

// Close abandons any in-flight load and closes the event channel.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	if e.loadCancel != nil {
		e.loadCancel()
		e.loadCancel = nil
	}
	e.closed = true
	close(e.eventCh)
}

// handleElementEvent reconciles state with what the element reports.
func (e *Engine) handleElementEvent(ctx context.Context, ev audio.Event) {
	if ev.Src != e.element.Source() {
		return
	}

	e.mu.Lock()
	if e.current == nil || e.closed {
		e.mu.Unlock()
		return
	}

	switch ev.Type {
	case audio.EventPlay:
		e.isPlaying = true
		e.status = StatusPlaying
		e.sendEventLocked(EventStateChanged)

	case audio.EventPause:
		e.isPlaying = false
		if e.status == StatusPlaying {
			e.status = StatusPaused
		}
		e.sendEventLocked(EventStateChanged)

	case audio.EventTimeUpdate:
		e.sendEventLocked(EventTimeUpdate)

	case audio.EventLoadedMetadata:
		e.refreshDurationLocked()
		e.sendEventLocked(EventMetadataLoaded)

	case audio.EventError:
		// Candidate failures are handled by the loader
		zlog.Debug().Err(ev.Err).Msgf("playback: element error src=%s", ev.Src)

	case audio.EventEnded:
		e.isPlaying = false
		e.status = StatusEnded
		e.sendEventLocked(EventEnded)
		repeat := e.repeat
		title := e.current.Title
		e.mu.Unlock()

		e.onEnded(ctx, repeat, title)
		return
	}
	e.mu.Unlock()
}

// onEnded restarts the song under RepeatOne and advances otherwise.
func (e *Engine) onEnded(ctx context.Context, repeat RepeatMode, title string) {
	if repeat == RepeatOne {
		zlog.Debug().Msgf("playback: repeating song=%s", title)
		e.element.SetCurrentTime(0)
		if err := e.element.Play(); err != nil {
			zlog.Error().Err(err).Msg("playback: repeat failed")
		}
		return
	}

	if err := e.Next(ctx); err != nil {
		if errors.Is(err, ErrNoNextSong) {
			zlog.Info().Msgf("playback: reached end after song=%s", title)
			return
		}
		zlog.Error().Err(err).Msg("playback: failed to advance")
	}
}

func (e *Engine) hasCurrent() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current != nil
}

func (e *Engine) isCurrentGeneration(gen uint64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return gen == e.generation && !e.closed
}

// albumIndexLocked returns the album index of s, -1 when unknown.
// Must be called with lock held.
func (e *Engine) albumIndexLocked(s song.Song) int {
	album, ok := e.albums.AlbumSongs(s.Artist, s.Album)
	if !ok {
		return -1
	}
	return indexOf(album, s.ID)
}

// refreshDurationLocked takes the duration from the element, falling back
// to the catalog duration when the media carries none.
// Must be called with lock held.
func (e *Engine) refreshDurationLocked() {
	if d := e.element.Duration(); d > 0 {
		e.duration = d.Seconds()
		return
	}
	if e.current == nil {
		return
	}
	fallback := e.current.Seconds()
	if fallback <= 0 {
		return
	}
	e.duration = fallback
	if h, ok := e.element.(durationHinter); ok {
		h.SetDurationHint(secondsToDuration(fallback))
	}
}

// snapshotLocked copies the state.
// Must be called with lock held.
func (e *Engine) snapshotLocked() State {
	st := State{
		Status:       e.status,
		IsPlaying:    e.isPlaying,
		Duration:     e.duration,
		CurrentIndex: e.currentIndex,
		Shuffle:      e.shuffle,
		Repeat:       e.repeat,
	}
	if e.current != nil {
		s := *e.current
		st.Song = &s
		st.Artist = s.Artist
		st.Album = s.Album
		st.CurrentTime = e.element.CurrentTime().Seconds()
		st.TotalTime = e.element.Duration().Seconds()
	}
	return st
}

// lengthLocked returns the song length in seconds, 0 when unknown.
// Must be called with lock held.
func (e *Engine) lengthLocked() float64 {
	return State{Duration: e.duration, TotalTime: e.element.Duration().Seconds()}.Length()
}

// sendEventLocked sends an event without blocking. Time updates only
// use the lower half of the buffer so they cannot crowd out state changes.
// Must be called with lock held.
func (e *Engine) sendEventLocked(t EventType) {
	if e.closed {
		return
	}
	if t == EventTimeUpdate && len(e.eventCh) >= cap(e.eventCh)/2 {
		return
	}
	select {
	case e.eventCh <- Event{Type: t, State: e.snapshotLocked()}:
	default:
		// Channel full, drop event
	}
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
