package audio

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-retryablehttp"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const eventBufferSize = 64

// StreamConfig configures a StreamElement.
type StreamConfig struct {
	RetryMax          int           // Retries per request on transient failures
	RetryWaitMin      time.Duration // Minimum backoff between retries
	RetryWaitMax      time.Duration // Maximum backoff between retries
	Timeout           time.Duration // Per-request timeout
	RequestsPerSecond float64       // Fetch rate limit
	MaxBytes          int64         // Largest accepted resource
	TickInterval      time.Duration // timeupdate period while playing
}

func (c *StreamConfig) setDefaults() {
	if c.RetryWaitMin <= 0 {
		c.RetryWaitMin = 200 * time.Millisecond
	}
	if c.RetryWaitMax <= 0 {
		c.RetryWaitMax = 2 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 4
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 64 << 20
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 250 * time.Millisecond
	}
}

// StreamElement fetches its source over HTTP, fully buffering it before
// reporting play-through readiness, and advances the playback position on
// the wall clock while playing.
type StreamElement struct {
	mu sync.Mutex

	client  *retryablehttp.Client
	limiter *rate.Limiter
	config  StreamConfig

	src      string
	loaded   bool
	duration time.Duration

	// Transport
	paused     bool
	offset     time.Duration // position at anchor
	anchor     time.Time     // wall time when playback last resumed
	tickCancel func()

	eventCh chan Event
	closed  bool
}

// NewStreamElement creates an element with an empty source.
func NewStreamElement(config StreamConfig) *StreamElement {
	config.setDefaults()

	client := retryablehttp.NewClient()
	client.RetryMax = config.RetryMax
	client.RetryWaitMin = config.RetryWaitMin
	client.RetryWaitMax = config.RetryWaitMax
	client.HTTPClient.Timeout = config.Timeout
	client.Logger = leveledLogger{}

	return &StreamElement{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1),
		config:  config,
		paused:  true,
		eventCh: make(chan Event, eventBufferSize),
	}
}

// Events implements Element.
func (e *StreamElement) Events() <-chan Event {
	return e.eventCh
}

// SetSource implements Element.
func (e *StreamElement) SetSource(src string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopTransportLocked()
	e.src = src
	e.loaded = false
	e.duration = 0
	e.offset = 0
}

// Source implements Element.
func (e *StreamElement) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.src
}

// Load implements Element.
func (e *StreamElement) Load(ctx context.Context) error {
	e.mu.Lock()
	src := e.src
	closed := e.closed
	e.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if src == "" {
		return ErrNoSource
	}

	duration, err := e.fetch(ctx, src)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.src != src {
		return ErrSourceChanged
	}
	if err != nil {
		e.sendEventLocked(Event{Type: EventError, Src: src, Err: err})
		return err
	}

	e.loaded = true
	e.duration = duration
	e.sendEventLocked(Event{Type: EventLoadedMetadata, Src: src})
	zlog.Debug().Msgf("audio: loaded src=%s duration=%v", src, duration)
	return nil
}

func (e *StreamElement) fetch(ctx context.Context, src string) (time.Duration, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return 0, errors.Wrap(err, "rate limiter")
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "audio/*")

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to fetch %s", src)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, errors.Newf("unexpected status %d for %s", resp.StatusCode, src)
	}
	if ct := resp.Header.Get("Content-Type"); !acceptableContentType(ct) {
		return 0, errors.Newf("unsupported content type %q for %s", ct, src)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, e.config.MaxBytes+1))
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read %s", src)
	}
	if int64(len(data)) > e.config.MaxBytes {
		return 0, errors.Newf("%s exceeds %d bytes", src, e.config.MaxBytes)
	}

	return mediaDuration(src, resp, data)
}

// Play implements Element. Playing an ended element restarts it from 0.
func (e *StreamElement) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if !e.loaded {
		return ErrNoSource
	}
	if !e.paused {
		return nil
	}
	if e.duration > 0 && e.offset >= e.duration {
		e.offset = 0
	}

	e.paused = false
	e.anchor = toWallTime(time.Now())
	e.startTickerLocked()
	e.sendEventLocked(Event{Type: EventPlay, Src: e.src})
	return nil
}

// Pause implements Element.
func (e *StreamElement) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return
	}
	e.stopTransportLocked()
	e.sendEventLocked(Event{Type: EventPause, Src: e.src})
}

// Paused implements Element.
func (e *StreamElement) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// CurrentTime implements Element.
func (e *StreamElement) CurrentTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

// SetCurrentTime implements Element. The position is clamped to the media.
func (e *StreamElement) SetCurrentTime(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if d < 0 {
		d = 0
	}
	if e.duration > 0 && d > e.duration {
		d = e.duration
	}
	e.offset = d
	e.anchor = toWallTime(time.Now())
	e.sendEventLocked(Event{Type: EventTimeUpdate, Src: e.src})
}

// SetDurationHint supplies the duration when the media carries no usable
// metadata. It is ignored once a real duration is known.
func (e *StreamElement) SetDurationHint(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded || e.duration > 0 || d <= 0 {
		return
	}
	e.duration = d
	e.sendEventLocked(Event{Type: EventLoadedMetadata, Src: e.src})
}

// Duration implements Element.
func (e *StreamElement) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

// Close implements Element.
func (e *StreamElement) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.stopTransportLocked()
	e.closed = true
	close(e.eventCh)
	return nil
}

// positionLocked returns the current position.
// Must be called with lock held.
func (e *StreamElement) positionLocked() time.Duration {
	pos := e.offset
	if !e.paused {
		pos += toWallTime(time.Now()).Sub(e.anchor)
	}
	if e.duration > 0 && pos > e.duration {
		pos = e.duration
	}
	return pos
}

// stopTransportLocked freezes the position and stops the ticker.
// Must be called with lock held.
func (e *StreamElement) stopTransportLocked() {
	if !e.paused {
		e.offset = e.positionLocked()
	}
	e.paused = true
	if e.tickCancel != nil {
		e.tickCancel()
		e.tickCancel = nil
	}
}

// startTickerLocked emits timeupdate periodically and ended at the end
// of the media. Must be called with lock held.
func (e *StreamElement) startTickerLocked() {
	if e.tickCancel != nil {
		e.tickCancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.tickCancel = cancel

	go func() {
		ticker := time.NewTicker(e.config.TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !e.tick(ctx) {
					return
				}
			}
		}
	}()
}

// tick reports whether the ticker should keep running.
func (e *StreamElement) tick(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ctx.Err() != nil || e.paused {
		return false
	}

	if e.duration > 0 && e.positionLocked() >= e.duration {
		e.offset = e.duration
		e.paused = true
		e.tickCancel = nil
		e.sendEventLocked(Event{Type: EventTimeUpdate, Src: e.src})
		e.sendEventLocked(Event{Type: EventPause, Src: e.src})
		e.sendEventLocked(Event{Type: EventEnded, Src: e.src})
		return false
	}

	e.sendEventLocked(Event{Type: EventTimeUpdate, Src: e.src})
	return true
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (e *StreamElement) sendEventLocked(ev Event) {
	if e.closed {
		return
	}
	select {
	case e.eventCh <- ev:
	default:
		// Channel full, drop event
	}
}

// toWallTime returns the time with monotonic clock stripped.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}

// leveledLogger routes retryablehttp logs to zerolog.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) { zlog.Error().Fields(kv).Msg(msg) }
func (leveledLogger) Warn(msg string, kv ...interface{})  { zlog.Warn().Fields(kv).Msg(msg) }
func (leveledLogger) Info(msg string, kv ...interface{})  { zlog.Debug().Fields(kv).Msg(msg) }
func (leveledLogger) Debug(msg string, kv ...interface{}) { zlog.Debug().Fields(kv).Msg(msg) }
