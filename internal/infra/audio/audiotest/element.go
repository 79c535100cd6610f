// Package audiotest provides an in-memory audio.Element for tests.
package audiotest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/osa030/mybeats/internal/infra/audio"
)

// Element is a scriptable audio.Element. The position only moves through
// Advance, End and SetCurrentTime.
type Element struct {
	mu sync.Mutex

	// LoadHook, when set, decides the outcome of each Load call.
	LoadHook func(ctx context.Context, src string) error
	// PlayErr, when set, is returned by Play.
	PlayErr error
	// DefaultDuration is reported after a successful load.
	DefaultDuration time.Duration

	src      string
	loaded   bool
	paused   bool
	position time.Duration
	duration time.Duration
	loads    []string
	closed   bool

	eventCh chan audio.Event
}

// NewElement creates a paused element reporting a 200 second duration.
func NewElement() *Element {
	return &Element{
		DefaultDuration: 200 * time.Second,
		paused:          true,
		eventCh:         make(chan audio.Event, 256),
	}
}

// FailFormats returns a LoadHook failing every source ending in one of exts.
func FailFormats(exts ...string) func(context.Context, string) error {
	return func(_ context.Context, src string) error {
		for _, ext := range exts {
			if strings.HasSuffix(src, "."+ext) {
				return audio.ErrNoSource
			}
		}
		return nil
	}
}

// Loads returns every source passed to Load, in order.
func (e *Element) Loads() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.loads...)
}

func (e *Element) Events() <-chan audio.Event { return e.eventCh }

func (e *Element) SetSource(src string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.src = src
	e.loaded = false
	e.paused = true
	e.position = 0
	e.duration = 0
}

func (e *Element) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.src
}

func (e *Element) Load(ctx context.Context) error {
	e.mu.Lock()
	src := e.src
	e.loads = append(e.loads, src)
	hook := e.LoadHook
	e.mu.Unlock()

	var err error
	if hook != nil {
		err = hook(ctx, src)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.src != src {
		return audio.ErrSourceChanged
	}
	if err != nil {
		e.send(audio.Event{Type: audio.EventError, Src: src, Err: err})
		return err
	}
	e.loaded = true
	e.duration = e.DefaultDuration
	e.send(audio.Event{Type: audio.EventLoadedMetadata, Src: src})
	return nil
}

func (e *Element) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.PlayErr != nil {
		return e.PlayErr
	}
	if !e.loaded {
		return audio.ErrNoSource
	}
	if e.duration > 0 && e.position >= e.duration {
		e.position = 0
	}
	e.paused = false
	e.send(audio.Event{Type: audio.EventPlay, Src: e.src})
	return nil
}

func (e *Element) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		return
	}
	e.paused = true
	e.send(audio.Event{Type: audio.EventPause, Src: e.src})
}

func (e *Element) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *Element) CurrentTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

func (e *Element) SetCurrentTime(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d < 0 {
		d = 0
	}
	if e.duration > 0 && d > e.duration {
		d = e.duration
	}
	e.position = d
	e.send(audio.Event{Type: audio.EventTimeUpdate, Src: e.src})
}

func (e *Element) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

// SetDuration overrides the reported duration.
func (e *Element) SetDuration(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.duration = d
}

// Advance moves the position forward as if playback progressed.
func (e *Element) Advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position += d
	if e.duration > 0 && e.position > e.duration {
		e.position = e.duration
	}
	e.send(audio.Event{Type: audio.EventTimeUpdate, Src: e.src})
}

// End plays the media to its end and emits pause and ended.
func (e *Element) End() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = e.duration
	e.paused = true
	e.send(audio.Event{Type: audio.EventPause, Src: e.src})
	e.send(audio.Event{Type: audio.EventEnded, Src: e.src})
}

func (e *Element) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.eventCh)
	}
	return nil
}

func (e *Element) send(ev audio.Event) {
	if e.closed {
		return
	}
	select {
	case e.eventCh <- ev:
	default:
	}
}

var _ audio.Element = (*Element)(nil)
