// Package queue provides the user-ordered list of songs to play next.
package queue

import (
	"fmt"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mybeats/internal/app/notification"
	"github.com/osa030/mybeats/internal/domain/song"
	"github.com/osa030/mybeats/internal/infra/store"
)

// Queue is a FIFO list of songs with insertion at arbitrary positions.
// Every mutation persists the whole queue and then notifies observers.
// The same song may appear more than once.
type Queue struct {
	mu       sync.RWMutex
	items    []song.Song
	store    *store.Store
	toaster  notification.Toaster
	onChange func(size int)
}

// Option configures a Queue.
type Option func(*Queue)

// WithToaster shows a message whenever a song is added.
func WithToaster(t notification.Toaster) Option {
	return func(q *Queue) { q.toaster = t }
}

// WithChangeHandler registers the queue length observer.
func WithChangeHandler(fn func(size int)) Option {
	return func(q *Queue) { q.onChange = fn }
}

// New creates an empty queue persisted to s.
func New(s *store.Store, opts ...Option) *Queue {
	q := &Queue{store: s}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Load restores the queue from the store.
func (q *Queue) Load() {
	var items []song.Song
	q.store.Load(store.KeyQueue, &items)

	q.mu.Lock()
	q.items = items
	q.mu.Unlock()
	zlog.Debug().Int("size", len(items)).Msg("Queue restored")
}

// Add appends a song.
func (q *Queue) Add(s song.Song) {
	q.mu.Lock()
	q.items = append(q.items, s)
	size := q.commitLocked()
	q.mu.Unlock()

	q.changed(size)
	q.toast(s)
}

// AddAt inserts a song before position. Negative positions count from the
// end; positions past the end append.
func (q *Queue) AddAt(s song.Song, position int) {
	q.mu.Lock()
	n := len(q.items)
	if position < 0 {
		position = max(n+position, 0)
	}
	position = min(position, n)

	q.items = append(q.items, song.Song{})
	copy(q.items[position+1:], q.items[position:])
	q.items[position] = s
	size := q.commitLocked()
	q.mu.Unlock()

	q.changed(size)
	q.toast(s)
}

// Remove removes and returns the song at index.
func (q *Queue) Remove(index int) (song.Song, bool) {
	q.mu.Lock()
	if index < 0 || index >= len(q.items) {
		q.mu.Unlock()
		return song.Song{}, false
	}
	removed := q.items[index]
	q.items = append(q.items[:index], q.items[index+1:]...)
	size := q.commitLocked()
	q.mu.Unlock()

	q.changed(size)
	return removed, true
}

// Next pops the front song.
func (q *Queue) Next() (song.Song, bool) {
	return q.Remove(0)
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.Replace(nil)
}

// Replace swaps the whole content of the queue with a single persist.
func (q *Queue) Replace(songs []song.Song) {
	q.mu.Lock()
	q.items = append([]song.Song(nil), songs...)
	size := q.commitLocked()
	q.mu.Unlock()

	q.changed(size)
}

// Items returns a snapshot of the queue.
func (q *Queue) Items() []song.Song {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return append([]song.Song(nil), q.items...)
}

// Len returns the number of queued songs.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

func (q *Queue) commitLocked() int {
	items := q.items
	if items == nil {
		items = []song.Song{}
	}
	q.store.Save(store.KeyQueue, items)
	return len(q.items)
}

func (q *Queue) changed(size int) {
	if q.onChange != nil {
		q.onChange(size)
	}
}

func (q *Queue) toast(s song.Song) {
	if q.toaster != nil {
		q.toaster.Toast(notification.ToastSuccess, fmt.Sprintf("Added %q to queue", s.Title))
	}
}
