// Package notification provides the notification manager for broadcasting
// player events to subscribers.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

const (
	sendTimeout = 500 * time.Millisecond
	queueSize   = 64
)

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// StreamFunc adapts a function to the Stream interface.
type StreamFunc func(*Notification) error

// Send implements Stream.
func (f StreamFunc) Send(n *Notification) error { return f(n) }

// subscription represents a subscriber's subscription.
// Notifications are delivered in order from queue by one goroutine.
type subscription struct {
	id     string
	stream Stream
	queue  chan *Notification
	done   chan struct{}
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.Mutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	sub := &subscription{
		id:     uuid.New().String(),
		stream: stream,
		queue:  make(chan *Notification, queueSize),
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	m.subscriptions[sub.id] = sub
	m.mu.Unlock()

	go m.deliver(sub)
	zlog.Debug().Str("subscription", sub.id).Msg("Subscriber added")
	return sub.id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropLocked(subscriptionID)
}

// Done returns a channel closed once the subscription is removed, either
// by Unsubscribe or because the subscriber stopped keeping up.
func (m *Manager) Done(subscriptionID string) <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subscriptions[subscriptionID]; ok {
		return sub.done
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// NextSequenceNo reserves the next sequence number.
func (m *Manager) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Broadcast queues a notification for every subscriber without waiting
// for delivery. A subscriber whose queue is full is removed.
func (m *Manager) Broadcast(n *Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Sequence numbers are taken under the lock so every queue stays ordered.
	n.SequenceNo = m.NextSequenceNo()
	for id, sub := range m.subscriptions {
		select {
		case sub.queue <- n:
		default:
			zlog.Warn().Str("subscription", id).Msg("Subscriber queue full, dropping subscriber")
			m.dropLocked(id)
		}
	}
}

// deliver sends queued notifications until the subscription is removed.
// A failed or timed-out send removes the subscription.
func (m *Manager) deliver(sub *subscription) {
	for {
		select {
		case <-sub.done:
			return
		case n := <-sub.queue:
			if err := send(sub, n); err != nil {
				zlog.Debug().Err(err).Str("subscription", sub.id).Msg("Notification send failed, dropping subscriber")
				m.Unsubscribe(sub.id)
				return
			}
		}
	}
}

func send(sub *subscription, n *Notification) error {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- sub.stream.Send(n)
	}()

	select {
	case err := <-errCh:
		return err
	case <-sub.done:
		return errors.New("subscription removed")
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "notification send timed out")
	}
}

// dropLocked removes a subscription and stops its delivery.
// Must be called with lock held.
func (m *Manager) dropLocked(subscriptionID string) {
	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return
	}
	delete(m.subscriptions, subscriptionID)
	close(sub.done)
}

// Toast broadcasts a user-visible message.
func (m *Manager) Toast(kind ToastType, message string) {
	m.Broadcast(&Notification{
		Type:  TypeToast,
		Toast: &Toast{Kind: kind, Message: message},
	})
}

// FavoriteChanged broadcasts a favorite membership change.
func (m *Manager) FavoriteChanged(kind, id string, favorite bool) {
	m.Broadcast(&Notification{
		Type:     TypeFavoriteChanged,
		Favorite: &FavoriteChange{Kind: kind, ID: id, Favorite: favorite},
	})
}

// QueueChanged broadcasts the new queue length.
func (m *Manager) QueueChanged(size int) {
	m.Broadcast(&Notification{
		Type:      TypeQueueChanged,
		QueueSize: size,
	})
}

// StateChanged broadcasts a player state change.
func (m *Manager) StateChanged(state PlayerState) {
	m.Broadcast(&Notification{
		Type:  TypeStateChange,
		State: &state,
	})
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscriptions)
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.subscriptions {
		m.dropLocked(id)
	}
}
