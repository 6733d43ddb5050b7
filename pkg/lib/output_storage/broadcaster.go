package output_storage

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

var logger = zerolog.Nop()

// SetLogger replaces the package logger. It is not safe to call while
// broadcasters or storages are running.
func SetLogger(l zerolog.Logger) {
	logger = l.With().Str("component", "output_storage").Logger()
}

// Broadcaster fans every published value out to all subscribers. Sends
// never block: a subscriber whose buffer is full loses its oldest value,
// so slow readers always end up with the latest one.
type Broadcaster[T any] struct {
	messageReceiver chan T
	mu              sync.Mutex
	subscribers     map[chan T]struct{}
	stopped         bool

	closeMu sync.RWMutex
	closed  bool
	done    chan struct{}
}

func RunNewBroadcaster[T any]() *Broadcaster[T] {
	broadcaster := &Broadcaster[T]{
		messageReceiver: make(chan T, 1),
		subscribers:     make(map[chan T]struct{}),
		done:            make(chan struct{}),
	}

	go broadcaster.start()

	return broadcaster
}

func (broadcaster *Broadcaster[T]) start() {
	defer close(broadcaster.done)

	for msg := range broadcaster.messageReceiver {
		// offer never blocks, so holding the lock keeps Unsubscribe from
		// closing a channel mid-send.
		broadcaster.mu.Lock()
		for s := range broadcaster.subscribers {
			offer(s, msg)
		}
		broadcaster.mu.Unlock()
	}

	broadcaster.mu.Lock()
	for subscriberSender := range broadcaster.subscribers {
		close(subscriberSender)
	}
	broadcaster.subscribers = map[chan T]struct{}{}
	broadcaster.stopped = true
	broadcaster.mu.Unlock()

	logger.Debug().Msg("broadcaster stopped")
}

// offer delivers msg without blocking, evicting the oldest buffered value
// if the channel is full.
func offer[T any](ch chan T, msg T) {
	for {
		select {
		case ch <- msg:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Stop closes the broadcaster and every subscriber channel. Safe to call
// more than once.
func (broadcaster *Broadcaster[T]) Stop() {
	broadcaster.closeMu.Lock()
	defer broadcaster.closeMu.Unlock()
	if broadcaster.closed {
		return
	}
	broadcaster.closed = true
	close(broadcaster.messageReceiver)
}

// Done is closed once all subscriber channels have been closed.
func (broadcaster *Broadcaster[T]) Done() <-chan struct{} {
	return broadcaster.done
}

// Subscribe registers a new subscriber with the given buffer size (at least 1).
func (broadcaster *Broadcaster[T]) Subscribe(capacity int) (chan T, error) {
	if capacity < 1 {
		capacity = 1
	}
	ch := make(chan T, capacity)
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	if broadcaster.stopped {
		return nil, fmt.Errorf("failed to subscribe: broadcaster is stopped")
	}
	broadcaster.subscribers[ch] = struct{}{}
	logger.Debug().Int("subscribers", len(broadcaster.subscribers)).Msg("new subscriber")
	return ch, nil
}

// Unsubscribe removes and closes the subscriber channel. Unknown channels are
// ignored.
func (broadcaster *Broadcaster[T]) Unsubscribe(subscriberSender chan T) {
	broadcaster.mu.Lock()
	_, ok := broadcaster.subscribers[subscriberSender]
	delete(broadcaster.subscribers, subscriberSender)
	broadcaster.mu.Unlock()
	if ok {
		close(subscriberSender)
	}
}

// Publish hands msg to the fan-out goroutine. If the goroutine is behind,
// the pending value is replaced. Publishing after Stop is a no-op.
func (broadcaster *Broadcaster[T]) Publish(msg T) {
	broadcaster.closeMu.RLock()
	defer broadcaster.closeMu.RUnlock()
	if broadcaster.closed {
		return
	}
	offer(broadcaster.messageReceiver, msg)
}
