package output_storage

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// node represents an element in the singly linked list.
// It carries a payload (byte slice) and an atomic pointer to the next node.
type node struct {
	data []byte
	next atomic.Pointer[node]
}

// OutputStorage is an append-only singly linked list of byte slices with
// live fan-out to subscribers. Appends are serialized; readers never lock.
//
// When created with a positive retention limit, only the newest chunks are
// kept: the head sentinel moves forward and older nodes become garbage once
// no subscriber references them. A long-running companion therefore cannot
// grow the host's memory without bound.
type OutputStorage struct {
	head atomic.Pointer[node] // sentinel; its data is never read

	appendMu sync.Mutex
	tail     *node
	count    int
	retain   int

	broadcaster *Broadcaster[struct{}]
}

// RunNewOutputStorage creates a new, empty OutputStorage keeping at most
// retain chunks. Zero or negative retain keeps everything.
func RunNewOutputStorage(retain int) *OutputStorage {
	sentinel := &node{}
	s := &OutputStorage{
		tail:        sentinel,
		retain:      retain,
		broadcaster: RunNewBroadcaster[struct{}](),
	}
	s.head.Store(sentinel)

	return s
}

// Stop marks the end of the stream. Subscribers drain what is stored and
// then see their channel closed.
func (s *OutputStorage) Stop() {
	if s == nil {
		return
	}

	s.broadcaster.Stop()
}

// Append adds the provided byte slice to the end of the list.
// Note: The slice is stored as-is; if callers may mutate the slice afterward,
// they should pass a copy (e.g., append([]byte(nil), data...)).
func (s *OutputStorage) Append(data []byte) {
	if s == nil {
		return
	}

	newTail := &node{data: data}

	s.appendMu.Lock()
	s.tail.next.Store(newTail)
	s.tail = newTail
	s.count++
	if s.retain > 0 && s.count > s.retain {
		old := s.head.Load()
		s.head.Store(old.next.Load())
		s.count--
	}
	s.appendMu.Unlock()

	s.broadcaster.Publish(struct{}{})
}

// Len returns the number of retained chunks.
func (s *OutputStorage) Len() int {
	if s == nil {
		return 0
	}
	s.appendMu.Lock()
	defer s.appendMu.Unlock()
	return s.count
}

func (s *OutputStorage) streamRunning(ctx context.Context, notifier chan struct{}, ch chan []byte) {
	id := uuid.New()
	logger.Debug().Str("subscriber", id.String()).Msg("streaming live output")
	defer s.broadcaster.Unsubscribe(notifier)
	defer close(ch)

	prev := s.head.Load()
	for {
		current := prev.next.Load()
		if current == nil {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-notifier:
				if !ok {
					// The notifier closes after the final append was
					// published; flush whatever is left.
					s.drain(ctx, prev, ch)
					return
				}
			}
			continue
		}
		prev = current

		select {
		case ch <- current.data:
		case <-ctx.Done():
			return
		}
	}
}

func (s *OutputStorage) drain(ctx context.Context, prev *node, ch chan []byte) {
	for current := prev.next.Load(); current != nil; current = current.next.Load() {
		select {
		case ch <- current.data:
		case <-ctx.Done():
			return
		}
	}
}

// Subscribe replays the retained chunks and then follows new appends until
// the storage is stopped or ctx is cancelled. The returned channel is
// closed in both cases.
func (s *OutputStorage) Subscribe(ctx context.Context, capacity int) <-chan []byte {
	ch := make(chan []byte, capacity)
	notifier, err := s.broadcaster.Subscribe(1)
	if err == nil {
		go s.streamRunning(ctx, notifier, ch)
	} else {
		go func() {
			defer close(ch)
			s.drain(ctx, s.head.Load(), ch)
		}()
	}

	return ch
}

// ForEach iterates over all stored byte slices in insertion order.
// The iterator function receives each slice; if it returns false, iteration stops early.
func (s *OutputStorage) ForEach(iter func([]byte) bool) {
	if s == nil || iter == nil {
		return
	}
	cur := s.head.Load().next.Load() // skip sentinel
	for cur != nil {
		if !iter(cur.data) {
			return
		}
		cur = cur.next.Load()
	}
}

// Bytes concatenates all stored byte slices into a single slice.
func (s *OutputStorage) Bytes() []byte {
	total := 0
	slices := make([][]byte, 0, 16)
	s.ForEach(func(b []byte) bool {
		slices = append(slices, b)
		total += len(b)
		return true
	})
	out := make([]byte, 0, total)
	for _, b := range slices {
		out = append(out, b...)
	}
	return out
}

// String returns all stored byte slices concatenated into a single string.
func (s *OutputStorage) String() string {
	return string(s.Bytes())
}
