package bus

import (
	"log/slog"
	"sync"
)

// HubBuffer is how many events a subscriber may lag behind before events
// are dropped for it.
const HubBuffer = 16

func NewHub[T any](name string) *Hub[T] {
	return &Hub[T]{
		name: name,
		mu:   sync.Mutex{},
		subs: make(map[*chan T]struct{}),
	}
}

// Hub fans events out to subscribers. Broadcast never blocks, a subscriber
// that is full misses the event.
type Hub[T any] struct {
	name string
	mu   sync.Mutex
	subs map[*chan T]struct{}
}

func (h *Hub[T]) Broadcast(event T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case *sub <- event:
		default:
			slog.Warn("Dropped event for slow subscriber", "package", "bus", "hub", h.name)
		}
	}
}

func (h *Hub[T]) Subscribe() (<-chan T, func()) {
	h.mu.Lock()
	c := make(chan T, HubBuffer)

	key := &c
	h.subs[key] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return c, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, key)
			h.mu.Unlock()
		})
	}
}

func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
