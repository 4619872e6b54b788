package mockserver

import (
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

// subscriberBuffer is how many events a slow /event client may fall behind
// before new events are dropped for it.
const subscriberBuffer = 64

// Hub fans events out to every connected /event subscriber.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan opencode.Event]struct{}
	closed bool
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[chan opencode.Event]struct{}),
		logger: logger,
	}
}

// Subscribe registers a subscriber. The returned channel is closed when the
// hub closes or the returned cancel func is called.
func (h *Hub) Subscribe() (<-chan opencode.Event, func()) {
	ch := make(chan opencode.Event, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

// Publish delivers event to every subscriber without blocking. Subscribers
// whose buffer is full miss the event.
func (h *Hub) Publish(event opencode.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
			h.logger.Warn("subscriber buffer full, dropping event",
				zap.String("type", event.Type),
			)
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription. Later subscriptions are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
