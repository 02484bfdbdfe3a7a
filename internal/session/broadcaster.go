package session

import (
	"log/slog"
	"sync"

	"github.com/hauke92/mindgate/internal/domain"
	"github.com/hauke92/mindgate/internal/metrics"
)

// subscriberBuffer bounds how many undelivered expiry events a subscriber
// may accumulate before further events are dropped for it.
const subscriberBuffer = 8

// Broadcaster fans out just-ended sessions to all current subscribers.
// Non-replaying: a subscriber only sees expiries that happen after it
// subscribed. Delivery is non-blocking; a slow subscriber loses events
// rather than stalling the expiry path.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[uint64]chan domain.Session
	nextID uint64
	closed bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[uint64]chan domain.Session)}
}

// Subscribe registers a new subscriber and returns its receive channel plus
// an unsubscribe function. The channel is closed on unsubscribe or when the
// broadcaster shuts down.
func (b *Broadcaster) Subscribe() (<-chan domain.Session, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan domain.Session)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan domain.Session, subscriberBuffer)
	b.subs[id] = ch
	metrics.ExpiryStreamSubscribers.Set(float64(len(b.subs)))

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
				metrics.ExpiryStreamSubscribers.Set(float64(len(b.subs)))
			}
		})
	}
	return ch, unsubscribe
}

// Publish delivers s to every current subscriber without blocking.
func (b *Broadcaster) Publish(s domain.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- s:
		default:
			slog.Warn("Dropping expiry event for slow subscriber",
				"subscriber", id,
				"session_id", s.ID,
				"package", s.Package,
			)
			metrics.ExpiryEmissionsDroppedTotal.Inc()
		}
	}
}

// Close shuts the broadcaster down and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	metrics.ExpiryStreamSubscribers.Set(0)
}
