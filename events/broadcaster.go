package events

import (
	"context"
	"sync"

	"github.com/amigadave/libportal/logger"
)

// Broadcaster fans out events from a single upstream channel to all
// subscribers.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[chan Event]func(Event) bool
}

// NewBroadcaster starts a broadcaster that reads from upstream and fans
// out to all subscribers. It stops when ctx is cancelled or upstream is
// closed.
func NewBroadcaster(ctx context.Context, upstream <-chan Event) *Broadcaster {
	b := &Broadcaster{
		clients: make(map[chan Event]func(Event) bool),
	}
	go b.run(ctx, upstream)
	return b
}

// Subscribe registers a new subscriber and returns its dedicated channel
// (buffered, size 32).
func (b *Broadcaster) Subscribe() chan Event {
	return b.SubscribeFunc(nil)
}

// SubscribeFunc registers a subscriber that only receives events passing
// the filter. A nil filter passes everything.
func (b *Broadcaster) SubscribeFunc(filter func(Event) bool) chan Event {
	ch := make(chan Event, 32)
	b.mu.Lock()
	b.clients[ch] = filter
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.clients, ch)
	b.mu.Unlock()
	close(ch)
}

func (b *Broadcaster) broadcast(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch, filter := range b.clients {
		if filter != nil && !filter(e) {
			continue
		}
		select {
		case ch <- e:
		default:
			logger.Warn("[events] client channel full, dropping %s event", e.Type)
		}
	}
}

func (b *Broadcaster) run(ctx context.Context, upstream <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-upstream:
			if !ok {
				return
			}
			b.broadcast(e)
		}
	}
}
