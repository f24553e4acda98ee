// Package broadcast fans chat events out to live dashboard viewers.
package broadcast

import (
	"log/slog"
	"sync"

	"github.com/boostbuddy/boostline/internal/history"
)

// Event is one live update for an address's conversation.
type Event struct {
	Address string          `json:"address"`
	Message history.Message `json:"message"`
}

const subscriberBuffer = 32

// Subscription is one viewer's ordered event feed.
type Subscription struct {
	C chan Event

	hub     *Hub
	address string
}

// Hub delivers events to zero or more subscribers per address. Delivery is
// best-effort: a viewer that cannot keep up loses its oldest events rather
// than stalling publishers.
type Hub struct {
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// NewHub creates a Hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		logger: log.With(slog.String("service", "broadcast")),
		subs:   map[string]map[*Subscription]struct{}{},
	}
}

// Subscribe registers a viewer for one address.
func (h *Hub) Subscribe(address string) *Subscription {
	sub := &Subscription{
		C:       make(chan Event, subscriberBuffer),
		hub:     h,
		address: address,
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[address] == nil {
		h.subs[address] = map[*Subscription]struct{}{}
	}
	h.subs[address][sub] = struct{}{}
	return sub
}

// Close removes the subscription and closes its channel.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if set, ok := s.hub.subs[s.address]; ok {
		if _, present := set[s]; present {
			delete(set, s)
			close(s.C)
		}
		if len(set) == 0 {
			delete(s.hub.subs, s.address)
		}
	}
}

// Publish sends a message event to every subscriber of the address.
// Per-address publish order matches delivery order for each subscriber;
// no subscribers is not an error.
func (h *Hub) Publish(address string, msg history.Message) {
	event := Event{Address: address, Message: msg}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[address] {
		select {
		case sub.C <- event:
		default:
			// Slow viewer: drop its oldest event to make room.
			select {
			case <-sub.C:
			default:
			}
			select {
			case sub.C <- event:
			default:
			}
			h.logger.Warn("slow broadcast subscriber, dropped event", slog.String("address", address))
		}
	}
}

// SubscriberCount reports the current number of viewers for an address.
func (h *Hub) SubscriberCount(address string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[address])
}
