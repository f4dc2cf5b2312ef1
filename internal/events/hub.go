package events

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const DefaultSubscriptionBuffer = 64

// Hub fans change events out to in-process subscribers. Publish never
// blocks: an event is dropped for a subscriber whose buffer is full.
type Hub struct {
	mu         sync.RWMutex
	subs       map[*Subscription]struct{}
	bufferSize int
	dropped    atomic.Int64
	logger     *zap.Logger
}

func NewHub(bufferSize int, logger *zap.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultSubscriptionBuffer
	}
	return &Hub{
		subs:       make(map[*Subscription]struct{}),
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Subscription is the cancellation handle returned by Subscribe.
type Subscription struct {
	C <-chan ChangeEvent

	ch          chan ChangeEvent
	collections map[Collection]struct{}
	hub         *Hub
	once        sync.Once
}

// Subscribe registers for changes to the given collections, or to every
// collection when none are named. Callers must Close the subscription.
func (h *Hub) Subscribe(collections ...Collection) *Subscription {
	ch := make(chan ChangeEvent, h.bufferSize)
	sub := &Subscription{
		C:           ch,
		ch:          ch,
		collections: make(map[Collection]struct{}, len(collections)),
		hub:         h,
	}
	for _, c := range collections {
		sub.collections[c] = struct{}{}
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

func (s *Subscription) wants(c Collection) bool {
	if len(s.collections) == 0 {
		return true
	}
	_, ok := s.collections[c]
	return ok
}

// Close detaches the subscription and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
		close(s.ch)
	})
}

func (h *Hub) Publish(event ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		if !sub.wants(event.Collection) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			h.dropped.Add(1)
			h.logger.Warn("Dropping change event for slow subscriber",
				zap.String("collection", string(event.Collection)),
				zap.String("key", event.Key))
		}
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close ends every open subscription.
func (h *Hub) Close() {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.Close()
	}
}
