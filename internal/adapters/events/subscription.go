package events

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/providers"
)

const subscriberBuffer = 100

// subscription is a scoped subscriber registered on a hub
type subscription struct {
	scope   providers.Scope
	events  chan *entities.ChangeEvent
	done    chan struct{}
	mu      sync.Mutex
	closed  bool
	once    sync.Once
	onClose func(*subscription)
}

func newSubscription(scope providers.Scope, onClose func(*subscription)) *subscription {
	return &subscription{
		scope:   scope,
		events:  make(chan *entities.ChangeEvent, subscriberBuffer),
		done:    make(chan struct{}),
		onClose: onClose,
	}
}

// Events implements providers.Subscription
func (s *subscription) Events() <-chan *entities.ChangeEvent {
	return s.events
}

// Close implements providers.Subscription
func (s *subscription) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.events)
		close(s.done)
		s.mu.Unlock()

		// Drop anything buffered but not yet consumed.
		for range s.events {
		}

		if s.onClose != nil {
			s.onClose(s)
		}
	})
	return nil
}

func (s *subscription) deliver(event *entities.ChangeEvent) {
	if !s.scope.Matches(event) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- event:
	default:
		log.Warn().Str("scope", s.scope.Name).Str("event_id", event.ID).Msg("subscriber buffer full, dropping change event")
	}
}

// hub fans events out to the subscriptions registered per table
type hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscription]struct{}
}

func newHub() *hub {
	return &hub{subscribers: make(map[string]map[*subscription]struct{})}
}

// add registers sub and returns the tables that had no subscriber before
func (h *hub) add(sub *subscription) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var fresh []string
	for _, table := range sub.scope.Tables {
		if h.subscribers[table] == nil {
			h.subscribers[table] = make(map[*subscription]struct{})
			fresh = append(fresh, table)
		}
		h.subscribers[table][sub] = struct{}{}
	}
	return fresh
}

// remove unregisters sub and returns the tables left without subscribers
func (h *hub) remove(sub *subscription) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var empty []string
	for _, table := range sub.scope.Tables {
		subs, ok := h.subscribers[table]
		if !ok {
			continue
		}
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subscribers, table)
			empty = append(empty, table)
		}
	}
	return empty
}

func (h *hub) dispatch(event *entities.ChangeEvent) {
	h.mu.RLock()
	subs := make([]*subscription, 0, len(h.subscribers[event.Table]))
	for sub := range h.subscribers[event.Table] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.deliver(event)
	}
}

func (h *hub) all() []*subscription {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[*subscription]struct{})
	var out []*subscription
	for _, subs := range h.subscribers {
		for sub := range subs {
			if _, ok := seen[sub]; !ok {
				seen[sub] = struct{}{}
				out = append(out, sub)
			}
		}
	}
	return out
}
