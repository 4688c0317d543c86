package events

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/providers"
)

// ErrFeedClosed is returned when using a feed after Close
var ErrFeedClosed = errors.New("change feed closed")

// MemoryEventBus is an in-process ChangeFeed
type MemoryEventBus struct {
	hub    *hub
	closed atomic.Bool
}

// NewMemoryEventBus creates an in-process change feed
func NewMemoryEventBus() *MemoryEventBus {
	return &MemoryEventBus{hub: newHub()}
}

// Publish delivers event to every matching subscription
func (b *MemoryEventBus) Publish(ctx context.Context, event *entities.ChangeEvent) error {
	if b.closed.Load() {
		return ErrFeedClosed
	}
	b.hub.dispatch(event)
	return nil
}

// Subscribe opens a scoped subscription
func (b *MemoryEventBus) Subscribe(ctx context.Context, scope providers.Scope) (providers.Subscription, error) {
	if b.closed.Load() {
		return nil, ErrFeedClosed
	}
	sub := newSubscription(scope, func(s *subscription) { b.hub.remove(s) })
	b.hub.add(sub)
	closeOnDone(ctx, sub)
	return sub, nil
}

// Close closes every open subscription
func (b *MemoryEventBus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, sub := range b.hub.all() {
		_ = sub.Close()
	}
	return nil
}

func closeOnDone(ctx context.Context, sub *subscription) {
	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()
}
