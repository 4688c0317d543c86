package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/providers"
	redisclient "github.com/Rakhazzan/SINTESIS/internal/infrastructure/clients/redis"
)

// RedisEventBus implements the ChangeFeed interface using Redis Pub/Sub.
// Each table has its own channel; scopes are applied locally.
type RedisEventBus struct {
	client        *redisclient.Client
	hub           *hub
	subscriptions map[string]*redis.PubSub
	mu            sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based change feed
func NewRedisEventBus(client *redisclient.Client) *RedisEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:        client,
		hub:           newHub(),
		subscriptions: make(map[string]*redis.PubSub),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Publish publishes an event on its table's channel
func (b *RedisEventBus) Publish(ctx context.Context, event *entities.ChangeEvent) error {
	if b.ctx.Err() != nil {
		return ErrFeedClosed
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := providers.GetTableChannel(event.Table)
	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().Str("channel", channel).Str("event_id", event.ID).Str("operation", string(event.Operation)).Msg("published change event")
	return nil
}

// Subscribe opens a scoped subscription. It returns once Redis has
// confirmed the channel subscriptions, so no event published afterwards
// is missed.
func (b *RedisEventBus) Subscribe(ctx context.Context, scope providers.Scope) (providers.Subscription, error) {
	if b.ctx.Err() != nil {
		return nil, ErrFeedClosed
	}

	sub := newSubscription(scope, b.release)

	b.mu.Lock()
	err := b.listen(ctx, b.hub.add(sub))
	b.mu.Unlock()
	if err != nil {
		_ = sub.Close()
		return nil, err
	}

	closeOnDone(ctx, sub)
	log.Debug().Str("scope", scope.Name).Msg("opened change subscription")
	return sub, nil
}

// listen subscribes to the channels of tables. Callers hold b.mu.
func (b *RedisEventBus) listen(ctx context.Context, tables []string) error {
	for _, table := range tables {
		channel := providers.GetTableChannel(table)
		pubsub := b.client.Client().Subscribe(b.ctx, channel)
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		b.subscriptions[table] = pubsub
		go b.receiveMessages(channel, pubsub)
		log.Debug().Str("channel", channel).Msg("subscribed to change channel")
	}
	return nil
}

// receiveMessages decodes events from one channel and fans them out
func (b *RedisEventBus) receiveMessages(channel string, pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event entities.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Str("channel", channel).Msg("failed to unmarshal change event")
				continue
			}
			b.hub.dispatch(&event)
		}
	}
}

// release drops a closed subscription and the channels nobody listens to anymore
func (b *RedisEventBus) release(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, table := range b.hub.remove(sub) {
		if pubsub, ok := b.subscriptions[table]; ok {
			if err := pubsub.Close(); err != nil {
				log.Warn().Err(err).Str("table", table).Msg("failed to close change subscription")
			}
			delete(b.subscriptions, table)
			log.Debug().Str("table", table).Msg("closed change channel")
		}
	}
}

// Close closes the feed and all subscriptions
func (b *RedisEventBus) Close() error {
	b.cancel()

	for _, sub := range b.hub.all() {
		_ = sub.Close()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for table, pubsub := range b.subscriptions {
		if err := pubsub.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(b.subscriptions, table)
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing event bus: %v", errs)
	}

	log.Info().Msg("change feed closed")
	return nil
}
