package events

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/providers"
	redisclient "github.com/Rakhazzan/SINTESIS/internal/infrastructure/clients/redis"
)

func redisBus(t *testing.T) *RedisEventBus {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	bus := NewRedisEventBus(redisclient.NewClientFrom(client))
	t.Cleanup(func() {
		bus.Close()
		client.Close()
	})
	return bus
}

func TestRedisEventBus_RoundTrip(t *testing.T) {
	bus := redisBus(t)
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx, providers.ReceiverScope("u1"))
	require.NoError(t, err)

	toU1 := messageEvent(t, entities.OperationInsert, &entities.Message{ID: "m1", SenderID: "u2", ReceiverID: "u1", Body: "hola"})
	toU3 := messageEvent(t, entities.OperationInsert, &entities.Message{ID: "m2", SenderID: "u2", ReceiverID: "u3", Body: "x"})
	require.NoError(t, bus.Publish(ctx, toU3))
	require.NoError(t, bus.Publish(ctx, toU1))

	got := receive(t, sub)
	assert.Equal(t, toU1.ID, got.ID)
	assert.Equal(t, "m1", got.Field("id"))
}

func TestRedisEventBus_ReleasesChannel(t *testing.T) {
	bus := redisBus(t)

	sub, err := bus.Subscribe(context.Background(), providers.TableScope("patients", entities.TablePatients))
	require.NoError(t, err)

	bus.mu.Lock()
	assert.Contains(t, bus.subscriptions, entities.TablePatients)
	bus.mu.Unlock()

	require.NoError(t, sub.Close())

	bus.mu.Lock()
	assert.NotContains(t, bus.subscriptions, entities.TablePatients)
	bus.mu.Unlock()
}
