package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Rakhazzan/SINTESIS/internal/adapters/events"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/clients/postgres"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/clients/redis"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/observability"
	"github.com/Rakhazzan/SINTESIS/pkg/config"
)

// relay forwards database row-change notifications to the Redis change feed
// so that any number of API replicas can run with REALTIME_EMBEDDED_RELAY=false.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName+"-relay", cfg.Log.Env, cfg.Log.Level)

	if !cfg.Redis.Enabled {
		log.Fatal().Msg("the change relay publishes to Redis; set REDIS_ENABLED=true")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	if cfg.Database.Migrate {
		if err := pgClient.Migrate(ctx, cfg.Realtime.NotifyChannel); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
	}

	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Redis client")
	}
	defer redisClient.Close()

	feed := events.NewRedisEventBus(redisClient)
	defer feed.Close()

	source := events.NewPostgresChangeSource(
		pgClient.DSN(),
		cfg.Realtime.NotifyChannel,
		feed,
		cfg.Realtime.MinReconnect,
		cfg.Realtime.MaxReconnect,
	)

	log.Info().Str("channel", cfg.Realtime.NotifyChannel).Msg("change relay started")
	if err := source.Run(ctx); err != nil {
		log.Error().Err(err).Msg("change relay stopped")
		return
	}
	log.Info().Msg("change relay exited")
}
