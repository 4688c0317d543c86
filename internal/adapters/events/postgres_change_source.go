package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/providers"
)

const listenerPingInterval = 90 * time.Second

// PostgresChangeSource relays the row-change notifications raised by the
// database triggers onto a ChangeFeed
type PostgresChangeSource struct {
	dsn          string
	channel      string
	feed         providers.ChangeFeed
	minReconnect time.Duration
	maxReconnect time.Duration
}

// NewPostgresChangeSource creates a source listening on channel
func NewPostgresChangeSource(dsn, channel string, feed providers.ChangeFeed, minReconnect, maxReconnect time.Duration) *PostgresChangeSource {
	return &PostgresChangeSource{
		dsn:          dsn,
		channel:      channel,
		feed:         feed,
		minReconnect: minReconnect,
		maxReconnect: maxReconnect,
	}
}

// Run listens until ctx is done. Connection loss is handled by the listener,
// which reconnects with backoff between minReconnect and maxReconnect.
func (s *PostgresChangeSource) Run(ctx context.Context) error {
	listener := pq.NewListener(s.dsn, s.minReconnect, s.maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			log.Info().Str("channel", s.channel).Msg("change listener connected")
		case pq.ListenerEventDisconnected:
			log.Warn().Err(err).Str("channel", s.channel).Msg("change listener disconnected")
		case pq.ListenerEventReconnected:
			log.Info().Str("channel", s.channel).Msg("change listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			log.Warn().Err(err).Str("channel", s.channel).Msg("change listener connection attempt failed")
		}
	})
	defer listener.Close()

	if err := listener.Listen(s.channel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.channel, err)
	}

	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				// Sent after a reconnect; notifications raised meanwhile are lost.
				log.Warn().Str("channel", s.channel).Msg("change listener resumed, notifications may have been missed")
				continue
			}
			if err := s.Relay(ctx, n.Extra); err != nil {
				log.Error().Err(err).Str("channel", s.channel).Msg("failed to relay change notification")
			}
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					log.Warn().Err(err).Msg("change listener ping failed")
				}
			}()
		}
	}
}

// Relay decodes one notification payload and publishes it on the feed
func (s *PostgresChangeSource) Relay(ctx context.Context, payload string) error {
	event, err := DecodeNotification(payload)
	if err != nil {
		return err
	}
	return s.feed.Publish(ctx, event)
}

// DecodeNotification parses the JSON payload written by the notify trigger
func DecodeNotification(payload string) (*entities.ChangeEvent, error) {
	var event entities.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, fmt.Errorf("invalid change notification: %w", err)
	}
	if event.Table == "" {
		return nil, fmt.Errorf("change notification without table")
	}
	switch event.Operation {
	case entities.OperationInsert, entities.OperationUpdate, entities.OperationDelete:
	default:
		return nil, fmt.Errorf("unknown change operation %q", event.Operation)
	}
	if isJSONNull(event.Record) {
		event.Record = nil
	}
	if isJSONNull(event.OldRecord) {
		event.OldRecord = nil
	}
	if event.CommitTime.IsZero() {
		event.CommitTime = time.Now()
	}
	return &event, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
