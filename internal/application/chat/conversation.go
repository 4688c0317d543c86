// Package chat implements the live conversation view: optimistic sends,
// echo de-duplication and read tracking on top of a livesync controller.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rakhazzan/SINTESIS/internal/application/livesync"
	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/providers"
	"github.com/Rakhazzan/SINTESIS/internal/domain/repositories"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/observability"
	apperrors "github.com/Rakhazzan/SINTESIS/pkg/errors"
)

// DefaultEchoWindow bounds the clock skew tolerated between a provisional
// message and its realtime echo
const DefaultEchoWindow = 2 * time.Minute

// Options configures a Conversation
type Options struct {
	Self         string
	Peer         string
	Messages     repositories.MessageRepository
	Feed         providers.ChangeFeed
	EchoWindow   time.Duration
	FetchTimeout time.Duration
	Now          func() time.Time
	Metrics      *observability.SyncMetrics
}

// Conversation is the mounted chat between Self and Peer
type Conversation struct {
	self       string
	peer       string
	messages   repositories.MessageRepository
	tracker    *ReadTracker
	echoWindow time.Duration
	now        func() time.Time
	metrics    *observability.SyncMetrics
	ctrl       *livesync.Controller[[]*entities.Message]
}

// NewConversation creates a conversation view. It is inert until Start.
func NewConversation(opts Options) *Conversation {
	c := &Conversation{
		self:       opts.Self,
		peer:       opts.Peer,
		messages:   opts.Messages,
		tracker:    NewReadTracker(opts.Messages),
		echoWindow: opts.EchoWindow,
		now:        opts.Now,
		metrics:    opts.Metrics,
	}
	if c.echoWindow <= 0 {
		c.echoWindow = DefaultEchoWindow
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.ctrl = livesync.New(livesync.Options[[]*entities.Message]{
		Name:         "conversation",
		Feed:         opts.Feed,
		Scopes:       []providers.Scope{providers.ConversationScope(opts.Self, opts.Peer)},
		Fetch:        c.fetch,
		Reduce:       c.reduce,
		Merge:        c.keepPending,
		AfterFetch:   c.afterFetch,
		FetchTimeout: opts.FetchTimeout,
		Metrics:      opts.Metrics,
	})
	return c
}

// Name identifies the view in logs and metrics
func (c *Conversation) Name() string { return c.ctrl.Name() }

// Self returns the signed-in participant
func (c *Conversation) Self() string { return c.self }

// Peer returns the other participant
func (c *Conversation) Peer() string { return c.peer }

// Start subscribes to the conversation and loads it
func (c *Conversation) Start(ctx context.Context) error { return c.ctrl.Start(ctx) }

// Stop tears the conversation down
func (c *Conversation) Stop() { c.ctrl.Stop() }

// Refetch reloads the conversation
func (c *Conversation) Refetch(ctx context.Context) error { return c.ctrl.Refetch(ctx) }

// Snapshot returns the current messages, ordered by timestamp
func (c *Conversation) Snapshot() livesync.State[[]*entities.Message] { return c.ctrl.Snapshot() }

// Updates signals state changes
func (c *Conversation) Updates() <-chan struct{} { return c.ctrl.Updates() }

// SendMessage shows body immediately as a pending message, then stores it.
// A blank body is rejected without any write. On failure the pending entry
// is removed and the error returned; nothing is retried.
func (c *Conversation) SendMessage(ctx context.Context, body string) (*entities.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("message body is empty")
	}

	provisional := &entities.Message{
		ID:         entities.TempIDPrefix + uuid.NewString(),
		SenderID:   c.self,
		ReceiverID: c.peer,
		Body:       body,
		IsRead:     false,
		Timestamp:  c.now(),
		Pending:    true,
	}
	if !c.ctrl.Mutate(func(list []*entities.Message) []*entities.Message {
		return insertByTime(list, provisional)
	}) {
		return nil, livesync.ErrStopped
	}

	stored, err := c.messages.Create(ctx, provisional.Clone())
	if err != nil {
		c.ctrl.Mutate(func(list []*entities.Message) []*entities.Message {
			return removeID(list, provisional.ID)
		})
		c.ctrl.SetErr(err)
		if c.metrics != nil {
			c.metrics.RolledBackSends.Inc()
		}
		log.Warn().Err(err).Str("sender_id", c.self).Str("receiver_id", c.peer).Msg("message send failed, rolled back")
		return nil, err
	}

	stored.Pending = false
	c.ctrl.Mutate(func(list []*entities.Message) []*entities.Message {
		// The echo may have arrived first and already be in the list.
		out, _ := mergeStored(removeID(list, provisional.ID), stored, 0)
		return out
	})
	return stored, nil
}

func (c *Conversation) fetch(ctx context.Context) ([]*entities.Message, error) {
	return c.messages.ListConversation(ctx, c.self, c.peer)
}

// keepPending carries sends still in flight into a freshly fetched list.
// It sees the list as it is when the fetch is applied, so a send that was
// acknowledged or rolled back while the fetch ran is not resurrected.
func (c *Conversation) keepPending(current, fetched []*entities.Message) []*entities.Message {
	for _, m := range current {
		if !m.Pending {
			continue
		}
		if matchProvisionalStored(fetched, m, c.echoWindow) {
			continue
		}
		fetched = insertByTime(fetched, m)
	}
	return fetched
}

func (c *Conversation) afterFetch(ctx context.Context, msgs []*entities.Message) {
	ids, err := c.tracker.MarkFetched(ctx, c.self, msgs)
	if err != nil || len(ids) == 0 {
		return
	}
	c.ctrl.Mutate(func(list []*entities.Message) []*entities.Message {
		return markRead(list, ids)
	})
}

// reduce patches the conversation from its change events
func (c *Conversation) reduce(list []*entities.Message, event *entities.ChangeEvent) ([]*entities.Message, bool) {
	switch event.Operation {
	case entities.OperationInsert, entities.OperationUpdate:
		if event.Partial || !event.HasField("body") {
			// Oversized rows are announced by key only.
			return list, false
		}
		var m entities.Message
		if err := event.DecodeRecord(&m); err != nil {
			log.Warn().Err(err).Str("event_id", event.ID).Msg("undecodable message event, refetching")
			return list, false
		}
		if !m.Between(c.self, c.peer) {
			return list, true
		}
		m.Pending = false
		out, deduped := mergeStored(list, &m, c.echoWindow)
		if deduped && c.metrics != nil {
			c.metrics.EchoesDeduplicated.Inc()
		}
		return out, true
	case entities.OperationDelete:
		id := event.Field("id")
		if id == "" {
			return list, false
		}
		return removeID(list, id), true
	default:
		return list, false
	}
}

// matchProvisionalStored reports whether list already holds the stored
// record acknowledging the pending entry p
func matchProvisionalStored(list []*entities.Message, p *entities.Message, window time.Duration) bool {
	for _, m := range list {
		if m.SenderID != p.SenderID || m.ReceiverID != p.ReceiverID || m.Body != p.Body {
			continue
		}
		delta := m.Timestamp.Sub(p.Timestamp)
		if delta < 0 {
			delta = -delta
		}
		if delta <= window {
			return true
		}
	}
	return false
}
