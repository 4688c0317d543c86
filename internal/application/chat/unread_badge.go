package chat

import (
	"context"
	"time"

	"github.com/Rakhazzan/SINTESIS/internal/application/livesync"
	"github.com/Rakhazzan/SINTESIS/internal/domain/providers"
	"github.com/Rakhazzan/SINTESIS/internal/domain/repositories"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/observability"
)

// NewUnreadBadge creates the controller behind the header badge: the count
// of unread messages addressed to self, recounted whenever a message
// addressed to self changes
func NewUnreadBadge(self string, messages repositories.MessageRepository, feed providers.ChangeFeed, fetchTimeout time.Duration, metrics *observability.SyncMetrics) *livesync.Controller[int] {
	return livesync.New(livesync.Options[int]{
		Name:   "unread",
		Feed:   feed,
		Scopes: []providers.Scope{providers.ReceiverScope(self)},
		Fetch: func(ctx context.Context) (int, error) {
			return messages.CountUnread(ctx, self)
		},
		FetchTimeout: fetchTimeout,
		Metrics:      metrics,
	})
}
