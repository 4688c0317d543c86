package chat

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Rakhazzan/SINTESIS/internal/application/filter"
	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/repositories"
)

// ReadTracker marks the messages a user has just been shown as read
type ReadTracker struct {
	messages repositories.MessageRepository
}

// NewReadTracker creates a read tracker
func NewReadTracker(messages repositories.MessageRepository) *ReadTracker {
	return &ReadTracker{messages: messages}
}

// MarkFetched flags every unread message addressed to self among msgs as read
// with one batched call, and returns the ids it flagged. No call is made
// when there is nothing to flag.
func (t *ReadTracker) MarkFetched(ctx context.Context, self string, msgs []*entities.Message) ([]string, error) {
	unread := filter.Unread(msgs, self)
	if len(unread) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(unread))
	for _, m := range unread {
		if m.IsTemporary() {
			continue
		}
		ids = append(ids, m.ID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := t.messages.MarkRead(ctx, ids); err != nil {
		log.Warn().Err(err).Str("user_id", self).Int("count", len(ids)).Msg("failed to mark messages as read")
		return nil, err
	}
	return ids, nil
}

// markRead returns a copy of list with the given ids flagged as read
func markRead(list []*entities.Message, ids []string) []*entities.Message {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	out := make([]*entities.Message, len(list))
	for i, m := range list {
		if _, ok := set[m.ID]; ok && !m.IsRead {
			c := m.Clone()
			c.IsRead = true
			m = c
		}
		out[i] = m
	}
	return out
}
