package repositories

import (
	"context"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
)

// MessageRepository defines the interface for message data operations
type MessageRepository interface {
	// ListConversation retrieves the messages exchanged between a and b,
	// ordered by timestamp ascending
	ListConversation(ctx context.Context, a, b string) ([]*entities.Message, error)

	// Create stores a message and returns the record as stored, with the
	// identifier and timestamp assigned by the data service
	Create(ctx context.Context, message *entities.Message) (*entities.Message, error)

	// MarkRead sets is_read on every id in a single statement
	MarkRead(ctx context.Context, ids []string) error

	// CountUnread counts unread messages addressed to receiverID
	CountUnread(ctx context.Context, receiverID string) (int, error)
}
