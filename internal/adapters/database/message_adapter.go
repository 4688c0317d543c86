package database

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/repositories"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/clients/postgres"
	apperrors "github.com/Rakhazzan/SINTESIS/pkg/errors"
)

var messageColumns = []any{"id", "sender_id", "receiver_id", "body", "is_read", "timestamp"}

// MessageAdapter implements the MessageRepository interface
type MessageAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewMessageAdapter creates a new message adapter
func NewMessageAdapter(client *postgres.Client) repositories.MessageRepository {
	return &MessageAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// ListConversation retrieves the messages exchanged between a and b
func (a *MessageAdapter) ListConversation(ctx context.Context, userA, userB string) ([]*entities.Message, error) {
	query, args, err := a.db.Select(messageColumns...).
		From(entities.TableMessages).
		Where(goqu.Or(
			goqu.Ex{"sender_id": userA, "receiver_id": userB},
			goqu.Ex{"sender_id": userB, "receiver_id": userA},
		)).
		Order(goqu.I("timestamp").Asc(), goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list messages", err)
	}
	defer rows.Close()

	messages := make([]*entities.Message, 0)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan message", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating messages", err)
	}
	return messages, nil
}

// Create stores a message. The identifier and timestamp are assigned by the
// database and returned with the stored row.
func (a *MessageAdapter) Create(ctx context.Context, message *entities.Message) (*entities.Message, error) {
	record := goqu.Record{
		"sender_id":   message.SenderID,
		"receiver_id": message.ReceiverID,
		"body":        message.Body,
		"is_read":     false,
	}

	query, args, err := a.db.Insert(entities.TableMessages).
		Rows(record).
		Returning(messageColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build insert query", err)
	}

	stored, err := scanMessage(a.client.DB().QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to create message", err)
	}
	return stored, nil
}

// MarkRead flags every message in ids as read with a single statement
func (a *MessageAdapter) MarkRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := a.db.Update(entities.TableMessages).
		Set(goqu.Record{"is_read": true}).
		Where(goqu.L(`"id" = ANY(?)`, pq.Array(ids))).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to mark messages as read", err)
	}
	return nil
}

// CountUnread counts unread messages addressed to receiverID
func (a *MessageAdapter) CountUnread(ctx context.Context, receiverID string) (int, error) {
	query, args, err := a.db.Select(goqu.COUNT("*")).
		From(entities.TableMessages).
		Where(goqu.Ex{"receiver_id": receiverID, "is_read": false}).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}
	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError("failed to count unread messages", err)
	}
	return count, nil
}

func scanMessage(row rowScanner) (*entities.Message, error) {
	message := &entities.Message{}
	err := row.Scan(
		&message.ID,
		&message.SenderID,
		&message.ReceiverID,
		&message.Body,
		&message.IsRead,
		&message.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return message, nil
}
