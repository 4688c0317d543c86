package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Rakhazzan/SINTESIS/internal/application/livesync"
	"github.com/Rakhazzan/SINTESIS/internal/application/loaders"
	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/repositories"
	apperrors "github.com/Rakhazzan/SINTESIS/pkg/errors"
)

// MessageService sends messages outside of a mounted conversation and lists contacts
type MessageService struct {
	messages repositories.MessageRepository
	users    repositories.UserRepository
	loaders  *loaders.Loaders
	sessions *Sessions
}

// NewMessageService creates a new message service. sessions may be nil.
func NewMessageService(messages repositories.MessageRepository, users repositories.UserRepository, ld *loaders.Loaders, sessions *Sessions) *MessageService {
	return &MessageService{messages: messages, users: users, loaders: ld, sessions: sessions}
}

// Send sends a message from the session user to peerID and returns it as
// stored. When the sender has the conversation mounted the send goes
// through its optimistic layer; otherwise the message is written directly.
func (s *MessageService) Send(ctx context.Context, session *entities.Session, peerID, body string) (*entities.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("message body is empty")
	}
	if peerID == "" || peerID == session.UserID {
		return nil, apperrors.NewValidationError("a different recipient is required")
	}

	if s.sessions != nil {
		if conv, ok := s.sessions.Lookup(session.UserID, peerID); ok {
			stored, err := conv.SendMessage(ctx, body)
			if !errors.Is(err, livesync.ErrStopped) {
				return stored, err
			}
			log.Debug().Str("peer_id", peerID).Msg("conversation unmounted during send, writing directly")
		}
	}

	return s.messages.Create(ctx, &entities.Message{
		SenderID:   session.UserID,
		ReceiverID: peerID,
		Body:       body,
	})
}

// Contacts lists every other user ordered by name
func (s *MessageService) Contacts(ctx context.Context, session *entities.Session) ([]*entities.UserProfile, error) {
	return s.users.ListExcept(ctx, session.UserID)
}

// Participants resolves the profiles on both ends of a conversation. A
// missing peer profile is reported as NOT_FOUND.
func (s *MessageService) Participants(ctx context.Context, self, peer string) (*entities.UserProfile, *entities.UserProfile, error) {
	byID, err := s.loaders.ProfilesByID(ctx, []string{self, peer})
	if err != nil {
		return nil, nil, apperrors.NewExternalError("failed to load profiles", err)
	}
	peerProfile, ok := byID[peer]
	if !ok {
		return nil, nil, apperrors.NewNotFoundError("contact not found")
	}
	return byID[self], peerProfile, nil
}
