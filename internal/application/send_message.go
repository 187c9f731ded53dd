package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fitgrid/messaging-service/internal/domain"
	"github.com/fitgrid/messaging-service/internal/observability"
	"github.com/fitgrid/messaging-service/internal/repository"
)

type SendMessageCommand struct {
	SenderID    int64
	RecipientID int64
	Content     string
}

// SendMessage validates the command, resolves or creates the conversation
// for the canonical participant pair, persists the message, and hands it to
// the notifier for best-effort push to the recipient's live channel.
func (s *Service) SendMessage(ctx context.Context, cmd SendMessageCommand) (*domain.Message, error) {
	if cmd.SenderID == cmd.RecipientID {
		return nil, domain.ErrSelfMessage
	}
	if err := domain.ValidateContent(cmd.Content); err != nil {
		return nil, err
	}

	if err := s.ensureUserExists(ctx, cmd.SenderID); err != nil {
		return nil, err
	}
	if err := s.ensureUserExists(ctx, cmd.RecipientID); err != nil {
		return nil, err
	}

	blocked, err := s.repo.BlockExistsBetween(ctx, cmd.SenderID, cmd.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("check block: %w", err)
	}
	if blocked {
		return nil, domain.ErrUserBlocked
	}

	now := time.Now().UTC()

	conv, err := s.resolveConversation(ctx, cmd.SenderID, cmd.RecipientID, now)
	if err != nil {
		return nil, err
	}

	msg, err := domain.NewMessage(uuid.NewString(), conv.ID, cmd.SenderID, cmd.Content, now)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	observability.MessagesSentTotal.WithLabelValues("messaging").Inc()
	s.log.Info("message sent",
		zap.String("message_id", msg.ID),
		zap.String("conversation_id", conv.ID),
		zap.Int64("sender_id", cmd.SenderID))

	s.unread.Invalidate(ctx, cmd.RecipientID)
	s.notifier.MessageSent(msg, cmd.RecipientID)

	return msg, nil
}

// resolveConversation finds the conversation for the pair or creates one.
// Losing the create race to a concurrent sender is expected: a uniqueness
// violation on the canonical pair means someone else created it first, so
// re-fetch.
func (s *Service) resolveConversation(ctx context.Context, senderID, recipientID int64, now time.Time) (*domain.Conversation, error) {
	conv, err := s.repo.FindConversationByParticipants(ctx, senderID, recipientID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find conversation: %w", err)
	}

	conv, err = domain.NewConversation(uuid.NewString(), senderID, recipientID, now)
	if err != nil {
		return nil, err
	}

	err = s.repo.InsertConversation(ctx, conv)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, repository.ErrConversationExists) {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	conv, err = s.repo.FindConversationByParticipants(ctx, senderID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("refetch conversation after lost race: %w", err)
	}
	return conv, nil
}
