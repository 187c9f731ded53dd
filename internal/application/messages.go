package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fitgrid/messaging-service/internal/domain"
	"github.com/fitgrid/messaging-service/internal/repository"
)

// GetMessages lists non-deleted messages of a conversation oldest first.
// The caller must be a participant.
func (s *Service) GetMessages(ctx context.Context, conversationID string, userID int64, page, pageSize int) ([]*domain.Message, error) {
	if err := validatePagination(page, pageSize); err != nil {
		return nil, err
	}
	if _, err := s.conversationForParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, conversationID, pageSize, offsetOf(page, pageSize))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// MarkAsRead stamps every unread message addressed to the user in the
// conversation and reports whether any row changed. The peer gets a read
// receipt over the live channel when something changed.
func (s *Service) MarkAsRead(ctx context.Context, conversationID string, userID int64) (bool, error) {
	conv, err := s.conversationForParticipant(ctx, conversationID, userID)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	changed, err := s.repo.MarkConversationRead(ctx, conversationID, userID, now)
	if err != nil {
		return false, fmt.Errorf("mark conversation read: %w", err)
	}
	if changed == 0 {
		return false, nil
	}

	s.unread.Invalidate(ctx, userID)
	s.notifier.MessagesRead(conversationID, userID, now, conv.PeerOf(userID))
	return true, nil
}

// MarkDelivered records the recipient's delivery ack for a pushed message
// and notifies the sender. Acking an already-delivered or deleted message
// is a no-op.
func (s *Service) MarkDelivered(ctx context.Context, messageID string, userID int64) error {
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.Deleted {
		return nil
	}

	if _, err := s.conversationForParticipant(ctx, msg.ConversationID, userID); err != nil {
		return err
	}
	if msg.SenderID == userID {
		// senders do not ack their own messages
		return nil
	}
	if msg.DeliveredAt != nil {
		return nil
	}

	now := time.Now().UTC()
	if err := s.repo.MarkMessageDelivered(ctx, messageID, now); err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}

	msg.DeliveredAt = &now
	s.notifier.MessageDelivered(msg, userID)
	return nil
}

// DeleteMessage soft-deletes: the row stays in storage but disappears from
// every read path. Only the sender may delete; deleting twice is a no-op.
func (s *Service) DeleteMessage(ctx context.Context, messageID string, userID int64) error {
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return domain.ErrNotMessageSender
	}
	if msg.Deleted {
		return nil
	}

	if err := s.repo.MarkMessageDeleted(ctx, messageID); err != nil {
		return fmt.Errorf("mark deleted: %w", err)
	}

	// An undelivered copy may have counted toward the recipient's unread total.
	if conv, err := s.repo.GetConversation(ctx, msg.ConversationID); err == nil {
		s.unread.Invalidate(ctx, conv.PeerOf(userID))
	} else {
		s.log.Warn("could not resolve conversation for unread invalidation",
			zap.String("conversation_id", msg.ConversationID), zap.Error(err))
	}

	return nil
}

// GetUnreadCount counts unread, non-deleted messages addressed to the user,
// consulting the cache first.
func (s *Service) GetUnreadCount(ctx context.Context, userID int64) (int64, error) {
	if n, ok := s.unread.Get(ctx, userID); ok {
		return n, nil
	}
	n, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	s.unread.Set(ctx, userID, n)
	return n, nil
}

func (s *Service) getMessage(ctx context.Context, messageID string) (*domain.Message, error) {
	msg, err := s.repo.GetMessage(ctx, messageID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load message: %w", err)
	}
	return msg, nil
}
