package application

import (
	"context"
	"fmt"

	"github.com/fitgrid/messaging-service/internal/domain"
)

// GetConversations lists conversations the user participates in, excluding
// ones they archived. Pagination is offset-based; a page boundary may shift
// if new messages arrive between requests, which is accepted.
func (s *Service) GetConversations(ctx context.Context, userID int64, page, pageSize int) ([]*domain.Conversation, error) {
	if err := validatePagination(page, pageSize); err != nil {
		return nil, err
	}
	convs, err := s.repo.ListConversations(ctx, userID, pageSize, offsetOf(page, pageSize))
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

// ArchiveConversation flips the caller's archived flag. The conversation
// itself is never deleted.
func (s *Service) ArchiveConversation(ctx context.Context, conversationID string, userID int64, archived bool) error {
	if _, err := s.conversationForParticipant(ctx, conversationID, userID); err != nil {
		return err
	}
	if err := s.repo.SetConversationArchived(ctx, conversationID, userID, archived); err != nil {
		return fmt.Errorf("set archived: %w", err)
	}
	return nil
}
