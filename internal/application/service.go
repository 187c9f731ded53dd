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

// Notifier receives messaging events for best-effort realtime push. The
// service's own correctness never depends on a push succeeding, so none of
// these methods can fail.
type Notifier interface {
	MessageSent(msg *domain.Message, recipientID int64)
	MessageDelivered(msg *domain.Message, recipientID int64)
	MessagesRead(conversationID string, readerID int64, readAt time.Time, peerID int64)
}

// UnreadCache caches per-user unread counters. Implementations are
// best-effort; a miss or failure falls through to the store.
type UnreadCache interface {
	Get(ctx context.Context, userID int64) (int64, bool)
	Set(ctx context.Context, userID int64, count int64)
	Invalidate(ctx context.Context, userID int64)
}

// Service enforces every business rule for direct messaging. It is the sole
// entry point other components use to mutate messaging state.
type Service struct {
	repo     repository.Repository
	users    repository.UserDirectory
	notifier Notifier
	unread   UnreadCache
	log      *zap.Logger
}

func New(repo repository.Repository, users repository.UserDirectory, notifier Notifier, unread UnreadCache, log *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		notifier: notifier,
		unread:   unread,
		log:      log,
	}
}

const (
	MinPageSize = 1
	MaxPageSize = 100
)

func validatePagination(page, pageSize int) error {
	if page < 1 {
		return domain.ErrInvalidPage
	}
	if pageSize < MinPageSize || pageSize > MaxPageSize {
		return domain.ErrInvalidPageSize
	}
	return nil
}

func offsetOf(page, pageSize int) int {
	return (page - 1) * pageSize
}

func (s *Service) ensureUserExists(ctx context.Context, userID int64) error {
	_, err := s.users.FindUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("look up user %d: %w", userID, err)
	}
	return nil
}

// conversationForParticipant loads a conversation and checks membership.
func (s *Service) conversationForParticipant(ctx context.Context, conversationID string, userID int64) (*domain.Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if !conv.HasParticipant(userID) {
		return nil, domain.ErrConversationForbidden
	}
	return conv, nil
}

// ConversationPeer resolves the other participant of a conversation the
// user belongs to. The realtime layer uses it to direct typing indicators.
func (s *Service) ConversationPeer(ctx context.Context, conversationID string, userID int64) (int64, error) {
	conv, err := s.conversationForParticipant(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	return conv.PeerOf(userID), nil
}
