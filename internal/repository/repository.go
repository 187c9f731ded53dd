package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fitgrid/messaging-service/internal/domain"
)

// ErrNotFound is the storage-level absence signal. The service layer maps it
// to the business error appropriate for the operation.
var ErrNotFound = errors.New("record not found")

// ErrConversationExists is returned by InsertConversation when another writer
// created a conversation for the same canonical participant pair first. The
// caller re-fetches instead of failing.
var ErrConversationExists = errors.New("conversation already exists for participant pair")

// Repository persists the messaging entities. Every method is individually
// atomic; AppendMessage additionally commits the message insert and the
// conversation's last_message_at bump in one transaction.
type Repository interface {
	// Messages
	AppendMessage(ctx context.Context, msg *domain.Message) error
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*domain.Message, error)
	MarkMessageDeleted(ctx context.Context, id string) error
	MarkMessageDelivered(ctx context.Context, id string, at time.Time) error
	MarkConversationRead(ctx context.Context, conversationID string, readerID int64, at time.Time) (int64, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)

	// Conversations
	InsertConversation(ctx context.Context, conv *domain.Conversation) error
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	FindConversationByParticipants(ctx context.Context, userA, userB int64) (*domain.Conversation, error)
	ListConversations(ctx context.Context, userID int64, limit, offset int) ([]*domain.Conversation, error)
	SetConversationArchived(ctx context.Context, id string, userID int64, archived bool) error

	// Blocks
	UpsertBlock(ctx context.Context, block *domain.BlockedUser) error
	DeleteBlock(ctx context.Context, blockerID, blockedID int64) (bool, error)
	BlockExistsBetween(ctx context.Context, userA, userB int64) (bool, error)

	// Reports
	InsertReport(ctx context.Context, report *domain.MessageReport) error
}

// UserDirectory resolves accounts owned by the user service.
type UserDirectory interface {
	FindUser(ctx context.Context, id int64) (*domain.User, error)
}
