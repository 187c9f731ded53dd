package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxContentLength is the maximum message length in characters, not bytes.
const MaxContentLength = 5000

// Message invariants:
// 1. Content is never blank and never exceeds MaxContentLength after validation.
// 2. Deleted messages stay in storage but are excluded from every read path.
// 3. Timestamps only move forward: DeliveredAt >= SentAt and ReadAt >= DeliveredAt when set.
type Message struct {
	ID             string
	ConversationID string
	SenderID       int64
	Content        string
	SentAt         time.Time
	DeliveredAt    *time.Time
	ReadAt         *time.Time
	Deleted        bool
}

// ValidateContent enforces the content rules shared by NewMessage and the
// service-layer pre-checks.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return ErrMessageTooLong
	}
	return nil
}

func NewMessage(id, conversationID string, senderID int64, content string, now time.Time) (*Message, error) {
	if err := ValidateContent(content); err != nil {
		return nil, err
	}
	return &Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		SentAt:         now,
	}, nil
}
