package httpapi

import (
	"time"

	"github.com/fitgrid/messaging-service/internal/domain"
)

type messageResponse struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	SenderID       int64      `json:"senderId"`
	Content        string     `json:"content"`
	SentAt         time.Time  `json:"sentAt"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
}

type conversationResponse struct {
	ID             string    `json:"id"`
	Participant1ID int64     `json:"participant1Id"`
	Participant2ID int64     `json:"participant2Id"`
	LastMessageAt  time.Time `json:"lastMessageAt,omitzero"`
	Archived       bool      `json:"archived"`
}

type reportResponse struct {
	ID        string    `json:"id"`
	MessageID string    `json:"messageId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func toMessageResponse(msg *domain.Message) messageResponse {
	return messageResponse{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		SentAt:         msg.SentAt,
		DeliveredAt:    msg.DeliveredAt,
		ReadAt:         msg.ReadAt,
	}
}

func toConversationResponse(conv *domain.Conversation, viewerID int64) conversationResponse {
	return conversationResponse{
		ID:             conv.ID,
		Participant1ID: conv.Participant1ID,
		Participant2ID: conv.Participant2ID,
		LastMessageAt:  conv.LastMessageAt,
		Archived:       conv.ArchivedBy(viewerID),
	}
}

func toReportResponse(report *domain.MessageReport) reportResponse {
	return reportResponse{
		ID:        report.ID,
		MessageID: report.MessageID,
		Status:    string(report.Status),
		CreatedAt: report.CreatedAt,
	}
}
