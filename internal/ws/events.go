package ws

import (
	"encoding/json"
	"time"

	"github.com/fitgrid/messaging-service/internal/domain"
)

// EventType discriminates the realtime event envelope. The transport layer
// switches on it when deserializing.
type EventType string

const (
	EventNewMessage       EventType = "new_message"
	EventMessageDelivered EventType = "message_delivered"
	EventMessageRead      EventType = "message_read"
	EventTypingStart      EventType = "typing_start"
	EventTypingStop       EventType = "typing_stop"
	EventUserOnline       EventType = "user_online"
	EventUserOffline      EventType = "user_offline"
	EventError            EventType = "error"
)

// Event is the self-describing envelope pushed over a live channel: a type
// tag plus that type's payload.
type Event struct {
	Type      EventType `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type MessagePayload struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	SenderID       int64      `json:"senderId"`
	Content        string     `json:"content"`
	SentAt         time.Time  `json:"sentAt"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
}

// ReceiptPayload covers delivered and read receipts. MessageID is set for
// delivered receipts; read receipts cover the whole conversation.
type ReceiptPayload struct {
	MessageID      string    `json:"messageId,omitempty"`
	ConversationID string    `json:"conversationId"`
	UserID         int64     `json:"userId"`
	At             time.Time `json:"at"`
}

type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         int64  `json:"userId"`
}

type PresencePayload struct {
	UserID   int64     `json:"userId"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen,omitzero"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewMessageEvent(msg *domain.Message) Event {
	return Event{
		Type: EventNewMessage,
		Payload: MessagePayload{
			ID:             msg.ID,
			ConversationID: msg.ConversationID,
			SenderID:       msg.SenderID,
			Content:        msg.Content,
			SentAt:         msg.SentAt,
			DeliveredAt:    msg.DeliveredAt,
			ReadAt:         msg.ReadAt,
		},
		Timestamp: time.Now(),
	}
}

func DeliveredEvent(msg *domain.Message, recipientID int64, at time.Time) Event {
	return Event{
		Type: EventMessageDelivered,
		Payload: ReceiptPayload{
			MessageID:      msg.ID,
			ConversationID: msg.ConversationID,
			UserID:         recipientID,
			At:             at,
		},
		Timestamp: time.Now(),
	}
}

func ReadEvent(conversationID string, readerID int64, at time.Time) Event {
	return Event{
		Type: EventMessageRead,
		Payload: ReceiptPayload{
			ConversationID: conversationID,
			UserID:         readerID,
			At:             at,
		},
		Timestamp: time.Now(),
	}
}

func TypingEvent(eventType EventType, conversationID string, userID int64) Event {
	return Event{
		Type:      eventType,
		Payload:   TypingPayload{ConversationID: conversationID, UserID: userID},
		Timestamp: time.Now(),
	}
}

func PresenceEvent(userID int64, online bool, lastSeen time.Time) Event {
	eventType := EventUserOnline
	if !online {
		eventType = EventUserOffline
	}
	return Event{
		Type:      eventType,
		Payload:   PresencePayload{UserID: userID, Online: online, LastSeen: lastSeen},
		Timestamp: time.Now(),
	}
}

func ErrorEvent(code, message string) Event {
	return Event{
		Type:      EventError,
		Payload:   ErrorPayload{Code: code, Message: message},
		Timestamp: time.Now(),
	}
}

// ClientEvent is an inbound frame from a connected client. Payload is
// decoded according to Type.
type ClientEvent struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type TypingRequest struct {
	ConversationID string `json:"conversationId"`
}

type DeliveredAck struct {
	MessageID string `json:"messageId"`
}

type ReadRequest struct {
	ConversationID string `json:"conversationId"`
}
