package ws

import (
	"time"

	"github.com/fitgrid/messaging-service/internal/domain"
)

// Broadcaster adapts service-layer notifications to realtime events. It
// implements application.Notifier; all delivery semantics live in Registry.
type Broadcaster struct {
	registry *Registry
}

func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{registry: registry}
}

func (b *Broadcaster) MessageSent(msg *domain.Message, recipientID int64) {
	b.registry.SendToUser(recipientID, NewMessageEvent(msg))
}

// MessageDelivered pushes a delivered receipt to the sender once the
// recipient's client acks the message.
func (b *Broadcaster) MessageDelivered(msg *domain.Message, recipientID int64) {
	at := time.Now()
	if msg.DeliveredAt != nil {
		at = *msg.DeliveredAt
	}
	b.registry.SendToUser(msg.SenderID, DeliveredEvent(msg, recipientID, at))
}

func (b *Broadcaster) MessagesRead(conversationID string, readerID int64, readAt time.Time, peerID int64) {
	b.registry.SendToUser(peerID, ReadEvent(conversationID, readerID, readAt))
}
