package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/fitgrid/messaging-service/internal/domain"
)

// A message represents a direct message row. Rows are soft-deleted: read
// paths filter on deleted, the row itself stays.
type message struct {
	bun.BaseModel `bun:"table:messages,alias:m"`

	ID             string     `bun:",pk,type:uuid"`
	ConversationID string     `bun:"conversation_id,notnull,type:uuid"`
	SenderID       int64      `bun:"sender_id,notnull"`
	Content        string     `bun:",notnull"`
	SentAt         time.Time  `bun:"sent_at,notnull"`
	DeliveredAt    *time.Time `bun:"delivered_at"`
	ReadAt         *time.Time `bun:"read_at"`
	Deleted        bool       `bun:",notnull,default:false"`
}

// A conversation row keeps its participants in canonical order.
// Migration enforces the pair invariant:
//
//	CREATE UNIQUE INDEX idx_conversation_pair
//	    ON conversations (participant1_id, participant2_id);
//	ALTER TABLE conversations
//	    ADD CONSTRAINT chk_participant_order CHECK (participant1_id < participant2_id);
type conversation struct {
	bun.BaseModel `bun:"table:conversations,alias:c"`

	ID             string    `bun:",pk,type:uuid"`
	Participant1ID int64     `bun:"participant1_id,notnull"`
	Participant2ID int64     `bun:"participant2_id,notnull"`
	LastMessageAt  time.Time `bun:"last_message_at,nullzero"`
	ArchivedBy1    bool      `bun:"archived_by1,notnull,default:false"`
	ArchivedBy2    bool      `bun:"archived_by2,notnull,default:false"`
	CreatedAt      time.Time `bun:"created_at,nullzero,default:now()"`
}

// A blockedUser row is a directional block. Migration enforces one active
// record per ordered pair:
//
//	CREATE UNIQUE INDEX idx_block_pair ON blocked_users (blocker_id, blocked_id);
type blockedUser struct {
	bun.BaseModel `bun:"table:blocked_users,alias:b"`

	ID        string    `bun:",pk,type:uuid"`
	BlockerID int64     `bun:"blocker_id,notnull"`
	BlockedID int64     `bun:"blocked_id,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:now()"`
}

type messageReport struct {
	bun.BaseModel `bun:"table:message_reports,alias:r"`

	ID         string    `bun:",pk,type:uuid"`
	MessageID  string    `bun:"message_id,notnull,type:uuid"`
	ReporterID int64     `bun:"reporter_id,notnull"`
	Reason     string    `bun:",notnull"`
	Status     string    `bun:",notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,default:now()"`
}

// A user row is owned by the user service; this service only reads it for
// existence checks.
type user struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       int64  `bun:",pk"`
	Username string `bun:",notnull"`
}

func (m message) toDomain() *domain.Message {
	return &domain.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		SentAt:         m.SentAt,
		DeliveredAt:    m.DeliveredAt,
		ReadAt:         m.ReadAt,
		Deleted:        m.Deleted,
	}
}

func fromDomainMessage(msg *domain.Message) *message {
	return &message{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		SentAt:         msg.SentAt,
		DeliveredAt:    msg.DeliveredAt,
		ReadAt:         msg.ReadAt,
		Deleted:        msg.Deleted,
	}
}

func (c conversation) toDomain() *domain.Conversation {
	return &domain.Conversation{
		ID:             c.ID,
		Participant1ID: c.Participant1ID,
		Participant2ID: c.Participant2ID,
		LastMessageAt:  c.LastMessageAt,
		ArchivedBy1:    c.ArchivedBy1,
		ArchivedBy2:    c.ArchivedBy2,
		CreatedAt:      c.CreatedAt,
	}
}

func (b blockedUser) toDomain() *domain.BlockedUser {
	return &domain.BlockedUser{
		ID:        b.ID,
		BlockerID: b.BlockerID,
		BlockedID: b.BlockedID,
		CreatedAt: b.CreatedAt,
	}
}
