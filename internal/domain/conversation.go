package domain

import "time"

// Conversation invariants:
// 1. Participants are stored in canonical order: Participant1ID < Participant2ID.
// 2. Exactly one conversation exists per unordered participant pair.
// 3. LastMessageAt never moves backward.
type Conversation struct {
	ID             string
	Participant1ID int64
	Participant2ID int64
	LastMessageAt  time.Time
	ArchivedBy1    bool
	ArchivedBy2    bool
	CreatedAt      time.Time
}

// CanonicalPair orders two user ids so a pair maps to a single conversation
// row regardless of send direction. Lookups must apply the same ordering.
func CanonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

func NewConversation(id string, userA, userB int64, now time.Time) (*Conversation, error) {
	if userA == userB {
		return nil, ErrSelfMessage
	}
	p1, p2 := CanonicalPair(userA, userB)
	return &Conversation{
		ID:             id,
		Participant1ID: p1,
		Participant2ID: p2,
		CreatedAt:      now,
	}, nil
}

func (c *Conversation) HasParticipant(userID int64) bool {
	return c.Participant1ID == userID || c.Participant2ID == userID
}

// PeerOf returns the other participant. Callers must check membership first.
func (c *Conversation) PeerOf(userID int64) int64 {
	if c.Participant1ID == userID {
		return c.Participant2ID
	}
	return c.Participant1ID
}

func (c *Conversation) ArchivedBy(userID int64) bool {
	switch userID {
	case c.Participant1ID:
		return c.ArchivedBy1
	case c.Participant2ID:
		return c.ArchivedBy2
	}
	return false
}
