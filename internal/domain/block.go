package domain

import "time"

// BlockedUser is a directional blocker -> blocked relation. At most one
// active record exists per ordered pair; sending is refused when a block
// exists in either direction.
type BlockedUser struct {
	ID        string
	BlockerID int64
	BlockedID int64
	CreatedAt time.Time
}

func NewBlock(id string, blockerID, blockedID int64, now time.Time) (*BlockedUser, error) {
	if blockerID == blockedID {
		return nil, ErrSelfBlock
	}
	return &BlockedUser{
		ID:        id,
		BlockerID: blockerID,
		BlockedID: blockedID,
		CreatedAt: now,
	}, nil
}
