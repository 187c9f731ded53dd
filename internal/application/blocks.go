package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fitgrid/messaging-service/internal/domain"
)

// BlockUser creates a directional block record. Blocking an already-blocked
// user is a no-op, never an error.
func (s *Service) BlockUser(ctx context.Context, blockerID, blockedID int64) (*domain.BlockedUser, error) {
	block, err := domain.NewBlock(uuid.NewString(), blockerID, blockedID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.ensureUserExists(ctx, blockedID); err != nil {
		return nil, err
	}

	if err := s.repo.UpsertBlock(ctx, block); err != nil {
		return nil, fmt.Errorf("upsert block: %w", err)
	}

	s.log.Info("user blocked",
		zap.Int64("blocker_id", blockerID),
		zap.Int64("blocked_id", blockedID))
	return block, nil
}

// UnblockUser removes the block if present and reports whether a record was
// removed.
func (s *Service) UnblockUser(ctx context.Context, blockerID, blockedID int64) (bool, error) {
	removed, err := s.repo.DeleteBlock(ctx, blockerID, blockedID)
	if err != nil {
		return false, fmt.Errorf("delete block: %w", err)
	}
	return removed, nil
}
