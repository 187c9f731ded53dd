package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fitgrid/messaging-service/internal/domain"
)

// ReportMessage files a PENDING report for the moderation workflow.
// Soft-deleted messages cannot be reported, and senders cannot report
// themselves.
func (s *Service) ReportMessage(ctx context.Context, messageID string, reporterID int64, reason string) (*domain.MessageReport, error) {
	if err := domain.ValidateReportReason(reason); err != nil {
		return nil, err
	}

	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Deleted {
		return nil, domain.ErrMessageNotFound
	}
	if msg.SenderID == reporterID {
		return nil, domain.ErrSelfReport
	}

	report, err := domain.NewReport(uuid.NewString(), messageID, reporterID, reason, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.repo.InsertReport(ctx, report); err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}

	s.log.Info("message reported",
		zap.String("message_id", messageID),
		zap.Int64("reporter_id", reporterID))
	return report, nil
}
