package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const MaxReportReasonLength = 500

type ReportStatus string

const (
	ReportPending  ReportStatus = "PENDING"
	ReportReviewed ReportStatus = "REVIEWED"
	ReportResolved ReportStatus = "RESOLVED"
)

// MessageReport is created with status PENDING; status transitions belong to
// the moderation workflow, not this service.
type MessageReport struct {
	ID        string
	MessageID string
	ReporterID int64
	Reason    string
	Status    ReportStatus
	CreatedAt time.Time
}

func ValidateReportReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrEmptyReason
	}
	if utf8.RuneCountInString(reason) > MaxReportReasonLength {
		return ErrReasonTooLong
	}
	return nil
}

func NewReport(id, messageID string, reporterID int64, reason string, now time.Time) (*MessageReport, error) {
	if err := ValidateReportReason(reason); err != nil {
		return nil, err
	}
	return &MessageReport{
		ID:         id,
		MessageID:  messageID,
		ReporterID: reporterID,
		Reason:     reason,
		Status:     ReportPending,
		CreatedAt:  now,
	}, nil
}
