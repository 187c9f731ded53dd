package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitgrid/messaging-service/internal/domain"
)

func TestReportMessage(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestService(1, 2)

	msg, err := svc.SendMessage(ctx, SendMessageCommand{SenderID: 1, RecipientID: 2, Content: "rude"})
	require.NoError(t, err)

	report, err := svc.ReportMessage(ctx, msg.ID, 2, "harassment")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportPending, report.Status)
	assert.Equal(t, msg.ID, report.MessageID)
	assert.Len(t, repo.reports, 1)

	_, err = svc.ReportMessage(ctx, msg.ID, 2, "  ")
	assert.ErrorIs(t, err, domain.ErrEmptyReason)

	_, err = svc.ReportMessage(ctx, msg.ID, 1, "self report")
	assert.ErrorIs(t, err, domain.ErrSelfReport)

	_, err = svc.ReportMessage(ctx, "missing", 2, "spam")
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)

	// Deleted messages cannot be reported.
	require.NoError(t, svc.DeleteMessage(ctx, msg.ID, 1))
	_, err = svc.ReportMessage(ctx, msg.ID, 2, "spam")
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
}

func TestBlockUser(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestService(1, 2)

	_, err := svc.BlockUser(ctx, 1, 1)
	assert.ErrorIs(t, err, domain.ErrSelfBlock)

	_, err = svc.BlockUser(ctx, 1, 99)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	block, err := svc.BlockUser(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), block.BlockedID)

	// Blocking again is a no-op, never an error.
	_, err = svc.BlockUser(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, repo.blocks, 1)

	removed, err := svc.UnblockUser(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.UnblockUser(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, removed)
}
