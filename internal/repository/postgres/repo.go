package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/fitgrid/messaging-service/internal/domain"
	"github.com/fitgrid/messaging-service/internal/repository"
)

const pgUniqueViolation = "23505"

// Store provides messaging storage in PostgreSQL.
type Store struct {
	bun *bun.DB
}

// Connect opens the database and pings it to ensure the connection works.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{bun: bun.NewDB(sqlDB, pgdialect.New())}, nil
}

// Ping is used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.bun.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.bun.Close()
}

// AppendMessage inserts the message and bumps the conversation's
// last_message_at in one transaction so readers never observe one without
// the other. GREATEST keeps last_message_at from moving backward.
func (s *Store) AppendMessage(ctx context.Context, msg *domain.Message) error {
	return s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(fromDomainMessage(msg)).Exec(ctx); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		_, err := tx.NewUpdate().
			Model((*conversation)(nil)).
			Set("last_message_at = GREATEST(COALESCE(last_message_at, 'epoch'::timestamptz), ?)", msg.SentAt).
			Where("id = ?", msg.ConversationID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		return nil
	})
}

func (s *Store) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	var m message
	err := s.bun.NewSelect().Model(&m).Where("m.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select message: %w", err)
	}
	return m.toDomain(), nil
}

// ListMessages returns non-deleted messages oldest first.
func (s *Store) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*domain.Message, error) {
	var msgs []message
	err := s.bun.NewSelect().
		Model(&msgs).
		Where("m.conversation_id = ?", conversationID).
		Where("m.deleted = FALSE").
		Order("sent_at ASC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	out := make([]*domain.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.toDomain()
	}
	return out, nil
}

func (s *Store) MarkMessageDeleted(ctx context.Context, id string) error {
	res, err := s.bun.NewUpdate().
		Model((*message)(nil)).
		Set("deleted = TRUE").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark deleted: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) MarkMessageDelivered(ctx context.Context, id string, at time.Time) error {
	_, err := s.bun.NewUpdate().
		Model((*message)(nil)).
		Set("delivered_at = ?", at).
		Where("id = ?", id).
		Where("delivered_at IS NULL").
		Where("deleted = FALSE").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return nil
}

// MarkConversationRead stamps every unread message addressed to readerID.
// delivered_at is backfilled so the per-message timestamps stay monotonic.
func (s *Store) MarkConversationRead(ctx context.Context, conversationID string, readerID int64, at time.Time) (int64, error) {
	res, err := s.bun.NewUpdate().
		Model((*message)(nil)).
		Set("read_at = ?", at).
		Set("delivered_at = COALESCE(delivered_at, ?)", at).
		Where("conversation_id = ?", conversationID).
		Where("sender_id != ?", readerID).
		Where("read_at IS NULL").
		Where("deleted = FALSE").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (s *Store) CountUnread(ctx context.Context, userID int64) (int64, error) {
	n, err := s.bun.NewSelect().
		Model((*message)(nil)).
		Join("JOIN conversations AS c ON c.id = m.conversation_id").
		Where("(c.participant1_id = ? OR c.participant2_id = ?)", userID, userID).
		Where("m.sender_id != ?", userID).
		Where("m.read_at IS NULL").
		Where("m.deleted = FALSE").
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return int64(n), nil
}

// InsertConversation maps a unique violation on the canonical pair to
// ErrConversationExists so concurrent creators can re-fetch the winner.
func (s *Store) InsertConversation(ctx context.Context, conv *domain.Conversation) error {
	c := &conversation{
		ID:             conv.ID,
		Participant1ID: conv.Participant1ID,
		Participant2ID: conv.Participant2ID,
		CreatedAt:      conv.CreatedAt,
	}
	if _, err := s.bun.NewInsert().Model(c).Exec(ctx); err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.Field('C') == pgUniqueViolation {
			return repository.ErrConversationExists
		}
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var c conversation
	err := s.bun.NewSelect().Model(&c).Where("c.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select conversation: %w", err)
	}
	return c.toDomain(), nil
}

func (s *Store) FindConversationByParticipants(ctx context.Context, userA, userB int64) (*domain.Conversation, error) {
	p1, p2 := domain.CanonicalPair(userA, userB)
	var c conversation
	err := s.bun.NewSelect().
		Model(&c).
		Where("c.participant1_id = ?", p1).
		Where("c.participant2_id = ?", p2).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select conversation by pair: %w", err)
	}
	return c.toDomain(), nil
}

// ListConversations excludes conversations the user archived, newest
// activity first.
func (s *Store) ListConversations(ctx context.Context, userID int64, limit, offset int) ([]*domain.Conversation, error) {
	var convs []conversation
	err := s.bun.NewSelect().
		Model(&convs).
		Where("(c.participant1_id = ? AND c.archived_by1 = FALSE) OR (c.participant2_id = ? AND c.archived_by2 = FALSE)", userID, userID).
		Order("last_message_at DESC NULLS LAST").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select conversations: %w", err)
	}
	out := make([]*domain.Conversation, len(convs))
	for i, c := range convs {
		out[i] = c.toDomain()
	}
	return out, nil
}

func (s *Store) SetConversationArchived(ctx context.Context, id string, userID int64, archived bool) error {
	res, err := s.bun.NewUpdate().
		Model((*conversation)(nil)).
		Set("archived_by1 = CASE WHEN participant1_id = ? THEN ? ELSE archived_by1 END", userID, archived).
		Set("archived_by2 = CASE WHEN participant2_id = ? THEN ? ELSE archived_by2 END", userID, archived).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set archived: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpsertBlock is a no-op when the ordered pair is already blocked.
func (s *Store) UpsertBlock(ctx context.Context, block *domain.BlockedUser) error {
	b := &blockedUser{
		ID:        block.ID,
		BlockerID: block.BlockerID,
		BlockedID: block.BlockedID,
		CreatedAt: block.CreatedAt,
	}
	_, err := s.bun.NewInsert().
		Model(b).
		On("CONFLICT (blocker_id, blocked_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert block: %w", err)
	}
	return nil
}

func (s *Store) DeleteBlock(ctx context.Context, blockerID, blockedID int64) (bool, error) {
	res, err := s.bun.NewDelete().
		Model((*blockedUser)(nil)).
		Where("blocker_id = ?", blockerID).
		Where("blocked_id = ?", blockedID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("delete block: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *Store) BlockExistsBetween(ctx context.Context, userA, userB int64) (bool, error) {
	exists, err := s.bun.NewSelect().
		Model((*blockedUser)(nil)).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)",
			userA, userB, userB, userA).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("block exists: %w", err)
	}
	return exists, nil
}

func (s *Store) InsertReport(ctx context.Context, report *domain.MessageReport) error {
	r := &messageReport{
		ID:         report.ID,
		MessageID:  report.MessageID,
		ReporterID: report.ReporterID,
		Reason:     report.Reason,
		Status:     string(report.Status),
		CreatedAt:  report.CreatedAt,
	}
	if _, err := s.bun.NewInsert().Model(r).Exec(ctx); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// FindUser implements repository.UserDirectory against the shared users
// table, which the user service owns.
func (s *Store) FindUser(ctx context.Context, id int64) (*domain.User, error) {
	var u user
	err := s.bun.NewSelect().Model(&u).Where("u.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &domain.User{ID: u.ID, Username: u.Username}, nil
}
