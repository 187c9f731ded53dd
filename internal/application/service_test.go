package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fitgrid/messaging-service/internal/domain"
	"github.com/fitgrid/messaging-service/internal/repository"
)

// fakeRepo is an in-memory Repository and UserDirectory sufficient for
// exercising the service's business rules.
type fakeRepo struct {
	mu            sync.Mutex
	messages      map[string]*domain.Message
	conversations map[string]*domain.Conversation
	blocks        map[[2]int64]*domain.BlockedUser
	reports       []*domain.MessageReport
	users         map[int64]*domain.User

	// When set, InsertConversation registers this conversation and reports
	// ErrConversationExists, simulating a lost create race.
	raceWinner *domain.Conversation
}

func newFakeRepo(userIDs ...int64) *fakeRepo {
	r := &fakeRepo{
		messages:      make(map[string]*domain.Message),
		conversations: make(map[string]*domain.Conversation),
		blocks:        make(map[[2]int64]*domain.BlockedUser),
		users:         make(map[int64]*domain.User),
	}
	for _, id := range userIDs {
		r.users[id] = &domain.User{ID: id}
	}
	return r
}

func (r *fakeRepo) AppendMessage(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *msg
	r.messages[msg.ID] = &cp
	if conv, ok := r.conversations[msg.ConversationID]; ok && msg.SentAt.After(conv.LastMessageAt) {
		conv.LastMessageAt = msg.SentAt
	}
	return nil
}

func (r *fakeRepo) GetMessage(_ context.Context, id string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *msg
	return &cp, nil
}

func (r *fakeRepo) ListMessages(_ context.Context, conversationID string, limit, offset int) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Message
	for _, msg := range r.messages {
		if msg.ConversationID == conversationID && !msg.Deleted {
			cp := *msg
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) MarkMessageDeleted(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok {
		return repository.ErrNotFound
	}
	msg.Deleted = true
	return nil
}

func (r *fakeRepo) MarkMessageDelivered(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := r.messages[id]; ok && !msg.Deleted && msg.DeliveredAt == nil {
		msg.DeliveredAt = &at
	}
	return nil
}

func (r *fakeRepo) MarkConversationRead(_ context.Context, conversationID string, readerID int64, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var changed int64
	for _, msg := range r.messages {
		if msg.ConversationID != conversationID || msg.SenderID == readerID || msg.Deleted || msg.ReadAt != nil {
			continue
		}
		readAt := at
		msg.ReadAt = &readAt
		if msg.DeliveredAt == nil {
			msg.DeliveredAt = &readAt
		}
		changed++
	}
	return changed, nil
}

func (r *fakeRepo) CountUnread(_ context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, msg := range r.messages {
		conv, ok := r.conversations[msg.ConversationID]
		if !ok || !conv.HasParticipant(userID) {
			continue
		}
		if msg.SenderID != userID && msg.ReadAt == nil && !msg.Deleted {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) InsertConversation(_ context.Context, conv *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.raceWinner != nil {
		winner := *r.raceWinner
		r.conversations[winner.ID] = &winner
		r.raceWinner = nil
		return repository.ErrConversationExists
	}
	for _, existing := range r.conversations {
		if existing.Participant1ID == conv.Participant1ID && existing.Participant2ID == conv.Participant2ID {
			return repository.ErrConversationExists
		}
	}
	cp := *conv
	r.conversations[conv.ID] = &cp
	return nil
}

func (r *fakeRepo) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *conv
	return &cp, nil
}

func (r *fakeRepo) FindConversationByParticipants(_ context.Context, userA, userB int64) (*domain.Conversation, error) {
	p1, p2 := domain.CanonicalPair(userA, userB)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conv := range r.conversations {
		if conv.Participant1ID == p1 && conv.Participant2ID == p2 {
			cp := *conv
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeRepo) ListConversations(_ context.Context, userID int64, limit, offset int) ([]*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Conversation
	for _, conv := range r.conversations {
		if conv.HasParticipant(userID) && !conv.ArchivedBy(userID) {
			cp := *conv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) SetConversationArchived(_ context.Context, id string, userID int64, archived bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[id]
	if !ok {
		return repository.ErrNotFound
	}
	switch userID {
	case conv.Participant1ID:
		conv.ArchivedBy1 = archived
	case conv.Participant2ID:
		conv.ArchivedBy2 = archived
	}
	return nil
}

func (r *fakeRepo) UpsertBlock(_ context.Context, block *domain.BlockedUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]int64{block.BlockerID, block.BlockedID}
	if _, ok := r.blocks[key]; !ok {
		cp := *block
		r.blocks[key] = &cp
	}
	return nil
}

func (r *fakeRepo) DeleteBlock(_ context.Context, blockerID, blockedID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]int64{blockerID, blockedID}
	if _, ok := r.blocks[key]; !ok {
		return false, nil
	}
	delete(r.blocks, key)
	return true, nil
}

func (r *fakeRepo) BlockExistsBetween(_ context.Context, userA, userB int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, forward := r.blocks[[2]int64{userA, userB}]
	_, reverse := r.blocks[[2]int64{userB, userA}]
	return forward || reverse, nil
}

func (r *fakeRepo) InsertReport(_ context.Context, report *domain.MessageReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *report
	r.reports = append(r.reports, &cp)
	return nil
}

func (r *fakeRepo) FindUser(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

type sentRecord struct {
	msg         *domain.Message
	recipientID int64
}

type readRecord struct {
	conversationID string
	readerID       int64
	peerID         int64
}

// fakeNotifier records pushes instead of delivering them.
type fakeNotifier struct {
	mu        sync.Mutex
	sent      []sentRecord
	delivered []sentRecord
	read      []readRecord
}

func (n *fakeNotifier) MessageSent(msg *domain.Message, recipientID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentRecord{msg: msg, recipientID: recipientID})
}

func (n *fakeNotifier) MessageDelivered(msg *domain.Message, recipientID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered = append(n.delivered, sentRecord{msg: msg, recipientID: recipientID})
}

func (n *fakeNotifier) MessagesRead(conversationID string, readerID int64, _ time.Time, peerID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.read = append(n.read, readRecord{conversationID: conversationID, readerID: readerID, peerID: peerID})
}

// fakeCache tracks values and invalidations.
type fakeCache struct {
	mu          sync.Mutex
	values      map[int64]int64
	invalidated []int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[int64]int64)}
}

func (c *fakeCache) Get(_ context.Context, userID int64) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.values[userID]
	return n, ok
}

func (c *fakeCache) Set(_ context.Context, userID int64, count int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[userID] = count
}

func (c *fakeCache) Invalidate(_ context.Context, userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, userID)
	c.invalidated = append(c.invalidated, userID)
}

func newTestService(userIDs ...int64) (*Service, *fakeRepo, *fakeNotifier, *fakeCache) {
	repo := newFakeRepo(userIDs...)
	notifier := &fakeNotifier{}
	unread := newFakeCache()
	svc := New(repo, repo, notifier, unread, zap.NewNop())
	return svc, repo, notifier, unread
}
