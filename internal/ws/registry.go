package ws

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fitgrid/messaging-service/internal/observability"
)

const metricsService = "messaging"

// Registry maps each connected user id to its single live session. Delivery
// through it is at-most-once and best-effort: a failed push removes the
// mapping and is logged, never surfaced to the caller. Durable state lives
// in the store; this path is only a latency optimization.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
		log:      log,
	}
}

// Connect registers the session as the user's live channel, evicting any
// prior entry (last writer wins), then announces the user online to every
// other connected user.
func (r *Registry) Connect(s *Session) {
	r.mu.Lock()
	old := r.sessions[s.UserID]
	r.sessions[s.UserID] = s
	r.mu.Unlock()

	if old != nil && old.ID != s.ID {
		r.log.Info("replacing existing connection",
			zap.Int64("user_id", s.UserID),
			zap.String("old_session_id", old.ID),
			zap.String("new_session_id", s.ID))
		old.CloseWithReason(4000, "session_replaced")
	}

	r.broadcast(PresenceEvent(s.UserID, true, time.Time{}), s.UserID)
}

// Disconnect removes the mapping entry and broadcasts the user offline with
// the current time as last-seen. A late Disconnect from a replaced session
// leaves the newer entry untouched.
func (r *Registry) Disconnect(s *Session) {
	r.mu.Lock()
	current, ok := r.sessions[s.UserID]
	removed := ok && current.ID == s.ID
	if removed {
		delete(r.sessions, s.UserID)
	}
	r.mu.Unlock()

	if removed {
		r.broadcast(PresenceEvent(s.UserID, false, time.Now()), s.UserID)
	}
}

// SendToUser pushes the event to the user's live channel if one is
// registered. Transmission failure is an implicit disconnect.
func (r *Registry) SendToUser(userID int64, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		r.log.Error("failed to marshal event", zap.String("event_type", string(ev.Type)), zap.Error(err))
		return
	}

	r.mu.RLock()
	s := r.sessions[userID]
	r.mu.RUnlock()
	if s == nil {
		return
	}

	if !s.TrySend(payload) {
		r.dropSession(s, ev.Type)
	}
}

// Broadcast delivers to every registered channel. An individual failure
// never aborts delivery to the rest.
func (r *Registry) Broadcast(ev Event) {
	r.broadcast(ev, 0)
}

func (r *Registry) broadcast(ev Event, exceptUserID int64) {
	payload, err := json.Marshal(ev)
	if err != nil {
		r.log.Error("failed to marshal event", zap.String("event_type", string(ev.Type)), zap.Error(err))
		return
	}

	r.mu.RLock()
	targets := make([]*Session, 0, len(r.sessions))
	for userID, s := range r.sessions {
		if userID == exceptUserID {
			continue
		}
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	for _, s := range targets {
		if !s.TrySend(payload) {
			r.dropSession(s, ev.Type)
		}
	}
}

func (r *Registry) IsUserOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[userID]
	return ok
}

func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll is called during shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[int64]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

func (r *Registry) dropSession(s *Session, eventType EventType) {
	r.mu.Lock()
	if current, ok := r.sessions[s.UserID]; ok && current.ID == s.ID {
		delete(r.sessions, s.UserID)
	}
	r.mu.Unlock()

	observability.EventsDroppedTotal.WithLabelValues(metricsService, string(eventType)).Inc()
	r.log.Warn("dropped undeliverable session",
		zap.Int64("user_id", s.UserID),
		zap.String("session_id", s.ID),
		zap.String("event_type", string(eventType)))
}
