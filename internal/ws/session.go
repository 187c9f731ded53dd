package ws

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendQueueSize = 64
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
)

// Conn is the open bidirectional transport underlying one session.
// *websocket.Conn satisfies it; tests substitute fakes.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// Session is one live channel for one user. The registry holds at most one
// per user id.
type Session struct {
	ID     string
	UserID int64

	conn      Conn
	sendQueue chan []byte
	done      chan struct{}
	closed    atomic.Int32
	log       *zap.Logger
}

func NewSession(id string, userID int64, conn Conn, log *zap.Logger) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		conn:      conn,
		sendQueue: make(chan []byte, sendQueueSize),
		done:      make(chan struct{}),
		log:       log,
	}
}

func (s *Session) Start() {
	go s.writeLoop()
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Closed() bool {
	return s.closed.Load() == 1
}

// TrySend queues a payload without blocking. A full queue means the client
// cannot keep up; the connection is dropped rather than stalling senders.
func (s *Session) TrySend(payload []byte) bool {
	if s.closed.Load() == 1 {
		return false
	}
	select {
	case s.sendQueue <- payload:
		return true
	default:
		s.log.Warn("session backpressure overflow, dropping connection",
			zap.Int64("user_id", s.UserID), zap.String("session_id", s.ID))
		s.CloseWithReason(websocket.CloseInternalServerErr, "backpressure overflow")
		return false
	}
}

func (s *Session) Close() {
	s.CloseWithReason(websocket.CloseNormalClosure, "server closing")
}

func (s *Session) CloseWithReason(code int, reason string) {
	if !s.closed.CompareAndSwap(0, 1) {
		return
	}

	s.log.Info("session closing",
		zap.Int64("user_id", s.UserID), zap.String("session_id", s.ID),
		zap.Int("code", code), zap.String("reason", reason))
	close(s.done)

	if s.conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		s.conn.Close()
	}
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case payload := <-s.sendQueue:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.log.Warn("session write error", zap.Int64("user_id", s.UserID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Warn("session ping error", zap.Int64("user_id", s.UserID), zap.Error(err))
				return
			}
		case <-s.done:
			return
		}
	}
}
