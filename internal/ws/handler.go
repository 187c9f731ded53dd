package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fitgrid/messaging-service/internal/application"
	"github.com/fitgrid/messaging-service/internal/domain"
	"github.com/fitgrid/messaging-service/internal/observability"
	"github.com/fitgrid/messaging-service/internal/transport/middleware"
)

// Handler upgrades authenticated HTTP requests to live channels and runs
// each session's read loop: typing indicators, delivery acks, and read
// requests arrive on this path.
type Handler struct {
	registry *Registry
	svc      *application.Service
	log      *zap.Logger
}

func NewHandler(registry *Registry, svc *application.Service, log *zap.Logger) *Handler {
	return &Handler{registry: registry, svc: svc, log: log}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("upgrade error", zap.Error(err))
		return
	}

	session := NewSession(uuid.NewString(), userID, conn, h.log)
	h.registry.Connect(session)
	session.Start()

	observability.WebSocketConnectionsActive.WithLabelValues(metricsService).Inc()
	h.log.Info("connected", zap.Int64("user_id", userID), zap.String("session_id", session.ID))

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go h.readLoop(session)
}

func (h *Handler) readLoop(s *Session) {
	defer func() {
		h.registry.Disconnect(s)
		s.Close()
		observability.WebSocketConnectionsActive.WithLabelValues(metricsService).Dec()
		h.log.Info("disconnected", zap.Int64("user_id", s.UserID), zap.String("session_id", s.ID))
	}()

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("read loop error", zap.Int64("user_id", s.UserID), zap.Error(err))
			}
			return
		}

		var ev ClientEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			h.sendError(s, "BAD_EVENT", "could not parse event")
			continue
		}
		h.handleClientEvent(s, ev)
	}
}

func (h *Handler) handleClientEvent(s *Session, ev ClientEvent) {
	ctx := context.Background()

	switch ev.Type {
	case EventTypingStart, EventTypingStop:
		var req TypingRequest
		if err := json.Unmarshal(ev.Payload, &req); err != nil {
			h.sendError(s, "BAD_EVENT", "could not parse typing payload")
			return
		}
		peer, err := h.svc.ConversationPeer(ctx, req.ConversationID, s.UserID)
		if err != nil {
			h.sendBusinessError(s, err)
			return
		}
		h.registry.SendToUser(peer, TypingEvent(ev.Type, req.ConversationID, s.UserID))

	case EventMessageDelivered:
		var ack DeliveredAck
		if err := json.Unmarshal(ev.Payload, &ack); err != nil {
			h.sendError(s, "BAD_EVENT", "could not parse delivered ack")
			return
		}
		if err := h.svc.MarkDelivered(ctx, ack.MessageID, s.UserID); err != nil {
			h.sendBusinessError(s, err)
		}

	case EventMessageRead:
		var req ReadRequest
		if err := json.Unmarshal(ev.Payload, &req); err != nil {
			h.sendError(s, "BAD_EVENT", "could not parse read payload")
			return
		}
		if _, err := h.svc.MarkAsRead(ctx, req.ConversationID, s.UserID); err != nil {
			h.sendBusinessError(s, err)
		}

	default:
		h.sendError(s, "UNKNOWN_EVENT", "unknown event type: "+string(ev.Type))
	}
}

func (h *Handler) sendBusinessError(s *Session, err error) {
	if appErr, ok := domain.AsError(err); ok {
		h.sendError(s, appErr.Code, appErr.Message)
		return
	}
	h.log.Error("client event failed", zap.Int64("user_id", s.UserID), zap.Error(err))
	h.sendError(s, "UNEXPECTED_ERROR", "an unexpected error occurred")
}

func (h *Handler) sendError(s *Session, code, message string) {
	payload, err := json.Marshal(ErrorEvent(code, message))
	if err != nil {
		return
	}
	s.TrySend(payload)
}
