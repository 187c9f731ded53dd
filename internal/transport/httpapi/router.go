package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fitgrid/messaging-service/internal/observability"
	"github.com/fitgrid/messaging-service/internal/transport/middleware"
)

// NewRouter assembles the authenticated API surface. The live channel
// handler is mounted under the same JWT middleware so the `?token=`
// fallback works for browser WebSocket clients.
func NewRouter(h *Handler, wsHandler http.Handler, jwtSecret, serviceName string, metricsEnabled bool) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	if metricsEnabled {
		r.Use(observability.MetricsMiddleware(serviceName))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWT(jwtSecret))

		r.Post("/messages", h.SendMessage)
		r.Get("/messages/unread-count", h.GetUnreadCount)
		r.Delete("/messages/{messageID}", h.DeleteMessage)
		r.Post("/messages/{messageID}/report", h.ReportMessage)

		r.Get("/conversations", h.GetConversations)
		r.Get("/conversations/{conversationID}/messages", h.GetMessages)
		r.Post("/conversations/{conversationID}/read", h.MarkAsRead)
		r.Post("/conversations/{conversationID}/archive", h.ArchiveConversation)
		r.Delete("/conversations/{conversationID}/archive", h.UnarchiveConversation)

		r.Post("/blocks", h.BlockUser)
		r.Delete("/blocks/{blockedID}", h.UnblockUser)

		r.Get("/ws", wsHandler.ServeHTTP)
	})

	return r
}
