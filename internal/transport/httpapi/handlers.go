package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fitgrid/messaging-service/internal/application"
	"github.com/fitgrid/messaging-service/internal/domain"
	"github.com/fitgrid/messaging-service/internal/transport/middleware"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
)

// Handler maps the messaging service operations onto REST endpoints.
// Request shape is checked with the validator; business policy (content
// length, block rules, membership) stays in the service so its stable error
// codes reach clients untouched.
type Handler struct {
	svc *application.Service
	val *validator.Validate
	log *zap.Logger
}

func NewHandler(svc *application.Service, log *zap.Logger) *Handler {
	return &Handler{
		svc: svc,
		val: validator.New(validator.WithRequiredStructEnabled()),
		log: log,
	}
}

func (h *Handler) callerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing caller identity")
	}
	return userID, ok
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, body any) bool {
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_BODY", "could not decode request body")
		return false
	}
	if err := h.val.Struct(body); err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return false
	}
	return true
}

func pageParams(r *http.Request) (int, int, error) {
	page, err := queryInt(r, "page", defaultPage)
	if err != nil {
		return 0, 0, domain.ErrInvalidPage
	}
	pageSize, err := queryInt(r, "pageSize", defaultPageSize)
	if err != nil {
		return 0, 0, domain.ErrInvalidPageSize
	}
	return page, pageSize, nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var body struct {
		RecipientID int64  `json:"recipientId" validate:"required"`
		Content     string `json:"content"`
	}
	if !h.decodeBody(w, r, &body) {
		return
	}

	msg, err := h.svc.SendMessage(r.Context(), application.SendMessageCommand{
		SenderID:    userID,
		RecipientID: body.RecipientID,
		Content:     body.Content,
	})
	if err != nil {
		MapError(w, h.log, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toMessageResponse(msg))
}

func (h *Handler) GetConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	page, pageSize, err := pageParams(r)
	if err != nil {
		MapError(w, h.log, err)
		return
	}

	convs, err := h.svc.GetConversations(r.Context(), userID, page, pageSize)
	if err != nil {
		MapError(w, h.log, err)
		return
	}

	out := make([]conversationResponse, len(convs))
	for i, conv := range convs {
		out[i] = toConversationResponse(conv, userID)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"conversations": out, "page": page, "pageSize": pageSize})
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	page, pageSize, err := pageParams(r)
	if err != nil {
		MapError(w, h.log, err)
		return
	}

	msgs, err := h.svc.GetMessages(r.Context(), chi.URLParam(r, "conversationID"), userID, page, pageSize)
	if err != nil {
		MapError(w, h.log, err)
		return
	}

	out := make([]messageResponse, len(msgs))
	for i, msg := range msgs {
		out[i] = toMessageResponse(msg)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"messages": out, "page": page, "pageSize": pageSize})
}

func (h *Handler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	updated, err := h.svc.MarkAsRead(r.Context(), chi.URLParam(r, "conversationID"), userID)
	if err != nil {
		MapError(w, h.log, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"updated": updated})
}

func (h *Handler) ArchiveConversation(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

func (h *Handler) UnarchiveConversation(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *Handler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	if err := h.svc.ArchiveConversation(r.Context(), chi.URLParam(r, "conversationID"), userID, archived); err != nil {
		MapError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	count, err := h.svc.GetUnreadCount(r.Context(), userID)
	if err != nil {
		MapError(w, h.log, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteMessage(r.Context(), chi.URLParam(r, "messageID"), userID); err != nil {
		MapError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ReportMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if !h.decodeBody(w, r, &body) {
		return
	}

	report, err := h.svc.ReportMessage(r.Context(), chi.URLParam(r, "messageID"), userID, body.Reason)
	if err != nil {
		MapError(w, h.log, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toReportResponse(report))
}

func (h *Handler) BlockUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var body struct {
		BlockedID int64 `json:"blockedId" validate:"required"`
	}
	if !h.decodeBody(w, r, &body) {
		return
	}

	block, err := h.svc.BlockUser(r.Context(), userID, body.BlockedID)
	if err != nil {
		MapError(w, h.log, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{
		"id":        block.ID,
		"blockedId": block.BlockedID,
		"createdAt": block.CreatedAt,
	})
}

func (h *Handler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	blockedID, err := strconv.ParseInt(chi.URLParam(r, "blockedID"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_BODY", "blocked user id must be numeric")
		return
	}

	removed, err := h.svc.UnblockUser(r.Context(), userID, blockedID)
	if err != nil {
		MapError(w, h.log, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}
