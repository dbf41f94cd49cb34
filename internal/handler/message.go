package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/enigmatch/enigmatch/internal/handler/dto"
	"github.com/enigmatch/enigmatch/internal/service"
)

// MessageHandler handles HTTP requests for chat messages.
type MessageHandler struct {
	svc    *service.MessageService
	logger *slog.Logger
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(svc *service.MessageService, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		svc:    svc,
		logger: logger,
	}
}

// Send handles POST /api/v1/messages.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req dto.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.svc.Send(r.Context(), service.SendMessageInput{
		MatchID:    req.MatchID,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToMessageResponse(msg))
}

// Unread handles GET /api/v1/users/{id}/unread.
func (h *MessageHandler) Unread(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.UnreadCount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UnreadResponse{Count: count})
}

// Suggestions handles POST /api/v1/messages/suggestions.
func (h *MessageHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	var req dto.SuggestionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	suggestions, err := h.svc.Suggestions(r.Context(), req.RecipientName, req.RelationshipIntent)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuggestionsResponse{Suggestions: suggestions})
}
