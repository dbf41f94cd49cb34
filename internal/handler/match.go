package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/enigmatch/enigmatch/internal/handler/dto"
	"github.com/enigmatch/enigmatch/internal/service"
)

// MatchHandler handles HTTP requests for matches and their conversations.
type MatchHandler struct {
	matches  *service.MatchService
	messages *service.MessageService
	logger   *slog.Logger
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(matches *service.MatchService, messages *service.MessageService, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{
		matches:  matches,
		messages: messages,
		logger:   logger,
	}
}

// ListForUser handles GET /api/v1/users/{id}/matches.
func (h *MatchHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	matches, err := h.matches.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewListResponse(matches, dto.ToMatchResponse))
}

// Get handles GET /api/v1/matches/{id}?viewer_id=.
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireViewer(w, r)
	if !ok {
		return
	}

	match, err := h.matches.Get(r.Context(), chi.URLParam(r, "id"), viewerID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToMatchResponse(match))
}

// Messages handles GET /api/v1/matches/{id}/messages.
func (h *MatchHandler) Messages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.messages.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewListResponse(msgs, dto.ToMessageResponse))
}

// MarkRead handles POST /api/v1/matches/{id}/read?viewer_id=.
func (h *MatchHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireViewer(w, r)
	if !ok {
		return
	}

	updated, err := h.messages.MarkRead(r.Context(), chi.URLParam(r, "id"), viewerID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MarkReadResponse{Updated: updated})
}

func requireViewer(w http.ResponseWriter, r *http.Request) (string, bool) {
	viewerID := r.URL.Query().Get("viewer_id")
	if viewerID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_VIEWER", "viewer_id is required")
		return "", false
	}
	return viewerID, true
}
