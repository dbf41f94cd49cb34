package handler

import (
	"log/slog"
	"net/http"

	"github.com/enigmatch/enigmatch/internal/handler/dto"
	"github.com/enigmatch/enigmatch/internal/service"
)

// SwipeHandler handles swipe submission.
type SwipeHandler struct {
	svc    *service.SwipeService
	logger *slog.Logger
}

// NewSwipeHandler creates a new SwipeHandler.
func NewSwipeHandler(svc *service.SwipeService, logger *slog.Logger) *SwipeHandler {
	return &SwipeHandler{
		svc:    svc,
		logger: logger,
	}
}

// Submit handles POST /api/v1/swipes.
// A new swipe answers 201; a repeated one answers 200 with the stored swipe.
func (h *SwipeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req dto.SwipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Liked == nil {
		writeError(w, http.StatusBadRequest, "INVALID_SWIPE", "liked is required")
		return
	}

	result, err := h.svc.Submit(r.Context(), service.SubmitSwipeInput{
		SwiperID: req.SwiperID,
		SwipedID: req.SwipedID,
		Liked:    *req.Liked,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}

	writeJSON(w, status, dto.SwipeResponse{
		Swipe:            dto.ToSwipeDTO(result.Swipe),
		IsMatch:          result.IsMatch,
		Match:            dto.ToMatchDTOPtr(result.Match),
		MatchedUser:      dto.ToUserResponsePtr(result.MatchedUser),
		CreditsRemaining: result.CreditsRemaining,
		Duplicate:        result.Duplicate,
	})
}
