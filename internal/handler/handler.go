// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/enigmatch/enigmatch/internal/handler/dto"
	"github.com/enigmatch/enigmatch/internal/service"
)

// Handler serves the root and fallback routes.
type Handler struct {
	version string
}

// New creates a new Handler instance.
func New(version string) *Handler {
	return &Handler{version: version}
}

// Hello is a simple info endpoint.
// GET /
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Hello from Enigmatch!",
		"version": h.version,
	})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Debug("response encode failed", "error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// decodeJSON decodes a single JSON object from the request body and writes
// the error response itself when it fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
	case errors.Is(err, io.EOF):
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is required")
	default:
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
	}
	return false
}

// validationCodes maps validation sentinels to error codes.
var validationCodes = []struct {
	err  error
	code string
}{
	{service.ErrInvalidSwipe, "INVALID_SWIPE"},
	{service.ErrInvalidLimit, "INVALID_LIMIT"},
	{service.ErrInvalidUsername, "INVALID_USERNAME"},
	{service.ErrInvalidPassword, "INVALID_PASSWORD"},
	{service.ErrInvalidName, "INVALID_NAME"},
	{service.ErrInvalidAge, "INVALID_AGE"},
	{service.ErrInvalidImage, "INVALID_IMAGE"},
	{service.ErrInvalidProfile, "INVALID_PROFILE"},
	{service.ErrInvalidMessage, "INVALID_MESSAGE"},
}

// handleServiceError maps service errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case service.IsValidation(err):
		code := "INVALID_REQUEST"
		for _, vc := range validationCodes {
			if errors.Is(err, vc.err) {
				code = vc.code
				break
			}
		}
		writeError(w, http.StatusBadRequest, code, err.Error())
	case errors.Is(err, service.ErrInsufficientCredits):
		zero := 0
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{
			Error:            "No credits remaining",
			Code:             "INSUFFICIENT_CREDITS",
			CreditsRemaining: &zero,
		})
	case errors.Is(err, service.ErrNotMatchMember):
		writeError(w, http.StatusForbidden, "NOT_MATCH_MEMBER", "User is not a member of the match")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrMatchNotFound):
		writeError(w, http.StatusNotFound, "MATCH_NOT_FOUND", "Match not found")
	case errors.Is(err, service.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "USERNAME_TAKEN", "Username already exists")
	case errors.Is(err, service.ErrUnavailable):
		logger.Warn("storage_unavailable", "error", err)
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Storage temporarily unavailable, retry later")
	default:
		logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
