package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestLogger_RecordsRequest(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Post("/api/v1/users/{id}/thing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/u1/thing", strings.NewReader(`{"password":"hunter22"}`))
	req.Header.Set(RequestIDHeader, "req-123")
	req.Header.Set("Cookie", "session=super_secret")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v: %s", err, buf.String())
	}

	want := map[string]any{
		"msg":         "http_request",
		"level":       "INFO",
		"request_id":  "req-123",
		"method":      "POST",
		"path":        "/api/v1/users/u1/thing",
		"route":       "/api/v1/users/{id}/thing",
		"status_code": float64(http.StatusCreated),
		"bytes":       float64(5),
	}
	for key, value := range want {
		if entry[key] != value {
			t.Errorf("%s: expected %v, got %v", key, value, entry[key])
		}
	}

	for _, secret := range []string{"hunter22", "super_secret"} {
		if strings.Contains(buf.String(), secret) {
			t.Errorf("log output leaks %q", secret)
		}
	}
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusServiceUnavailable, "ERROR"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if !strings.Contains(buf.String(), `"level":"`+tt.level+`"`) {
			t.Errorf("status %d: expected level %s in %s", tt.status, tt.level, buf.String())
		}
	}
}
