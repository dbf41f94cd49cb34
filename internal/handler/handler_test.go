package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/enigmatch/enigmatch/internal/auth"
	"github.com/enigmatch/enigmatch/internal/clock"
	"github.com/enigmatch/enigmatch/internal/handler/dto"
	"github.com/enigmatch/enigmatch/internal/ledger"
	"github.com/enigmatch/enigmatch/internal/metrics"
	"github.com/enigmatch/enigmatch/internal/model"
	"github.com/enigmatch/enigmatch/internal/reputation"
	"github.com/enigmatch/enigmatch/internal/service"
	"github.com/enigmatch/enigmatch/internal/storage"
)

type apiEnv struct {
	store   *storage.Memory
	metrics *metrics.InMemoryRecorder
	router  http.Handler
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	store := storage.NewMemory()
	clk := clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	recorder := metrics.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rules := reputation.DefaultRules()
	l := ledger.New(store, clk, 2, 24*time.Hour)

	swipes := service.NewSwipeService(service.SwipeDeps{
		Store:      store,
		Ledger:     l,
		Reputation: reputation.New(rules),
		Metrics:    recorder,
		Logger:     logger,
		Clock:      clk,
		Timeout:    time.Second,
	})
	users := service.NewUserService(store, l, rules, auth.NewHasher(auth.Params{Time: 1, Memory: 1024, Threads: 1}), clk, logger, time.Second)
	feed := service.NewFeedService(store, time.Second)
	matches := service.NewMatchService(store, time.Second)
	messages := service.NewMessageService(store, nil, clk, logger, time.Second)

	h := New("test")
	userHandler := NewUserHandler(users, feed, logger)
	swipeHandler := NewSwipeHandler(swipes, logger)
	matchHandler := NewMatchHandler(matches, messages, logger)
	messageHandler := NewMessageHandler(messages, logger)

	r := chi.NewRouter()
	r.Get("/metrics", NewMetricsHandler(recorder).Metrics)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users", userHandler.Register)
		r.Get("/users", userHandler.List)
		r.Get("/users/{id}", userHandler.Get)
		r.Get("/users/{id}/credits", userHandler.Credits)
		r.Get("/users/{id}/candidates", userHandler.Candidates)
		r.Get("/users/{id}/matches", matchHandler.ListForUser)
		r.Get("/users/{id}/unread", messageHandler.Unread)
		r.Post("/swipes", swipeHandler.Submit)
		r.Get("/matches/{id}", matchHandler.Get)
		r.Get("/matches/{id}/messages", matchHandler.Messages)
		r.Post("/matches/{id}/read", matchHandler.MarkRead)
		r.Post("/messages", messageHandler.Send)
		r.Post("/messages/suggestions", messageHandler.Suggestions)
	})
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return &apiEnv{store: store, metrics: recorder, router: r}
}

func (e *apiEnv) seed(t *testing.T, ids ...string) {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, id := range ids {
		u := &model.User{
			ID:               id,
			Username:         "user_" + id,
			PasswordHash:     "secret-hash",
			Name:             strings.ToUpper(id),
			Age:              30,
			Image:            "https://example.com/" + id + ".jpg",
			Tags:             []string{},
			Score:            100,
			CreditsRemaining: 2,
			LastCreditReset:  now,
			CreatedAt:        now,
		}
		if err := e.store.CreateUser(context.Background(), u); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *apiEnv) swipe(t *testing.T, swiper, swiped string, liked bool) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPost, "/api/v1/swipes", map[string]any{
		"swiper_id": swiper,
		"swiped_id": swiped,
		"liked":     liked,
	})
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) dto.ErrorResponse {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	resp := decode[dto.ErrorResponse](t, rec)
	if resp.Code != code {
		t.Errorf("expected code %s, got %s", code, resp.Code)
	}
	return resp
}

func TestHandler_Hello(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	New("1.2.3").Hello(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
	response := decode[map[string]string](t, rec)
	if response["version"] != "1.2.3" {
		t.Errorf("unexpected version: %s", response["version"])
	}
}

func TestHandler_Fallbacks(t *testing.T) {
	env := newAPIEnv(t)

	expectError(t, env.do(t, http.MethodGet, "/nope", nil), http.StatusNotFound, "NOT_FOUND")
	expectError(t, env.do(t, http.MethodDelete, "/api/v1/swipes", nil), http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
}

func TestUserHandler_Register(t *testing.T) {
	env := newAPIEnv(t)

	body := map[string]any{
		"username": "arwen_evenstar",
		"password": "password123",
		"name":     "Arwen",
		"age":      28,
		"image":    "https://example.com/arwen.jpg",
		"tags":     []string{"Poetry"},
	}

	rec := env.do(t, http.MethodPost, "/api/v1/users", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") || strings.Contains(rec.Body.String(), "argon2id") {
		t.Fatalf("response leaks password material: %s", rec.Body.String())
	}
	user := decode[dto.UserResponse](t, rec)
	if user.ID == "" || user.Score != 100 {
		t.Errorf("unexpected user: %+v", user)
	}

	stored, err := env.store.GetUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("get stored user: %v", err)
	}
	ok, err := auth.VerifyPassword("password123", stored.PasswordHash)
	if err != nil || !ok {
		t.Errorf("expected stored argon2 hash to verify, ok=%v err=%v", ok, err)
	}

	expectError(t, env.do(t, http.MethodPost, "/api/v1/users", body), http.StatusConflict, "USERNAME_TAKEN")
}

func TestUserHandler_RegisterRejections(t *testing.T) {
	env := newAPIEnv(t)

	tests := []struct {
		name string
		body any
		code string
	}{
		{"malformed json", `{"username":`, "INVALID_JSON"},
		{"empty body", "", "INVALID_JSON"},
		{"bad username", map[string]any{"username": "a", "password": "password123", "name": "A", "age": 30, "image": "https://x.io/a.jpg"}, "INVALID_USERNAME"},
		{"underage", map[string]any{"username": "young_one", "password": "password123", "name": "Y", "age": 16, "image": "https://x.io/a.jpg"}, "INVALID_AGE"},
		{"bad image", map[string]any{"username": "no_image", "password": "password123", "name": "N", "age": 30, "image": "javascript:alert(1)"}, "INVALID_IMAGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, env.do(t, http.MethodPost, "/api/v1/users", tt.body), http.StatusBadRequest, tt.code)
		})
	}
}

func TestUserHandler_GetAndList(t *testing.T) {
	env := newAPIEnv(t)
	env.seed(t, "a", "b")

	rec := env.do(t, http.MethodGet, "/api/v1/users/a", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret-hash") {
		t.Error("password hash must never be serialized")
	}

	expectError(t, env.do(t, http.MethodGet, "/api/v1/users/ghost", nil), http.StatusNotFound, "USER_NOT_FOUND")

	list := decode[dto.ListResponse[dto.UserResponse]](t, env.do(t, http.MethodGet, "/api/v1/users", nil))
	if len(list.Data) != 2 {
		t.Errorf("expected 2 users, got %d", len(list.Data))
	}
}

func TestSwipeHandler_Submit(t *testing.T) {
	env := newAPIEnv(t)
	env.seed(t, "a", "b")

	rec := env.swipe(t, "a", "b", true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	first := decode[dto.SwipeResponse](t, rec)
	if first.IsMatch || first.CreditsRemaining != 1 || first.Match != nil {
		t.Errorf("unexpected first swipe: %+v", first)
	}

	rec = env.swipe(t, "b", "a", true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	second := decode[dto.SwipeResponse](t, rec)
	if !second.IsMatch || second.Match == nil || second.MatchedUser == nil {
		t.Fatalf("expected match, got %+v", second)
	}
	if second.MatchedUser.ID != "a" {
		t.Errorf("expected matched user a, got %s", second.MatchedUser.ID)
	}

	rec = env.swipe(t, "a", "b", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for replay, got %d", rec.Code)
	}
	replay := decode[dto.SwipeResponse](t, rec)
	if !replay.Duplicate || replay.Swipe.ID != first.Swipe.ID || replay.CreditsRemaining != 1 {
		t.Errorf("unexpected replay: %+v", replay)
	}
}

func TestSwipeHandler_Rejections(t *testing.T) {
	env := newAPIEnv(t)
	env.seed(t, "a", "b", "c", "d")

	env.swipe(t, "a", "b", true)
	env.swipe(t, "a", "c", true)

	resp := expectError(t, env.swipe(t, "a", "d", true), http.StatusForbidden, "INSUFFICIENT_CREDITS")
	if resp.CreditsRemaining == nil || *resp.CreditsRemaining != 0 {
		t.Errorf("expected credits_remaining 0, got %v", resp.CreditsRemaining)
	}

	expectError(t, env.swipe(t, "a", "a", true), http.StatusBadRequest, "INVALID_SWIPE")
	expectError(t, env.swipe(t, "a", "ghost", false), http.StatusNotFound, "USER_NOT_FOUND")
	expectError(t, env.do(t, http.MethodPost, "/api/v1/swipes", map[string]any{"swiper_id": "a", "swiped_id": "d"}), http.StatusBadRequest, "INVALID_SWIPE")
	expectError(t, env.do(t, http.MethodPost, "/api/v1/swipes", "not json"), http.StatusBadRequest, "INVALID_JSON")

	// The rejected like left d untouched.
	d, err := env.store.GetUser(context.Background(), "d")
	if err != nil {
		t.Fatalf("get d: %v", err)
	}
	if d.Score != 100 || d.LikesReceived != 0 {
		t.Errorf("expected untouched target, got %+v", d)
	}
}

func TestUserHandler_CandidatesAndCredits(t *testing.T) {
	env := newAPIEnv(t)
	env.seed(t, "a", "b", "c", "d")

	env.swipe(t, "b", "c", true)
	env.swipe(t, "a", "d", false)

	list := decode[dto.ListResponse[dto.UserResponse]](t, env.do(t, http.MethodGet, "/api/v1/users/a/candidates", nil))
	got := make([]string, len(list.Data))
	for i, u := range list.Data {
		got[i] = u.ID
	}
	if strings.Join(got, ",") != "c,b" {
		t.Errorf("expected candidates c,b got %v", got)
	}

	limited := decode[dto.ListResponse[dto.UserResponse]](t, env.do(t, http.MethodGet, "/api/v1/users/a/candidates?limit=1", nil))
	if len(limited.Data) != 1 {
		t.Errorf("expected 1 candidate, got %d", len(limited.Data))
	}

	expectError(t, env.do(t, http.MethodGet, "/api/v1/users/a/candidates?limit=abc", nil), http.StatusBadRequest, "INVALID_LIMIT")
	expectError(t, env.do(t, http.MethodGet, "/api/v1/users/a/candidates?limit=500", nil), http.StatusBadRequest, "INVALID_LIMIT")
	expectError(t, env.do(t, http.MethodGet, "/api/v1/users/ghost/candidates", nil), http.StatusNotFound, "USER_NOT_FOUND")

	credits := decode[dto.CreditsResponse](t, env.do(t, http.MethodGet, "/api/v1/users/b/credits", nil))
	if credits.Credits != 1 {
		t.Errorf("expected 1 credit, got %d", credits.Credits)
	}
}

func TestMatchAndMessageHandlers(t *testing.T) {
	env := newAPIEnv(t)
	env.seed(t, "a", "b", "c")

	env.swipe(t, "a", "b", true)
	matched := decode[dto.SwipeResponse](t, env.swipe(t, "b", "a", true))
	matchID := matched.Match.ID

	matches := decode[dto.ListResponse[dto.MatchResponse]](t, env.do(t, http.MethodGet, "/api/v1/users/a/matches", nil))
	if len(matches.Data) != 1 || matches.Data[0].User.ID != "b" {
		t.Fatalf("unexpected matches: %+v", matches)
	}

	detail := decode[dto.MatchResponse](t, env.do(t, http.MethodGet, "/api/v1/matches/"+matchID+"?viewer_id=b", nil))
	if detail.User.ID != "a" {
		t.Errorf("expected counterpart a, got %s", detail.User.ID)
	}
	expectError(t, env.do(t, http.MethodGet, "/api/v1/matches/"+matchID, nil), http.StatusBadRequest, "MISSING_VIEWER")
	expectError(t, env.do(t, http.MethodGet, "/api/v1/matches/"+matchID+"?viewer_id=c", nil), http.StatusNotFound, "MATCH_NOT_FOUND")

	rec := env.do(t, http.MethodPost, "/api/v1/messages", map[string]any{"match_id": matchID, "sender_id": "a", "content": "Hello!"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	msg := decode[dto.MessageResponse](t, rec)
	if msg.ReceiverID != "b" {
		t.Errorf("expected receiver b, got %s", msg.ReceiverID)
	}

	expectError(t, env.do(t, http.MethodPost, "/api/v1/messages", map[string]any{"match_id": matchID, "sender_id": "c", "content": "hi"}), http.StatusForbidden, "NOT_MATCH_MEMBER")
	expectError(t, env.do(t, http.MethodPost, "/api/v1/messages", map[string]any{"match_id": matchID, "sender_id": "a", "content": ""}), http.StatusBadRequest, "INVALID_MESSAGE")

	msgs := decode[dto.ListResponse[dto.MessageResponse]](t, env.do(t, http.MethodGet, "/api/v1/matches/"+matchID+"/messages", nil))
	if len(msgs.Data) != 1 {
		t.Errorf("expected 1 message, got %d", len(msgs.Data))
	}

	unread := decode[dto.UnreadResponse](t, env.do(t, http.MethodGet, "/api/v1/users/b/unread", nil))
	if unread.Count != 1 {
		t.Errorf("expected 1 unread, got %d", unread.Count)
	}

	marked := decode[dto.MarkReadResponse](t, env.do(t, http.MethodPost, "/api/v1/matches/"+matchID+"/read?viewer_id=b", nil))
	if marked.Updated != 1 {
		t.Errorf("expected 1 updated, got %d", marked.Updated)
	}

	unread = decode[dto.UnreadResponse](t, env.do(t, http.MethodGet, "/api/v1/users/b/unread", nil))
	if unread.Count != 0 {
		t.Errorf("expected 0 unread after mark, got %d", unread.Count)
	}
}

func TestMessageHandler_Suggestions(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/messages/suggestions", map[string]any{
		"recipient_name":      "Legolas",
		"relationship_intent": "friendship",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[dto.SuggestionsResponse](t, rec)
	if len(resp.Suggestions) == 0 || !strings.Contains(resp.Suggestions[0], "Legolas") {
		t.Errorf("unexpected suggestions: %v", resp.Suggestions)
	}

	expectError(t, env.do(t, http.MethodPost, "/api/v1/messages/suggestions", map[string]any{"recipient_name": "Legolas"}), http.StatusBadRequest, "INVALID_MESSAGE")
}

func TestHandleServiceError(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("wrapped: %w", service.ErrUserNotFound), http.StatusNotFound, "USER_NOT_FOUND"},
		{service.ErrInsufficientCredits, http.StatusForbidden, "INSUFFICIENT_CREDITS"},
		{storage.Unavailable("lock user", context.DeadlineExceeded), http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"},
		{service.ErrUsernameTaken, http.StatusConflict, "USERNAME_TAKEN"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handleServiceError(rec, logger, tt.err)
		resp := expectError(t, rec, tt.status, tt.code)
		if tt.status == http.StatusServiceUnavailable && rec.Header().Get("Retry-After") == "" {
			t.Error("expected Retry-After on 503")
		}
		if tt.status == http.StatusInternalServerError && strings.Contains(resp.Error, "boom") {
			t.Error("internal errors must not leak details")
		}
	}
}

func TestMetricsHandler(t *testing.T) {
	env := newAPIEnv(t)
	env.seed(t, "a", "b")
	env.swipe(t, "a", "b", true)

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `enigmatch_swipes_total{liked="true"} 1`) {
		t.Errorf("missing swipe counter in:\n%s", rec.Body.String())
	}

	noSnap := httptest.NewRecorder()
	NewMetricsHandler(nil).Metrics(noSnap, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if noSnap.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without snapshotter, got %d", noSnap.Code)
	}
}
