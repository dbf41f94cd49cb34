package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/enigmatch/enigmatch/internal/handler"
	"github.com/enigmatch/enigmatch/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Root     *handler.Handler
	Health   *handler.HealthHandler
	Metrics  *handler.MetricsHandler
	Users    *handler.UserHandler
	Swipes   *handler.SwipeHandler
	Matches  *handler.MatchHandler
	Messages *handler.MessageHandler
}

// RouterConfig configures the middleware stack.
type RouterConfig struct {
	Logger             *slog.Logger
	IsDevelopment      bool
	MaxRequestBodySize int64
	CORSAllowedOrigins []string
	RateLimit          middleware.RateLimitConfig
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(h Handlers, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger, cfg.IsDevelopment))
	r.Use(middleware.Security(cfg.IsDevelopment))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.Get("/", h.Root.Hello)
	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Get("/metrics", h.Metrics.Metrics)

	if cfg.RateLimit.Logger == nil {
		cfg.RateLimit.Logger = cfg.Logger
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.Users.List)
			r.Post("/", h.Users.Register)
			r.Get("/{id}", h.Users.Get)
			r.Get("/{id}/candidates", h.Users.Candidates)
			r.Get("/{id}/credits", h.Users.Credits)
			r.Get("/{id}/matches", h.Matches.ListForUser)
			r.Get("/{id}/unread", h.Messages.Unread)
		})

		r.With(middleware.RateLimitSwipes(cfg.RateLimit)).Post("/swipes", h.Swipes.Submit)

		r.Route("/matches/{id}", func(r chi.Router) {
			r.Get("/", h.Matches.Get)
			r.Get("/messages", h.Matches.Messages)
			r.Post("/read", h.Matches.MarkRead)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", h.Messages.Send)
			r.Post("/suggestions", h.Messages.Suggestions)
		})
	})

	r.NotFound(h.Root.NotFound)
	r.MethodNotAllowed(h.Root.MethodNotAllowed)

	return r
}
