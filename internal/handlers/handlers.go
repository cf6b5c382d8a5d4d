// Package handlers exposes the social store over a JSON HTTP API.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"travelog/internal/auth"
	"travelog/internal/social"
)

type Handler struct {
	store    *social.Store
	sessions *auth.Sessions
	tokens   *auth.JWTManager
}

func New(store *social.Store, sessions *auth.Sessions, tokens *auth.JWTManager) *Handler {
	return &Handler{store: store, sessions: sessions, tokens: tokens}
}

// RouterConfig carries the HTTP edge settings. RateLimitRequests <= 0
// disables rate limiting.
type RouterConfig struct {
	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Router builds the chi router with the full middleware stack.
func (h *Handler) Router(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Recover)
	r.Use(chimiddleware.RealIP)
	r.Use(corsHandler(cfg.CORSOrigins))
	if cfg.RateLimitRequests > 0 {
		r.Use(httprate.Limit(cfg.RateLimitRequests, cfg.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(tooManyRequests)))
	}
	r.Use(Metrics)
	r.Use(auth.NewAuthenticator(h.tokens, h.sessions).Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		fail(w, r, http.StatusNotFound, ErrCodeNotFound, "not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		fail(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
		})
		r.With(RequireAuth).Get("/me", h.Me)

		r.Get("/users", h.ListUsers)
		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", h.Profile)
			r.Get("/followers", h.Followers)
			r.Get("/following", h.Following)
			r.With(RequireAuth).Post("/follow", h.ToggleFollow)
		})

		r.Get("/posts", h.ListPosts)
		r.With(RequireAuth).Post("/posts", h.CreatePost)
		r.Route("/posts/{id}", func(r chi.Router) {
			r.Get("/", h.GetPost)
			r.Get("/likes", h.PostLikes)
			r.With(RequireAuth).Post("/like", h.ToggleLike)
		})

		r.Get("/leaderboard", h.Leaderboard)
		r.Get("/regions", h.Regions)
		r.Get("/categories", h.Categories)
	})
	return r
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	wildcard := len(origins) == 0
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			wildcard = true
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		fail(w, r, http.StatusServiceUnavailable, ErrCodeUnavailable, "database unavailable", nil)
		return
	}
	ok(w, r, map[string]string{"status": "ok"})
}
