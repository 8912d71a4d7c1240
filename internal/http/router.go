package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"pressgate/internal/config"
	"pressgate/internal/page"
	"pressgate/internal/platform/metrics"
	"pressgate/internal/session"
)

// Dependencies are the services the router exposes.
type Dependencies struct {
	Pages     *page.Registry
	Sessions  sessionStore
	Delegated delegatedAuthenticator
	Merger    session.Merger
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// NewRouter wires application routes and middleware using chi.
func NewRouter(cfg config.Config, deps Dependencies) http.Handler {
	logger := deps.Logger
	cookies := sessionCookies{ttl: cfg.SessionTTL, secure: !cfg.IsDevelopment()}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(newSecurityHeadersMiddleware(cfg.IsDevelopment()))
	r.Use(newSlogMiddleware(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"environment": cfg.Environment,
			"pages":       deps.Pages.Len(),
		})
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	oauthHandler := NewOAuthHandler(deps.Delegated, deps.Sessions, cookies, cfg.FrontendURL, logger)
	sessionHandler := NewSessionHandler(deps.Sessions, deps.Delegated, deps.Merger, cookies, logger)
	pageHandler := NewPageHandler(deps.Pages, deps.Sessions, deps.Delegated, cookies, logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", oauthHandler.Login)
			r.Get("/callback", oauthHandler.Callback)
		})

		r.Group(func(r chi.Router) {
			r.Use(newDelegatedSessionMiddleware(deps.Sessions, logger))

			r.Route("/session", func(r chi.Router) {
				r.Get("/", sessionHandler.Status)
				r.Delete("/", sessionHandler.Logout)
			})

			r.Route("/pages", func(r chi.Router) {
				r.Post("/", pageHandler.Open)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", pageHandler.Get)
					r.Put("/form", pageHandler.Edit)
					r.Post("/view", pageHandler.Navigate)
					r.Post("/submit", pageHandler.Submit)
					r.Post("/universal", pageHandler.Universal)
					r.Post("/signout", pageHandler.SignOut)
				})
			})
		})
	})

	r.NotFound(http.NotFoundHandler().ServeHTTP)

	return r
}
