package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"pressgate/internal/auth"
	"pressgate/internal/config"
	transporthttp "pressgate/internal/http"
	"pressgate/internal/identity"
	"pressgate/internal/page"
	"pressgate/internal/platform/database"
	"pressgate/internal/platform/logging"
	"pressgate/internal/platform/metrics"
	"pressgate/internal/platform/migrate"
	"pressgate/internal/session"
)

const (
	sessionSweepInterval = 10 * time.Minute
	pageSweepInterval    = time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if !cfg.IdentityConfigured() {
		logger.Warn("identity provider not configured; credential calls will fail",
			"auth_domain_set", cfg.AuthDomain != "",
			"auth_client_id_set", cfg.AuthClientID != "",
		)
	}

	m := metrics.New()
	sessionRepo, cleanup, err := buildSessionRepository(ctx, cfg, m, logger)
	if err != nil {
		logger.Error("failed to initialize session repository", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	provider := identity.Provider{
		Domain:         cfg.AuthDomain,
		ClientID:       cfg.AuthClientID,
		ClientSecret:   cfg.AuthClientSecret,
		Connection:     cfg.AuthConnection,
		ClaimNamespace: cfg.AuthClaimNamespace,
		HTTPClient:     &http.Client{Timeout: 15 * time.Second},
	}
	verifier := provider.NewVerifier()
	merger := session.NewMerger(cfg.AuthClaimNamespace)

	authService := auth.NewService(sessionRepo, cfg.SessionTTL)
	pages := page.NewRegistry(page.Dependencies{
		Gateway: identity.NewGateway(provider, cfg.AuthRedirectURL, strings.TrimSuffix(cfg.FrontendURL, "/")),
		Parser:  identity.NewTokenParser(verifier),
		Merger:  merger,
		Logger:  logger,
		Metrics: m,
	}, cfg.PageTTL)

	router := transporthttp.NewRouter(cfg, transporthttp.Dependencies{
		Pages:     pages,
		Sessions:  authService,
		Delegated: identity.NewDelegatedAuthenticator(provider, verifier, cfg.AuthCallbackURL, cfg.AuthLogoutReturnURL),
		Merger:    merger,
		Metrics:   m,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("pressgate listening", "addr", srv.Addr, "store", cfg.DataStore, "auth_domain", cfg.AuthDomain)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return pages.Run(gctx, pageSweepInterval)
	})

	g.Go(func() error {
		return sweepSessions(gctx, authService, m, logger)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server error", "error", err)
		os.Exit(1)
	}
}

func sweepSessions(ctx context.Context, svc *auth.Service, m *metrics.Metrics, logger *slog.Logger) error {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := svc.CleanupExpiredSessions(ctx)
			if err != nil {
				logger.Error("session cleanup failed", "error", err)
				continue
			}
			m.AddSessionsSwept(removed)
			if removed > 0 {
				logger.Info("expired sessions removed", "count", removed)
			}
		}
	}
}

func buildSessionRepository(ctx context.Context, cfg config.Config, m *metrics.Metrics, logger *slog.Logger) (auth.Repository, func(), error) {
	if cfg.UseInMemoryStore() {
		logger.Info("using in-memory session repository")
		return auth.NewInMemoryRepository(), nil, nil
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL, database.PoolOptions{MaxOpenConns: cfg.DatabaseMaxConns})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = db.Close()
	}

	if err := migrate.Apply(ctx, db, logger); err != nil {
		cleanup()
		return nil, nil, err
	}

	if err := m.RegisterDB(db.DB, "delegated_sessions"); err != nil {
		logger.Warn("database pool metrics unavailable", "error", err)
	}

	logger.Info("connected to postgres")
	return auth.NewPostgresRepository(db), cleanup, nil
}
