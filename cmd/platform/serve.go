package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coc-admin/platform/internal/audit"
	"github.com/coc-admin/platform/internal/conformity/api"
	"github.com/coc-admin/platform/internal/conformity/domain"
	"github.com/coc-admin/platform/internal/conformity/infrastructure"
	"github.com/coc-admin/platform/internal/conformity/service"
	"github.com/coc-admin/platform/internal/shared/auth"
	"github.com/coc-admin/platform/internal/shared/config"
	"github.com/coc-admin/platform/internal/shared/database"
	"github.com/coc-admin/platform/internal/shared/events"
	"github.com/coc-admin/platform/internal/shared/metrics"
	secmiddleware "github.com/coc-admin/platform/internal/shared/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

// App holds all application dependencies
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *database.DB
	Bus     events.EventBus
	BusMode string
}

type agentStore interface {
	domain.AgentRepository
	CountAgents(ctx context.Context) (int, error)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &App{Config: cfg, Logger: logger}

	// Storage
	var (
		cases  domain.Repository
		agents agentStore
	)
	switch cfg.Server.Storage {
	case "postgres":
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		app.DB = db

		if _, err := database.Migrate(ctx, db.Pool, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		cases = infrastructure.NewPostgresCaseRepository(db.Pool)
		agents = infrastructure.NewPostgresAgentRepository(db.Pool)
	case "memory":
		logger.Warn("using in-memory storage, data is lost on restart")
		cases = infrastructure.NewMemoryCaseRepository()
		agents = infrastructure.NewMemoryAgentRepository()
	}

	offices, err := domain.ParseOffices(cfg.Assignment.Offices)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	rotator, err := domain.NewOfficeRotator(offices)
	if err != nil {
		return err
	}

	if cfg.Assignment.SeedAgents {
		seeded, err := infrastructure.SeedAgents(ctx, agents, offices)
		if err != nil {
			return err
		}
		if seeded > 0 {
			logger.Info("seeded agent roster", zap.Int("agents", seeded))
		}
	}

	numberer, err := domain.NewCaseNumberer(ctx, cfg.Assignment.Numbering, cases)
	if err != nil {
		return err
	}

	engine, err := service.NewEngine(service.EngineConfig{
		Rotator:  rotator,
		Numberer: numberer,
		Cases:    cases,
		Agents:   agents,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	// Event bus
	bus, mode, err := events.NewEventBus(ctx, cfg.KurrentDB, logger)
	if err != nil {
		return fmt.Errorf("event bus: %w", err)
	}
	defer bus.Close()
	app.Bus = bus
	app.BusMode = mode

	// Audit trail follows the strongest store available
	var auditRepo audit.AuditRepository
	switch {
	case mode == "kurrentdb":
		auditRepo = audit.NewKurrentDBRepository(bus.(*events.Bus).Client())
	case app.DB != nil:
		auditRepo = audit.NewRepository(app.DB.Pool)
	default:
		auditRepo = audit.NewMemoryRepository()
	}
	if err := auditRepo.Initialize(ctx); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	if err := audit.NewSubscriber(auditRepo, bus, logger).Start(ctx); err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	enforceRoles := cfg.Server.Env == "production"
	limiter := secmiddleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(secmiddleware.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.CORS(secmiddleware.DefaultCORSConfig()))
	r.Use(metrics.Middleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Use(secmiddleware.InputSanitizer)
		if enforceRoles {
			r.Use(auth.Middleware(cfg.Auth))
		}

		handler := api.NewHandler(engine, cases, agents, bus, logger, enforceRoles)
		r.Mount("/", handler.Routes())
		r.Mount("/audit", audit.NewHandler(auditRepo, enforceRoles).Routes())
	})

	go maintenance(ctx, app, limiter)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 65 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("env", cfg.Server.Env),
			zap.String("storage", cfg.Server.Storage),
			zap.String("event_bus", mode),
			zap.Strings("offices", cfg.Assignment.Offices),
			zap.String("numbering", cfg.Assignment.Numbering),
			zap.Bool("enforce_roles", enforceRoles))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}

// maintenance exports pool usage and evicts idle rate limiters until ctx ends
func maintenance(ctx context.Context, app *App, limiter *secmiddleware.IPRateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if app.DB != nil {
				metrics.RecordDBConnections(int(app.DB.Pool.Stat().AcquiredConns()))
			}
			if n := limiter.Cleanup(); n > 0 {
				app.Logger.Debug("evicted idle rate limiters", zap.Int("count", n))
			}
		}
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		if app.DB != nil {
			if err := app.DB.Health(r.Context()); err != nil {
				checks["database"] = "not ready: " + err.Error()
			} else {
				checks["database"] = "ready"
			}
		} else {
			checks["database"] = "not configured"
		}

		if err := app.Bus.Health(); err != nil {
			checks["event_bus"] = "not ready: " + err.Error()
		} else {
			checks["event_bus"] = "ready"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}
