package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yungbote/courseforge/internal/config"
	"github.com/yungbote/courseforge/internal/data/db"
	httpapi "github.com/yungbote/courseforge/internal/http"
	"github.com/yungbote/courseforge/internal/observability"
	"github.com/yungbote/courseforge/internal/platform/logger"
)

const serviceName = "courseforge"

type App struct {
	Log      *logger.Logger
	Cfg      *config.Config
	DB       *db.Service
	Clients  Clients
	Repos    Repos
	Services Services
	Handlers Handlers
	Server   *httpapi.Server

	shutdownOTel observability.ShutdownFunc
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logMode := strings.TrimSpace(os.Getenv("LOG_MODE"))
	if logMode == "" {
		logMode = cfg.Env
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return NewWithConfig(ctx, cfg, log)
}

// NewWithConfig wires every component from an already loaded config.
func NewWithConfig(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Log: log, Cfg: cfg}
	a.shutdownOTel = observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: cfg.Env,
	})

	log.Info("Opening database...", "driver", cfg.Database.Driver)
	dbs, err := db.Open(cfg.Database, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.DB = dbs
	if err := db.AutoMigrateAll(dbs.DB()); err != nil {
		a.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	if a.Clients, err = wireClients(ctx, cfg, log); err != nil {
		a.Close()
		return nil, err
	}
	a.Repos = wireRepos(dbs.DB(), log)
	if a.Services, err = wireServices(ctx, cfg, log, a.Clients, a.Repos); err != nil {
		a.Close()
		return nil, err
	}
	a.Handlers = wireHandlers(log, a.Clients, a.Services, a.readinessChecks())
	a.Server = httpapi.NewServer(cfg.HTTP, httpapi.RouterConfig{
		Log:                  log,
		ServiceName:          serviceName,
		ChatHandler:          a.Handlers.Chat,
		CourseHandler:        a.Handlers.Course,
		GenerationRunHandler: a.Handlers.GenerationRun,
		HealthHandler:        a.Handlers.Health,
	})
	a.Server.RegisterOnShutdown(a.Handlers.GenerationRun.Close)
	return a, nil
}

// Run serves HTTP until ctx is canceled, then stops accepting runs and
// waits for active ones to record their outcome.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return errors.New("app not initialized")
	}
	serveErr := a.Server.Run(ctx)

	grace := a.Cfg.HTTP.ShutdownTimeout.Duration
	if grace <= 0 {
		grace = 15 * time.Second
	}
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	if err := a.Services.CourseGeneration.Shutdown(drainCtx); err != nil {
		a.Log.Warn("generation runs did not drain", "error", err)
	}
	return serveErr
}

func (a *App) Close() {
	if a == nil {
		return
	}
	ctx := context.Background()
	if a.Services.ProgressBus != nil {
		_ = a.Services.ProgressBus.Close()
	}
	if a.Clients.Redis != nil {
		_ = a.Clients.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.shutdownOTel != nil {
		if err := a.shutdownOTel(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

func (a *App) readinessChecks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{
		"database": func(context.Context) error { return a.DB.Ping() },
	}
	if a.Clients.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Clients.Redis.Ping(ctx).Err() }
	}
	return checks
}
