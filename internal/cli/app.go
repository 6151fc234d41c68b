package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"jobmate/autoapply-service/internal/answers"
	"jobmate/autoapply-service/internal/applyflow"
	"jobmate/autoapply-service/internal/browser"
	"jobmate/autoapply-service/internal/config"
	"jobmate/autoapply-service/internal/db"
	"jobmate/autoapply-service/internal/events"
	"jobmate/autoapply-service/internal/kanban"
	"jobmate/autoapply-service/internal/locator"
	"jobmate/autoapply-service/internal/orchestrator"
	"jobmate/autoapply-service/internal/reconcile"
	"jobmate/autoapply-service/internal/scraper"
	"jobmate/autoapply-service/internal/scraper/adzuna"
	"jobmate/autoapply-service/internal/scraper/web"
)

// App is the wired application the commands run against.
type App struct {
	Config       *config.Config
	Store        *reconcile.Engine
	Answers      *answers.Engine
	Registry     *scraper.Registry
	Orchestrator *orchestrator.Orchestrator
	Kanban       *kanban.Service
	Publisher    events.Publisher

	closers []func() error
}

// Close releases the browser, the store and the Redis client, in reverse
// order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// AppBuilder wires an App.
type AppBuilder func(ctx context.Context, log *slog.Logger) (*App, error)

// FromEnv loads the configuration from the environment and wires the App.
func FromEnv(ctx context.Context, log *slog.Logger) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewApp(ctx, cfg, log)
}

// NewApp wires the store, the answer engine, the browser session, one web
// adapter per locator table (plus Adzuna when credentials are set) and the
// orchestrator. The browser is launched lazily on first page use.
func NewApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (_ *App, err error) {
	if log == nil {
		log = slog.Default()
	}
	app := &App{Config: cfg, Publisher: events.Nop{}}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		log.Info("connecting to Redis")
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		app.closers = append(app.closers, rdb.Close)
		app.Publisher = events.NewRedisPublisher(rdb)
	}

	backend, err := db.Open(ctx, db.Options{
		Kind:        cfg.StoreBackend,
		DataDir:     cfg.DataDir,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
		Redis:       rdb,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	app.closers = append(app.closers, backend.Close)
	log.Info("store ready", "backend", cfg.StoreBackend)

	app.Store = reconcile.New(backend, reconcile.WithLogger(log))
	app.Answers = answers.New(ctx, app.Store, answers.Config{
		CaptureTimeout: cfg.CaptureTimeout,
		CapturePoll:    cfg.CapturePoll,
		Logger:         log,
	})
	app.Kanban = kanban.NewService(app.Store, app.Publisher)

	tables, err := locator.Load(cfg.LocatorFile)
	if err != nil {
		return nil, err
	}

	session := browser.NewManager(browser.Config{
		RemoteURL:        cfg.BrowserRemoteURL,
		Headless:         cfg.BrowserHeadless,
		ResourceBlocking: []string{"image", "font", "media"},
		Logger:           log,
	})
	app.closers = append(app.closers, session.Close)

	machine := applyflow.New(app.Answers, applyflow.Config{
		MaxSteps:        cfg.ApplyMaxSteps,
		MaxApplications: cfg.MaxApplications,
		Logger:          log,
	})

	app.Registry = scraper.NewRegistry()
	for _, name := range tables.Platforms() {
		t, _ := tables.Get(name)
		app.Registry.Register(web.New(t, session, machine, web.Options{Logger: log}))
	}
	if cfg.AdzunaEnabled() {
		app.Registry.Register(adzuna.New(adzuna.Config{
			AppID:   cfg.AdzunaAppID,
			AppKey:  cfg.AdzunaAppKey,
			Country: cfg.AdzunaCountry,
			Logger:  log,
		}))
	}
	log.Info("platforms registered", "platforms", app.Registry.Names())

	app.Orchestrator = orchestrator.New(app.Registry, app.Store,
		orchestrator.WithPublisher(app.Publisher),
		orchestrator.WithUnknowns(app.Answers),
		orchestrator.WithLogger(log))

	return app, nil
}
