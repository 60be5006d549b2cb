package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	cfg "github.com/itemhub/action-analytics/config"
	"github.com/itemhub/action-analytics/internal/cache"
	rediscache "github.com/itemhub/action-analytics/internal/cache/redis"
	"github.com/itemhub/action-analytics/internal/errors"
	"github.com/itemhub/action-analytics/internal/geo"
	"github.com/itemhub/action-analytics/internal/mailer"
	"github.com/itemhub/action-analytics/internal/pipeline"
	"github.com/itemhub/action-analytics/internal/storage"
	"github.com/itemhub/action-analytics/internal/store"
	"github.com/itemhub/action-analytics/internal/store/postgres"
)

type App struct {
	Config *cfg.AppConfig
	log    *slog.Logger
	exitCh chan error

	Store   store.Store
	Cache   cache.Cache
	Storage storage.ObjectStorage
	Mailer  mailer.Mailer
	Geo     geo.Locator
	Runner  *pipeline.Runner

	Recorder  *RecorderService
	Analytics *AnalyticsService
	Export    *ExportService

	server *http.Server
}

// New creates a fully initialized App.
func New(config *cfg.AppConfig) (*App, error) {
	app := &App{
		Config: config,
		log:    slog.Default(),
		exitCh: make(chan error),
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}
	if err := app.initCache(); err != nil {
		return nil, err
	}
	if err := app.initStorage(); err != nil {
		return nil, err
	}
	app.initMailer()
	if err := app.initGeo(); err != nil {
		return nil, err
	}

	return app, nil
}

// Log exposes the application logger to the transport layer.
func (app *App) Log() *slog.Logger {
	if app.log == nil {
		return slog.Default()
	}
	return app.log
}

// --------- Private init methods ---------

func (app *App) initStore() error {
	if app.Config.Database == nil {
		return errors.New("database config is nil")
	}
	app.Store = postgres.New(app.Config.Database)
	return nil
}

func (app *App) initCache() error {
	redisCache, err := rediscache.NewRedisCache(app.Config.Redis.Addr, app.Config.Redis.Password, app.Config.Redis.DB)
	if err != nil {
		return errors.New("unable to initialize Redis").WithCause(err)
	}
	app.Cache = redisCache
	return nil
}

func (app *App) initStorage() error {
	storageCfg := app.Config.Storage
	if storageCfg.Bucket != "" {
		s3Storage, err := storage.NewS3Storage(context.Background(), storageCfg.Bucket, storage.S3Config{
			Region:       storageCfg.Region,
			Endpoint:     storageCfg.Endpoint,
			UsePathStyle: storageCfg.PathStyle,
		})
		if err != nil {
			return errors.New("unable to initialize S3 storage").WithCause(err)
		}
		app.Storage = s3Storage
		return nil
	}

	localStorage, err := storage.NewLocalStorage(storageCfg.LocalDir)
	if err != nil {
		return errors.New("unable to initialize local storage").WithCause(err)
	}
	app.Storage = localStorage
	return nil
}

func (app *App) initMailer() {
	if app.Config.Smtp == nil || app.Config.Smtp.Addr == "" {
		app.Mailer = mailer.NewLogMailer(app.log)
		return
	}
	app.Mailer = mailer.NewSMTPMailer(
		app.Config.Smtp.Addr,
		app.Config.Smtp.From,
		app.Config.Smtp.Username,
		app.Config.Smtp.Password,
	)
}

func (app *App) initGeo() error {
	if app.Config.Geo == nil || app.Config.Geo.MMDBPath == "" {
		app.Geo = geo.Noop{}
		return nil
	}
	locator, err := geo.OpenMaxMind(app.Config.Geo.MMDBPath)
	if err != nil {
		return errors.New("unable to open geolocation database").WithCause(err)
	}
	app.Geo = locator
	return nil
}

func (app *App) initServices() error {
	pooler, ok := app.Store.(store.Pooler)
	if !ok {
		return errors.New("store does not expose a connection pool")
	}
	pool, err := pooler.Database()
	if err != nil {
		return err
	}
	app.Runner = pipeline.NewRunner(pool, app.log)

	app.Recorder = NewRecorderService(app.Store, app.Runner, app.Geo, app.Config.Hosts, app.log)
	app.Analytics = NewAnalyticsService(app.Store, app.Runner, app.log)
	app.Export = NewExportService(app.Store, app.Cache, app.Storage, app.Mailer, app.Analytics, app.Runner, app.Config, app.log)
	return nil
}

// SetHandler installs the HTTP handler the server will run. The transport
// package builds it after services exist.
func (app *App) SetHandler(h http.Handler) {
	app.server = &http.Server{
		Addr:              app.Config.Http.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Start opens the store, wires the services, starts the HTTP server and the
// export workers, then blocks until a fatal error or Stop.
func (app *App) Start(ctx context.Context, buildHandler func(*App) http.Handler) error {
	if err := app.Store.Open(); err != nil {
		return errors.New("failed to open store").WithCause(err)
	}
	if err := app.initServices(); err != nil {
		return err
	}
	app.SetHandler(buildHandler(app))

	go func() {
		app.log.Info("action_analytics.http.listening", slog.String("addr", app.server.Addr))
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.exitCh <- err
		}
	}()

	app.StartExportWorkers(ctx)

	return <-app.exitCh
}

// Stop gracefully shuts down all services.
func (app *App) Stop() error {
	app.log.Info("action_analytics.main.stop_starting")

	if app.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.server.Shutdown(ctx); err != nil {
			app.log.Error("http server shutdown error", slog.Any("error", err))
		} else {
			app.log.Info("http server stopped")
		}
	}

	if app.Cache != nil {
		if err := app.Cache.Close(); err != nil {
			app.log.Error("cache close error", slog.Any("error", err))
		} else {
			app.log.Info("cache closed")
		}
	}

	if app.Geo != nil {
		if err := app.Geo.Close(); err != nil {
			app.log.Error("geo close error", slog.Any("error", err))
		}
	}

	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			app.log.Error("store close error", slog.Any("error", err))
		} else {
			app.log.Info("store closed")
		}
	}

	app.log.Info("action_analytics.main.stop_complete")
	close(app.exitCh)
	return nil
}
