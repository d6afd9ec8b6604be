package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"lasdesk/internal/events"
	"lasdesk/internal/files"
	"lasdesk/internal/jobs"
	"lasdesk/internal/services/health"
	"lasdesk/internal/shared/config"
	"lasdesk/internal/shared/server"
	"lasdesk/internal/shared/storage/db"
	"lasdesk/internal/shared/storage/object"
	localstore "lasdesk/internal/shared/storage/object/local"
	s3store "lasdesk/internal/shared/storage/object/s3"
	"lasdesk/internal/shared/telemetry"
	"lasdesk/internal/wells"
)

const redisConnectAttempts = 5

// App holds shared dependencies for the API and the worker.
type App struct {
	Config       config.Config
	Router       *gin.Engine
	DB           *sql.DB
	Store        object.ObjectStore
	Broker       events.Broker
	WellsService *wells.Service
	FilesService *files.Service
	Runner       *jobs.Runner
	Dispatcher   files.Processor
	Local        *jobs.LocalDispatcher
	Health       *health.Service
}

// Build prepares dependencies and routes for the API process.
func Build(cfg config.Config) (*App, error) {
	return build(context.Background(), cfg, db.DefaultServerOptions())
}

// BuildWorker prepares dependencies for the queue worker.
func BuildWorker(cfg config.Config) (*App, error) {
	return build(context.Background(), cfg, db.DefaultWorkerOptions())
}

func build(ctx context.Context, cfg config.Config, dbDefaults db.Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg, dbDefaults)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	broker, err := buildBroker(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Broker: broker,
		Health: health.NewService(),
	}

	if err := buildServices(ctx, app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:       cfg,
		FilesHandler: files.NewHandler(app.FilesService, cfg.MaxUploadMB),
		WellsHandler: wells.NewHandler(app.WellsService),
		EventHandler: events.NewHandler(app.Broker),
		Health:       app.Health,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config, defaults db.Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.database_missing", map[string]any{"fallback": "memory"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(defaults))
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.database_connect_failed", map[string]any{"fallback": "memory", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	if cfg.IsDevLike() {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildBroker(ctx context.Context, cfg config.Config) (events.Broker, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		if strings.TrimSpace(cfg.JobsQueueURL) != "" {
			telemetry.Warn("bootstrap.broker_memory_with_queue", map[string]any{
				"detail": "worker events will not reach API subscribers without REDIS_URL",
			})
		}
		return events.NewMemoryBroker(), nil
	}
	broker, err := events.DialRedis(ctx, cfg.RedisURL, redisConnectAttempts)
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.redis_connect_failed", map[string]any{"fallback": "memory", "error": err.Error()})
			return events.NewMemoryBroker(), nil
		}
		return nil, err
	}
	return broker, nil
}

func buildServices(ctx context.Context, app *App) error {
	var (
		wellRepo  wells.Repo
		curveRepo wells.CurveRepo
		fileRepo  files.Repo
	)
	if app.DB != nil {
		wellRepo = &wells.PGRepo{DB: app.DB}
		curveRepo = &wells.PGCurves{DB: app.DB, BatchSize: wells.DefaultBatchSize}
		fileRepo = &files.PGRepo{DB: app.DB}
		app.Health.Register("database", app.DB.PingContext)
	} else {
		wellRepo = wells.NewMemoryRepo()
		curveRepo = wells.NewMemoryCurves()
		fileRepo = files.NewMemoryRepo()
	}
	if pinger, ok := app.Broker.(interface{ Ping(context.Context) error }); ok {
		app.Health.Register("events", pinger.Ping)
	}

	app.WellsService = &wells.Service{Repo: wellRepo, Curves: curveRepo}
	app.Runner = &jobs.Runner{
		Files:  fileRepo,
		Wells:  app.WellsService,
		Curves: curveRepo,
		Store:  app.Store,
		Events: app.Broker,
	}

	if queueURL := strings.TrimSpace(app.Config.JobsQueueURL); queueURL != "" {
		queue, err := jobs.NewSQSQueue(ctx, app.Config.AWSRegion, queueURL)
		if err != nil {
			return err
		}
		app.Dispatcher = queue
	} else {
		app.Local = jobs.NewLocalDispatcher(app.Runner, app.Broker)
		app.Dispatcher = app.Local
	}

	app.FilesService = &files.Service{
		Repo:      fileRepo,
		Wells:     app.WellsService,
		Store:     app.Store,
		Processor: app.Dispatcher,
		Events:    app.Broker,
	}
	return nil
}

// Close releases the broker and database connections.
func (a *App) Close() error {
	if a.Local != nil {
		a.Local.Wait()
	}
	var firstErr error
	if a.Broker != nil {
		if err := a.Broker.Close(); err != nil {
			firstErr = err
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
