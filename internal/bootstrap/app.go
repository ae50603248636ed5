package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	googleauth "papershare-backend/internal/auth"
	"papershare-backend/internal/content"
	"papershare-backend/internal/departments"
	"papershare-backend/internal/health"
	"papershare-backend/internal/leaderboard"
	"papershare-backend/internal/seed"
	"papershare-backend/internal/shared/auth"
	"papershare-backend/internal/shared/config"
	"papershare-backend/internal/shared/metrics"
	"papershare-backend/internal/shared/server"
	"papershare-backend/internal/shared/storage/db"
	"papershare-backend/internal/shared/storage/object"
	localstore "papershare-backend/internal/shared/storage/object/local"
	miniostore "papershare-backend/internal/shared/storage/object/minio"
	s3store "papershare-backend/internal/shared/storage/object/s3"
	"papershare-backend/internal/shared/storage/record"
	"papershare-backend/internal/shared/telemetry"
	"papershare-backend/internal/stars"
	"papershare-backend/internal/users"
)

// App holds shared dependencies and the HTTP router built on them.
type App struct {
	Config  config.Config
	Router  *gin.Engine
	DB      *sql.DB
	Records record.Store
	Objects object.ObjectStore
	Metrics *metrics.Collector
	Tokens  *auth.Tokens

	UsersRepo   users.Repo
	SessionRepo users.SessionRepo
	ContentRepo content.Repo

	UsersService       *users.Service
	ContentService     *content.Service
	StarsService       *stars.Service
	LeaderboardService *leaderboard.Service
	DepartmentsService *departments.Service
	GoogleAuth         *googleauth.GoogleService
	Health             *health.Service
}

// Build connects the configured backends, seeds them if asked, and wires
// services, handlers and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if strings.TrimSpace(cfg.StoreBackend) == "" {
		cfg.StoreBackend = "memory"
	}
	ctx := context.Background()
	telemetry.SetLevel(cfg.LogLevel)

	app := &App{Config: cfg}
	if err := buildPersistence(ctx, app); err != nil {
		return nil, err
	}

	objects, err := buildObjects(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Objects = objects

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Metrics = metrics.NewCollector(reg)
	app.Tokens = auth.NewTokens(cfg.JWTSecret, cfg.SessionTTL)

	if cfg.SeedOnStart {
		if err := seedBackend(ctx, app); err != nil {
			app.Close()
			return nil, err
		}
	}

	buildServices(app)
	app.Router = server.NewRouter(server.RouterDeps{
		Config:   app.Config,
		Tokens:   app.Tokens,
		Sessions: app.UsersService,
		Metrics:  app.Metrics,
		Handlers: []server.RouteRegistrar{
			app.Health,
			users.NewHandler(app.UsersService, app.LeaderboardService),
			app.GoogleAuth,
			departments.NewHandler(app.DepartmentsService),
			content.NewHandler(app.ContentService, cfg.MaxUploadBytes),
			stars.NewHandler(app.StarsService),
			leaderboard.NewHandler(app.LeaderboardService),
		},
	})
	return app, nil
}

// Close releases the database pool and the record store.
func (a *App) Close() {
	if a.Records != nil {
		if err := a.Records.Close(); err != nil {
			telemetry.Warn("bootstrap.close_records_failed", map[string]any{"error": err.Error()})
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			telemetry.Warn("bootstrap.close_db_failed", map[string]any{"error": err.Error()})
		}
	}
}

func buildPersistence(ctx context.Context, app *App) error {
	cfg := app.Config
	if cfg.StoreBackend == "postgres" {
		sqlDB, err := buildDB(ctx, cfg)
		if err != nil {
			if !config.IsDevLike(cfg.Env) {
				return err
			}
			telemetry.Warn("bootstrap.database_unavailable", map[string]any{"error": err.Error(), "fallback": "file"})
			cfg.StoreBackend = "file"
			app.Config.StoreBackend = "file"
		} else {
			app.DB = sqlDB
			app.UsersRepo = &users.PGRepo{DB: sqlDB}
			app.SessionRepo = &users.PGSessionRepo{DB: sqlDB}
			app.ContentRepo = &content.PGRepo{DB: sqlDB}
			return nil
		}
	}

	store, err := buildRecords(ctx, cfg)
	if err != nil {
		return err
	}
	app.Records = store
	app.UsersRepo = users.NewStoreRepo(store)
	app.SessionRepo = users.NewStoreSessionRepo(store)
	app.ContentRepo = content.NewStoreRepo(store)
	telemetry.Info("bootstrap.record_store", map[string]any{"backend": cfg.StoreBackend})
	return nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildRecords(ctx context.Context, cfg config.Config) (record.Store, error) {
	switch cfg.StoreBackend {
	case "memory":
		return record.NewMemoryStore(), nil
	case "redis":
		return record.NewRedisStore(ctx, cfg.RedisURL, cfg.RedisPrefix)
	case "mongo":
		return record.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return record.NewFileStore(cfg.DataDir)
	}
}

func buildObjects(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func seedBackend(ctx context.Context, app *App) error {
	var err error
	if app.Records != nil {
		_, err = seed.Store(ctx, app.Records)
	} else {
		_, err = seed.Repos(ctx, app.UsersRepo, app.ContentRepo)
	}
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}

func buildServices(app *App) {
	cfg := app.Config

	userSvc := users.NewService(app.UsersRepo, app.SessionRepo, app.Tokens, cfg.SessionTTL)
	userSvc.Metrics = app.Metrics

	contentSvc := content.NewService(app.ContentRepo, userSvc, app.Objects)
	contentSvc.Metrics = app.Metrics

	starSvc := stars.NewService(userSvc, contentSvc)
	starSvc.Metrics = app.Metrics

	app.UsersService = userSvc
	app.ContentService = contentSvc
	app.StarsService = starSvc
	app.LeaderboardService = leaderboard.NewService(userSvc)
	app.DepartmentsService = departments.NewService(contentSvc)
	app.Health = health.NewService(2 * time.Second)
	if app.Records != nil {
		records := app.Records
		app.Health.Register("records", func(ctx context.Context) error {
			_, err := records.Exists(ctx, "users")
			return err
		})
	}
	if app.DB != nil {
		app.Health.Register("database", app.DB.PingContext)
	}
	app.GoogleAuth = googleauth.NewGoogleService(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.UIRedirectURL,
		userSvc,
	)
}
