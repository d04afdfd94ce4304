package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-api/api/swagger"
	"github.com/noah-isme/timetable-api/internal/handler"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/logger"
	"github.com/noah-isme/timetable-api/pkg/oracle"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

// @title Timetable API
// @version 1.0.0
// @description Department timetable generation, optimization and lifecycle management
// @BasePath /
// @schemes http

const (
	shutdownTimeout = 15 * time.Second
	cleanupInterval = time.Hour
	lockKeyPrefix   = "timetable:lock:"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var (
		catalogReader service.CatalogReader = repository.NewCatalogRepository(db)
		mongoClient   *mongo.Client
	)
	if cfg.Catalog.Driver == config.CatalogDriverMongo {
		client, mongoDB, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect mongo", "error", err)
		}
		mongoClient = client
		defer func() {
			disconnectCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = mongoClient.Disconnect(disconnectCtx)
		}()
		catalogReader = repository.NewMongoCatalogRepository(mongoDB)
	}

	var (
		cacheRepo service.CacheRepository
		lockStore service.LockStore
	)
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		lockStore = repository.NewLockRepository(redisClient, lockKeyPrefix)
	}

	oracleClient, err := oracle.NewGemini(ctx, cfg.Oracle, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init oracle client", "error", err)
	}
	var strategies []scheduler.GenerationStrategy
	if oracleClient != nil {
		strategies = append(strategies, scheduler.NewOracleStrategy(oracleClient, cfg.Oracle.Timeout))
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr)
	catalogSvc := service.NewCatalogService(catalogReader, cacheSvc, metricsSvc, logr)

	notificationSvc := service.NewNotificationService(repository.NewNotificationRepository(db), metricsSvc, logr, service.NotificationConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.Retries,
	})
	notificationSvc.Start(ctx)

	timetableSvc := service.NewTimetableService(
		catalogSvc,
		repository.NewTimetableRepository(db),
		scheduler.NewScheduler(logr, strategies...),
		service.NewGenerationLocker(lockStore, cfg.Scheduler.LockTTL, logr),
		notificationSvc,
		metricsSvc,
		validate,
		logr,
		service.TimetableConfig{
			Strategy:              cfg.Scheduler.Strategy,
			WeeksPerTerm:          cfg.Scheduler.WeeksPerTerm,
			DefaultWeeklySessions: cfg.Scheduler.DefaultWeeklySessions,
			OptimizerMaxAttempts:  cfg.Scheduler.OptimizerMaxAttempts,
		},
	)

	exportSvc, err := newExportService(cfg, timetableSvc, catalogSvc, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	go runExportCleanup(ctx, exportSvc, logr)

	r := newRouter(cfg, logr, routerDeps{
		timetables:    handler.NewTimetableHandler(timetableSvc),
		exports:       handler.NewExportHandler(exportSvc),
		notifications: handler.NewNotificationHandler(notificationSvc),
		catalog:       handler.NewCatalogHandler(catalogSvc),
		metrics:       handler.NewMetricsHandler(metricsSvc, readinessChecks(db, redisClient, mongoClient)),
		metricsSvc:    metricsSvc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "catalog", cfg.Catalog.Driver, "oracle", oracleClient != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down server")

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server forced to shutdown", "error", err)
	}
	notificationSvc.Stop()
	cancel()
	logr.Info("server exited")
}

func newExportService(cfg *config.Config, timetables *service.TimetableService, catalog *service.CatalogService, logr *zap.Logger) (*service.ExportService, error) {
	exportCfg := service.ExportConfig{APIPrefix: cfg.APIPrefix}
	if cfg.Export.SigningSecret == "" {
		logr.Info("export links disabled: no signing secret configured")
		return service.NewExportService(timetables, catalog, nil, nil, exportCfg, logr, nil, nil), nil
	}
	store, err := storage.NewLocalStorage(cfg.Export.Dir)
	if err != nil {
		return nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Export.SigningSecret, cfg.Export.LinkTTL)
	return service.NewExportService(timetables, catalog, store, signer, exportCfg, logr, nil, nil), nil
}

func runExportCleanup(ctx context.Context, exports *service.ExportService, logr *zap.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := exports.Cleanup()
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}

func readinessChecks(db *sqlx.DB, redisClient *redis.Client, mongoClient *mongo.Client) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	if mongoClient != nil {
		checks["mongo"] = func(ctx context.Context) error {
			return mongoClient.Ping(ctx, readpref.Primary())
		}
	}
	return checks
}
