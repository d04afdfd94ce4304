package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/handler"
	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
)

type routerDeps struct {
	timetables    *handler.TimetableHandler
	exports       *handler.ExportHandler
	notifications *handler.NotificationHandler
	catalog       *handler.CatalogHandler
	metrics       *handler.MetricsHandler
	metricsSvc    *service.MetricsService
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metricsSvc, "/metrics", "/health", "/ready"))

	r.GET("/health", deps.metrics.Health)
	r.GET("/ready", deps.metrics.Ready)
	r.GET("/metrics", deps.metrics.Prometheus)
	r.GET("/metrics/summary", deps.metrics.Summary)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	timetables := api.Group("/timetables")
	if cfg.Scheduler.Enabled {
		timetables.POST("/generate", deps.timetables.Generate)
		timetables.POST("/:id/optimize", deps.timetables.Optimize)
	}
	timetables.GET("", deps.timetables.List)
	timetables.GET("/:id", deps.timetables.Get)
	timetables.DELETE("/:id", deps.timetables.Delete)
	timetables.POST("/:id/publish", deps.timetables.Publish)
	timetables.POST("/:id/unpublish", deps.timetables.Unpublish)
	timetables.POST("/:id/archive", deps.timetables.Archive)
	timetables.GET("/:id/export", deps.exports.Export)
	timetables.POST("/:id/exports", deps.exports.Share)

	api.GET("/exports/:token", deps.exports.Download)

	api.GET("/notifications", deps.notifications.List)
	api.PATCH("/notifications/:id/read", deps.notifications.MarkRead)

	api.POST("/catalog/cache/invalidate", deps.catalog.Invalidate)

	return r
}
