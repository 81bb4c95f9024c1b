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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-api/api/swagger"
	"github.com/noah-isme/timetable-api/internal/handler"
	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/export"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

// @title Timetable API
// @version 1.0.0
// @description Weekly class timetable generation over courses, teachers, rooms and batches
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(ctx, db, database.Migrations)
		if err != nil {
			logr.Fatal("schema migration failed", zap.Error(err))
		}
		if len(applied) > 0 {
			logr.Info("schema migrated", zap.Strings("versions", applied))
		}
	}

	// Redis is optional: without it listings are served straight from Postgres.
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, "timetable", logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Timetable.CacheTTL, logr, redisClient != nil)

	courseRepo := repository.NewCourseRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	runRepo := repository.NewGenerationRunRepository(db)
	userRepo := repository.NewUserRepository(db)

	opts := service.TimetableOptions(cfg.Timetable)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            logger.ServiceName,
	})
	if err := authSvc.EnsureAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
		logr.Fatal("failed to bootstrap admin", zap.Error(err))
	}
	referenceSvc := service.NewReferenceService(courseRepo, teacherRepo, roomRepo, batchRepo, db, validate, logr)
	timetableSvc := service.NewTimetableService(referenceSvc, timetableRepo, runRepo, db, cacheSvc, metricsSvc, validate, logr, service.TimetableServiceConfig{
		Options:    opts,
		RunTTL:     cfg.Timetable.RunTTL,
		CacheTTL:   cfg.Timetable.CacheTTL,
		MaxRetries: cfg.Timetable.WorkerRetries,
	})

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(timetableRepo, exportStorage, signer, metricsSvc, service.ExportConfig{
		APIPrefix:       cfg.APIPrefix,
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
		Options:         opts,
	}, logr, export.NewCSVExporter(export.WithBOM(cfg.Exports.CSVBOM)), export.NewPDFExporter())

	queue := jobs.NewQueue("timetable-generation", timetableSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Timetable.Workers,
		MaxRetries: cfg.Timetable.WorkerRetries,
		Logger:     logr,
	})
	timetableSvc.AttachQueue(queue)
	queue.Start(ctx)
	defer queue.Stop()
	exportSvc.StartCleanup(ctx)

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = handler.PingerFunc(cacheRepo.Ping)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	referenceHandler := handler.NewReferenceHandler(referenceSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc, "/health", "/ready", "/metrics"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	// Download links carry their own signature.
	api.GET("/timetable/export/download", timetableHandler.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))
	secured.GET("/auth/me", authHandler.Me)

	admins := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
	readers := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin, models.RoleTeacher, models.RoleStudent)

	reference := secured.Group("/reference")
	reference.GET("/snapshot", admins, referenceHandler.Snapshot)
	reference.POST("/import", admins, referenceHandler.Import)

	tt := secured.Group("/timetable")
	tt.GET("", readers, timetableHandler.List)
	tt.GET("/utilization", readers, timetableHandler.Utilization)
	tt.GET("/runs", admins, timetableHandler.ListRuns)
	tt.GET("/runs/:id", admins, timetableHandler.GetRun)
	tt.POST("/generate", admins, timetableHandler.Generate)
	tt.POST("/preview", admins, timetableHandler.Preview)
	tt.POST("/export", admins, timetableHandler.Export)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
