package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"metalops/internal/cache"
	"metalops/internal/config"
	cronrunner "metalops/internal/cron"
	"metalops/internal/db"
	"metalops/internal/handler"
	"metalops/internal/logger"
	gormrepository "metalops/internal/repository/gorm"
	"metalops/internal/service"
)

func main() {
	cfgPath := os.Getenv("MO_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("MO_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	projCache := cache.New(redisClient, cfg.Redis.CacheTTL)

	store := gormrepository.New(dbConn.Gorm)

	requestSvc := &service.RequestService{Repo: store, Logger: logger}
	orchestrator := &service.HedgeOrchestrator{Repo: store, Cache: projCache, Logger: logger}
	matcher := &service.DealMatcher{Repo: store, Logger: logger, BatchSize: cfg.DealMatcher.BatchSize}
	snapshotSvc := &service.ExposureSnapshotService{Repo: store, Logger: logger}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, Redis: redisClient}
	healthHandler.Register(engine)
	handler.RegisterDocs(engine)

	requestHandler := &handler.HedgeRequestHandler{Requests: requestSvc}
	requestHandler.Register(engine)
	opHandler := &handler.HedgeOperationHandler{Orchestrator: orchestrator}
	opHandler.Register(engine)
	execHandler := &handler.HedgeExecutionHandler{Repo: store}
	execHandler.Register(engine)
	viewHandler := &handler.ViewHandler{Repo: store, Cache: projCache}
	viewHandler.Register(engine)
	physicalHandler := &handler.PhysicalHandler{Repo: store}
	physicalHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		if cfg.DealMatcher.Enabled {
			if _, err := cronRunner.Add("deal_matcher", cfg.Cron.DealMatcher, matcher.RunOnce); err != nil {
				logger.Warn("cron register deal matcher failed", zap.Error(err))
			}
		}
		if cfg.ExposureSnapshot.Enabled {
			if _, err := cronRunner.Add("exposure_snapshot", cfg.Cron.ExposureSnapshot, snapshotSvc.RunOnce); err != nil {
				logger.Warn("cron register exposure snapshot failed", zap.Error(err))
			}
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
