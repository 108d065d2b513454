package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zfogg/hushmap/internal/config"
	"github.com/zfogg/hushmap/internal/database"
	"github.com/zfogg/hushmap/internal/handlers"
	"github.com/zfogg/hushmap/internal/kernel"
	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/metrics"
	"github.com/zfogg/hushmap/internal/middleware"
	"github.com/zfogg/hushmap/internal/scheduler"
	"github.com/zfogg/hushmap/internal/telemetry"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.InitializeConsole("info")
		logger.FatalWithFields("Invalid configuration", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		logger.InitializeConsole(cfg.LogLevel)
		logger.WarnWithFields("File logging unavailable, logging to console only", err)
	}
	defer logger.Close()

	logger.Log.Info("=== hushmap server starting ===", zap.String("environment", cfg.Environment))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tp, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:  telemetry.ServiceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.Telemetry.Endpoint,
		Enabled:      cfg.Telemetry.Enabled,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.WarnWithFields("Tracing disabled, exporter setup failed", err)
	}

	metrics.Initialize()

	k, err := kernel.Build(cfg)
	if err != nil {
		logger.FatalWithFields("Failed to initialize services", err)
	}
	if tp != nil {
		k.OnCleanup(tp.Shutdown)
	}

	jobs := scheduler.New(5 * time.Minute)
	if cfg.Scheduler.Enabled {
		registerJobs(jobs, k)
		jobs.Start()
	}

	r := newRouter(k)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("hushmap API listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorWithFields("Server forced to shutdown", err)
	}
	select {
	case <-jobs.Stop().Done():
	case <-ctx.Done():
		logger.Log.Warn("Scheduled jobs still running at shutdown")
	}
	if err := k.Cleanup(ctx); err != nil {
		logger.ErrorWithFields("Cleanup finished with errors", err)
	}

	logger.Log.Info("Server exited")
}

func newRouter(k *kernel.Kernel) *gin.Engine {
	cfg := k.Config()

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"}
	r.Use(cors.New(corsConfig))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	if cfg.Telemetry.Enabled {
		r.Use(middleware.TracingMiddleware(telemetry.ServiceName)...)
	}
	r.Use(middleware.MetricsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		if err := database.Health(k.DB()); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC(),
			"service":   telemetry.ServiceName,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v2")
	api.Use(middleware.AuthMiddleware(k.Verifier()))
	api.Use(middleware.RateLimitMiddleware(k.WindowCounter(), middleware.RateLimitConfig{
		Limit:  cfg.RateLimit.Requests,
		Window: cfg.RateLimit.Window,
	}))

	handlers.NewHandlers(k).RegisterRoutes(api)
	return r
}

func registerJobs(jobs *scheduler.Scheduler, k *kernel.Kernel) {
	cfg := k.Config()
	warm := scheduler.POIWarmJob(k.Repos().Posts, k.POIs(), scheduler.DefaultWarmConfig())
	if err := jobs.AddJob(scheduler.JobPOIWarm, cfg.Scheduler.POIWarmSchedule, warm); err != nil {
		logger.ErrorWithFields("POI warm job not scheduled", err)
	}
	expire := scheduler.RewardExpiryJob(k.Circles())
	if err := jobs.AddJob(scheduler.JobRewardExpiry, cfg.Scheduler.RewardExpirySchedule, expire); err != nil {
		logger.ErrorWithFields("Reward expiry job not scheduled", err)
	}
}
