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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/school-fee-api/api/swagger"
	"github.com/noah-isme/school-fee-api/internal/handler"
	"github.com/noah-isme/school-fee-api/internal/middleware"
	"github.com/noah-isme/school-fee-api/internal/repository"
	"github.com/noah-isme/school-fee-api/internal/service"
	"github.com/noah-isme/school-fee-api/pkg/cache"
	"github.com/noah-isme/school-fee-api/pkg/config"
	"github.com/noah-isme/school-fee-api/pkg/export"
	"github.com/noah-isme/school-fee-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-fee-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-fee-api/pkg/middleware/requestid"
)

// @title School Fee API
// @version 1.0.0
// @description Student records, fee catalogue, payments and collection reports
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()

	store, err := openStores(ctx, cfg, metrics)
	if err != nil {
		logr.Fatal("failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	// A typed nil *redis.Client must not reach the repositories.
	var redisCmd redis.Cmdable
	if redisClient != nil {
		redisCmd = redisClient
	}

	validate := service.NewValidator()
	students := service.NewStudentService(store.students, store.payments, validate, logr)
	fees := service.NewFeeStructureService(store.fees, store.payments, validate, logr)
	payments := service.NewPaymentService(store.payments, store.students, store.fees, validate, logr)
	auth := service.NewAuthService(store.users, repository.NewTokenRepository(redisCmd), validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	reportCache := service.NewCacheService(
		repository.NewCacheRepository(redisCmd, logr),
		metrics,
		cfg.Reports.CacheTTL,
		logr,
		cfg.Reports.CacheEnabled && redisCmd != nil,
	)
	reports := service.NewReportService(payments, students, fees, export.NewCSVExporter(), reportCache, logr, service.ReportServiceConfig{
		CacheTTL:            cfg.Reports.CacheTTL,
		RecentPaymentsLimit: cfg.Reports.RecentPaymentsLimit,
	})
	students.OnChange(reports.Invalidate)
	fees.OnChange(reports.Invalidate)
	payments.OnChange(reports.Invalidate)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	checks := map[string]handler.ReadinessCheck{"store": store.ping}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	metricsHandler := handler.NewMetricsHandler(metrics, checks, logr)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:          handler.NewAuthHandler(auth),
		Students:      handler.NewStudentHandler(students),
		FeeStructures: handler.NewFeeStructureHandler(fees),
		Payments:      handler.NewPaymentHandler(payments, metrics),
		Reports:       handler.NewReportHandler(reports),
	}, auth, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if err := store.close(shutdownCtx); err != nil {
		logr.Warn("close store", zap.Error(err))
	}
}
