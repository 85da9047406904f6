package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	_ "github.com/noah-isme/booking-calendar-api/api/swagger"
	"github.com/noah-isme/booking-calendar-api/internal/handler"
	"github.com/noah-isme/booking-calendar-api/internal/repository"
	"github.com/noah-isme/booking-calendar-api/internal/server"
	"github.com/noah-isme/booking-calendar-api/internal/service"
	"github.com/noah-isme/booking-calendar-api/internal/validation"
	"github.com/noah-isme/booking-calendar-api/pkg/cache"
	"github.com/noah-isme/booking-calendar-api/pkg/config"
	"github.com/noah-isme/booking-calendar-api/pkg/database"
	"github.com/noah-isme/booking-calendar-api/pkg/logger"
)

// @title Booking Calendar API
// @version 1.0.0
// @description Event types, weekly availability and public booking pages.
// @BasePath /api/v1
// @schemes http https
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

	if _, err := maxprocs.Set(maxprocs.Logger(logr.Sugar().Infof)); err != nil {
		logr.Warn("failed to set GOMAXPROCS", zap.Error(err))
	}

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db, cfg.Database.Driver, logr); err != nil {
			return err
		}
	}

	checks := map[string]handler.Pinger{"database": db}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, view cache and rate limiting disabled", zap.Error(err))
		} else {
			checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			})
		}
	}

	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)

	identity, err := service.NewIdentityService(cfg.Auth, logr)
	if err != nil {
		return err
	}

	schema := validation.New(nil)
	events := service.NewEventService(repository.NewEventRepository(db, metrics), schema, cacheSvc, metrics, logr)
	schedules := service.NewScheduleService(repository.NewScheduleRepository(db, metrics), schema, cacheSvc, metrics, logr)

	deps := server.Dependencies{
		Events:    handler.NewEventHandler(events, service.NewExportService(events, cfg.Formatter.Locale, logr)),
		Schedules: handler.NewScheduleHandler(schedules),
		Public:    handler.NewPublicHandler(events, service.NewCalendarFeedService(schedules, logr)),
		Ops:       handler.NewMetricsHandler(metrics, checks, logr),
		Verifier:  identity,
		Metrics:   metrics,
		Logger:    logr,
	}
	if redisClient != nil {
		deps.Limiter = cacheRepo
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.NewRouter(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("db_driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
