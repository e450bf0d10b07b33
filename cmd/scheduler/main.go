package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/payment-tracker/internal/cache"
	"github.com/segyhp/payment-tracker/internal/config"
	"github.com/segyhp/payment-tracker/internal/handler"
	"github.com/segyhp/payment-tracker/internal/logger"
	"github.com/segyhp/payment-tracker/internal/repository"
	"github.com/segyhp/payment-tracker/internal/scheduler"
	"github.com/segyhp/payment-tracker/internal/service"
	"github.com/segyhp/payment-tracker/internal/validation"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.Logging)
	log.WithField("env", cfg.Server.Env).Info("starting payment scheduler")

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer db.Close()

	// Redis is optional
	redisClient, customerCache := initCache(cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validation.New()
	customerRepo := repository.NewCustomerRepository(db, validate)
	paymentRepo := repository.NewPaymentRepository(db, validate)

	var serviceCache service.CustomerCache
	if customerCache != nil {
		serviceCache = customerCache
	}
	paymentService := service.NewPaymentService(customerRepo, paymentRepo, serviceCache, cfg, log)

	sched, err := scheduler.New(cfg, paymentService, log)
	if err != nil {
		log.WithError(err).Fatal("failed to schedule jobs")
	}
	sched.Start()

	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.GetHealthTimeout())
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler.NewRouter(healthHandler, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("health server failed")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("health server forced to shutdown")
	}
	sched.Stop()
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.GetConnMaxLifetime())

	return db, nil
}

func initCache(cfg *config.Config, log *logrus.Logger) (*redis.Client, *cache.CustomerCache) {
	if !cfg.CacheEnabled() {
		log.Info("customer cache disabled")
		return nil, nil
	}

	client, err := cache.NewRedisClient(context.Background(), cfg.Redis.URL)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, continuing without customer cache")
		return nil, nil
	}

	return client, cache.NewCustomerCache(client, cfg.GetCacheTTL())
}
