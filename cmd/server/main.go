package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"mhreg/internal/clients"
	"mhreg/internal/jwttoken"
	"mhreg/internal/platform/config"
	"mhreg/internal/platform/events"
	"mhreg/internal/platform/httpserver"
	"mhreg/internal/platform/logger"
	"mhreg/internal/platform/metrics"
	"mhreg/internal/platform/redis"
	"mhreg/internal/registration/handler"
	"mhreg/internal/registration/service"
	"mhreg/internal/registration/store"
	"mhreg/internal/registration/store/cache"
	httptransport "mhreg/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the registration packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	regStore, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		log.Error("store initialization failed", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis initialization failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var summaryCache cache.SummaryCache
	if redisClient != nil {
		summaryCache = cache.NewRedis(redisClient.Client, cfg.SummaryCacheTTL, log)
	} else {
		summaryCache = cache.NewMemory(cfg.SummaryCacheTTL)
	}

	publisher, err := buildPublisher(ctx, cfg, log)
	if err != nil {
		log.Error("event publisher initialization failed", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	var payment clients.PaymentClient = clients.MockPaymentClient{}
	if cfg.PaymentURL != "" {
		payment = clients.NewHTTPPaymentClient(cfg.PaymentURL, cfg.PaymentTimeout)
	}

	appMetrics := metrics.New()
	svc, err := service.New(
		regStore,
		payment,
		service.WithLogger(log),
		service.WithCache(summaryCache),
		service.WithEvents(publisher),
		service.WithMetrics(appMetrics),
		service.WithDependencyTimeout(cfg.PaymentTimeout),
	)
	if err != nil {
		log.Error("service initialization failed", "error", err)
		os.Exit(1)
	}

	jwtService := jwttoken.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	regHandler := handler.New(svc, log, appMetrics, jwttoken.NewAdapter(jwtService))
	router := httptransport.NewRouter(regHandler, regStore, redisClient)

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting mhreg api", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// buildStore selects PostgreSQL when a database URL is configured, otherwise
// the in-memory store for local development.
func buildStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		return store.NewInMemoryStore(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	pg := store.NewPostgres(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return pg, func() { _ = db.Close() }, nil
}

// buildPublisher selects Kafka when brokers are configured, otherwise the
// in-memory publisher.
func buildPublisher(ctx context.Context, cfg config.Config, log *slog.Logger) (events.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NewMemoryPublisher(), nil
	}
	return events.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, log)
}
