package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kudaline/dispatch-service/internal/application"
	"github.com/kudaline/dispatch-service/internal/config"
	"github.com/kudaline/dispatch-service/internal/kafka"
	"github.com/kudaline/dispatch-service/internal/logger"
	"github.com/kudaline/dispatch-service/internal/metrics"
	"github.com/kudaline/dispatch-service/internal/migrate"
	"github.com/kudaline/dispatch-service/internal/presentation"
	"github.com/kudaline/dispatch-service/internal/pricing"
	"github.com/kudaline/dispatch-service/internal/repository"
	"github.com/kudaline/dispatch-service/internal/routing"
)

func main() {
	_ = godotenv.Load()
	logger.Init()
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Warn("config load failed", "err", err)
		os.Exit(1)
	}

	if err := migrate.Up(cfg.DB_STRING); err != nil {
		logger.Warn("migrations failed", "err", err)
		os.Exit(1)
	}

	// DB pool
	pool, err := pgxpool.New(context.Background(), cfg.DB_STRING)
	if err != nil {
		logger.Warn("pgxpool new failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Warn("db ping failed", "err", err)
		os.Exit(1)
	}
	logger.Info("db connected")

	// Kafka producer for dispatch events and rider push
	prod := kafka.NewProducer(cfg.KAFKA_BROKERS, cfg.KAFKA_EVENTS, cfg.KAFKA_RIDER_PUSH)
	defer prod.Close()

	m := metrics.New(prometheus.DefaultRegisterer)

	// Wiring
	orderRepo := repository.NewOrderRepository(pool)
	riderRepo := repository.NewRiderRepository(pool)
	walletRepo := repository.NewWalletRepository(pool)

	calc := pricing.NewCalculator(routing.NewClient(cfg.ROUTING_URL), pricing.Rates{
		PerKmCents:       cfg.RatePerKmCents,
		UrgencyFeeCents:  cfg.UrgencyFeeCents,
		ServiceChargePct: cfg.ServiceChargePct,
	})

	matcher := application.NewMatcher(riderRepo)
	svc := application.NewLifecycle(orderRepo, walletRepo, matcher, calc, prod, prod, m)

	// Periodic re-dispatch of unassigned orders
	sched := application.NewScheduler(orderRepo, svc, cfg.DispatchInterval, m)
	sched.Start(context.Background())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// API
	h := presentation.NewDispatchHandler(svc)
	h.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.HTTP_PORT
	logger.Info("starting http", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Warn("http server crashed", "err", err)
		os.Exit(1)
	}
}
