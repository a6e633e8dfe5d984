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
	"github.com/sethvargo/go-retry"

	"github.com/feriapapel/orders-service/internal/application"
	"github.com/feriapapel/orders-service/internal/config"
	"github.com/feriapapel/orders-service/internal/gateway"
	"github.com/feriapapel/orders-service/internal/gateway/khipu"
	"github.com/feriapapel/orders-service/internal/gateway/webpay"
	"github.com/feriapapel/orders-service/internal/kafka"
	"github.com/feriapapel/orders-service/internal/logger"
	"github.com/feriapapel/orders-service/internal/migrate"
	"github.com/feriapapel/orders-service/internal/presentation"
	"github.com/feriapapel/orders-service/internal/repository"
)

func main() {
	_ = godotenv.Load()
	logger.Init()
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Warn("config load failed", "err", err)
		os.Exit(1)
	}

	// DB pool
	pool, err := pgxpool.New(context.Background(), cfg.DB_STRING)
	if err != nil {
		logger.Warn("pgxpool new failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	// the DB container can come up after us
	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		logger.Warn("db ping failed", "err", err)
		os.Exit(1)
	}
	logger.Info("db connected")

	if err := migrate.Up(cfg.DB_STRING); err != nil {
		logger.Warn("migrations failed", "err", err)
		os.Exit(1)
	}

	// Wiring
	repo := repository.NewOrderRepository(pool)

	gateways := map[string]gateway.Client{
		application.MethodWebpay: webpay.NewClient(cfg.WEBPAY_BASE_URL, cfg.WEBPAY_COMMERCE_CODE, cfg.WEBPAY_API_KEY),
		application.MethodKhipu:  khipu.NewClient(cfg.KHIPU_BASE_URL, cfg.KHIPU_RECEIVER_ID, cfg.KHIPU_SECRET),
	}

	var prod *kafka.Producer
	prod = kafka.NewProducer(cfg.KAFKA_BROKERS, cfg.KAFKA_EVENTS_TOPIC)
	defer prod.Close()

	reconcilers := make(map[string]*application.ReconciliationService, len(gateways))
	for name, gw := range gateways {
		reconcilers[name] = application.NewReconciliationService(repo, gw, prod)
	}

	checkout := application.NewCheckoutService(repo, gateways,
		cfg.PUBLIC_BASE_URL+"/payment/return", cfg.PUBLIC_BASE_URL+"/payment/webhook")
	orders := application.NewOrdersService(repo)

	// Kafka consumer replays queued gateway notifications through the engine
	consumerRecs := make(map[string]kafka.Reconciler, len(reconcilers))
	for name, rec := range reconcilers {
		consumerRecs[name] = rec
	}
	_, _ = kafka.StartConsumer(
		context.Background(),
		consumerRecs,
		kafka.ConsumerConfig{
			Brokers: cfg.KAFKA_BROKERS,
			Topic:   cfg.KAFKA_NOTIFICATIONS_TOPIC,
			GroupID: cfg.KAFKA_GROUP_ID,
		},
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// API
	handlerRecs := make(map[string]presentation.Reconciler, len(reconcilers))
	for name, rec := range reconcilers {
		handlerRecs[name] = rec
	}
	h := presentation.NewPaymentsHandler(checkout, orders, handlerRecs)
	h.Register(r)

	addr := ":" + cfg.HTTP_PORT
	logger.Info("starting http", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Warn("http server crashed", "err", err)
		os.Exit(1)
	}
}
