package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ankhbayar/entitlement-service/internal/api/rest"
	"github.com/ankhbayar/entitlement-service/internal/api/rest/handlers"
	"github.com/ankhbayar/entitlement-service/internal/api/rest/middleware"
	"github.com/ankhbayar/entitlement-service/internal/config"
	"github.com/ankhbayar/entitlement-service/internal/integration/qpay"
	"github.com/ankhbayar/entitlement-service/internal/kafka"
	"github.com/ankhbayar/entitlement-service/internal/metrics"
	"github.com/ankhbayar/entitlement-service/internal/repository"
	"github.com/ankhbayar/entitlement-service/internal/repository/postgres"
	"github.com/ankhbayar/entitlement-service/internal/service"
	"github.com/ankhbayar/entitlement-service/internal/worker"
	"github.com/ankhbayar/entitlement-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var log *logger.Logger

func init() {
	logLevel := logger.INFO
	if os.Getenv("DEBUG") == "true" {
		logLevel = logger.DEBUG
	}
	log = logger.New(logLevel)
}

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	promRegistry := prometheus.NewRegistry()
	billingMetrics := metrics.NewBillingMetrics(promRegistry)

	dbPool, err := postgres.NewConnection(ctx, cfg.Database.DSN, log)
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	// Repositories. Redis is optional: without it account reads go
	// straight to Postgres.
	accountRepo := repository.NewPostgresAccountRepository(dbPool, log)
	if cfg.Redis.Addr != "" {
		cache, err := repository.NewRedisCacheRepository(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Warnw("Redis unavailable, account cache disabled", "error", err)
		} else {
			accountRepo = repository.NewCachedAccountRepository(accountRepo, cache, log)
		}
	}
	paymentRepo := repository.NewPostgresPaymentRepository(dbPool, log)
	contentRepo := repository.NewPostgresContentRepository(dbPool, log)

	// Kafka is optional too; events are advisory.
	var producer kafka.Producer = kafka.NoOpProducer{}
	if len(cfg.Kafka.Brokers) > 0 {
		p, err := kafka.NewKafkaProducer(cfg.Kafka.Brokers, log)
		if err != nil {
			log.Warnw("Kafka unavailable, events disabled", "error", err)
		} else {
			producer = p
			defer p.Close()
		}
	}

	gateway := qpay.NewClient(qpay.Config{
		BaseURL:     cfg.QPay.BaseURL,
		Username:    cfg.QPay.Username,
		Password:    cfg.QPay.Password,
		InvoiceCode: cfg.QPay.InvoiceCode,
		CallbackURL: cfg.QPay.CallbackURL,
	}, log)

	plan := service.BillingPlan{
		Amount:       cfg.Billing.Amount,
		DurationDays: cfg.Billing.DurationDays,
		Tag:          cfg.Billing.Tag,
	}
	paymentSvc := service.NewPaymentService(paymentRepo, accountRepo, gateway, producer, billingMetrics, plan, log)
	entitlementSvc := service.NewEntitlementService(accountRepo, producer, billingMetrics, cfg.Billing.Tag, log)
	contentSvc := service.NewContentService(contentRepo, accountRepo, log)

	reconciler := worker.NewReconciler(paymentRepo, paymentSvc,
		cfg.ReconcilerInterval(), cfg.ReconcilerMaxPendingAge(), log)
	go reconciler.Run(ctx)

	if os.Getenv("GIN_MODE") == "release" || cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := rest.SetupRouter(log, promRegistry, rest.Handlers{
		Purchase:    handlers.NewPurchaseHandler(paymentSvc, log),
		Entitlement: handlers.NewEntitlementHandler(entitlementSvc, log),
		Content:     handlers.NewContentHandler(contentSvc, log),
		Auth:        middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, cfg.Auth.AdminEmail, log),
	})

	server := rest.NewServer(router, cfg, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel() // stop the reconciler

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
