package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/cardpay-ledger-go/internal/config"
	"github.com/boddenberg/cardpay-ledger-go/internal/handler"
	"github.com/boddenberg/cardpay-ledger-go/internal/infra/events"
	"github.com/boddenberg/cardpay-ledger-go/internal/infra/events/kafka"
	"github.com/boddenberg/cardpay-ledger-go/internal/infra/lockout"
	"github.com/boddenberg/cardpay-ledger-go/internal/infra/observability"
	"github.com/boddenberg/cardpay-ledger-go/internal/infra/resilience"
	"github.com/boddenberg/cardpay-ledger-go/internal/port"
	"github.com/boddenberg/cardpay-ledger-go/internal/service"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage/file"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage/memory"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage/sqlite"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = godotenv.Load()

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Strings("kafka_brokers", cfg.KafkaBrokers),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Bool("dev_seed", cfg.DevSeed),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "cardpay-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	var store port.SnapshotStore
	switch cfg.StoreBackend {
	case "memory":
		store = memory.NewStore()
		logger.Info("using in-memory store")
	case "sqlite":
		store, err = sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			logger.Fatal("failed to open sqlite store", zap.Error(err))
		}
		logger.Info("using sqlite store", zap.String("path", cfg.SQLitePath))
	default:
		store, err = file.NewStore(cfg.DataFile)
		if err != nil {
			logger.Fatal("failed to open file store", zap.Error(err))
		}
		logger.Info("using file store", zap.String("path", cfg.DataFile))
	}
	defer store.Close()

	// --- Events ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
	}

	var publisher port.EventPublisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, resilienceCfg, logger)
		logger.Info("kafka publisher enabled",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
	} else {
		logger.Info("no kafka brokers configured, events disabled")
	}
	defer publisher.Close()

	// --- Services ---
	tracker := lockout.NewTracker(cfg.LoginMaxAttempts, cfg.LoginLockWindow)
	defer tracker.Close()
	authSvc := service.NewAuthService(store, tracker, cfg.JWTSecret, cfg.JWTAccessTTL, logger)
	ledgerSvc := service.NewLedgerService(store, publisher, metrics, logger)
	cardSvc := service.NewCardService(store, metrics, cfg.CardDefaultReelection, logger)

	if cfg.DevSeed {
		if err := service.SeedDemoData(context.Background(), store, logger); err != nil {
			logger.Fatal("failed to seed demo data", zap.Error(err))
		}
	}

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Auth:               authSvc,
		Ledger:             ledgerSvc,
		Cards:              cardSvc,
		Store:              store,
		Metrics:            metrics,
		Logger:             logger,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Run until signalled, then drain ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}

	logger.Info("server stopped")
}
