package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tinoosan/spendlog/internal/config"
	"github.com/tinoosan/spendlog/internal/events"
	amqpevents "github.com/tinoosan/spendlog/internal/events/amqp"
	kafkaevents "github.com/tinoosan/spendlog/internal/events/kafka"
	"github.com/tinoosan/spendlog/internal/httpapi"
	"github.com/tinoosan/spendlog/internal/service/transaction"
	"github.com/tinoosan/spendlog/internal/storage/memory"
	pgstore "github.com/tinoosan/spendlog/internal/storage/postgres"
	sqlitestore "github.com/tinoosan/spendlog/internal/storage/sqlite"
)

// store is what every storage backend offers the HTTP layer.
type store interface {
	transaction.Repo
	transaction.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Logger (slog to stdout). Level via LOG_LEVEL; format via LOG_FORMAT (json|text, default json)
	logger := buildLogger(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", "err", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("spendlog exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	pub, err := openPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Warn("event publisher close failed", "err", err)
		}
	}()

	if cfg.DevSeed {
		if err := seedDev(ctx, st, logger); err != nil {
			logger.Error("dev seed failed", "err", err)
		}
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpapi.New(st, st, pub, logger, transaction.WithPublishTimeout(cfg.PublishTimeout)).Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("spendlog listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		if err := srv.Shutdown(ctxShutdown); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// openStore migrates and opens the backend named by DATABASE_URL.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, func(), error) {
	backend, dsn := cfg.Storage()
	switch backend {
	case config.BackendPostgres:
		if err := pgstore.Migrate(dsn); err != nil {
			return nil, nil, fmt.Errorf("postgres migrate: %w", err)
		}
		pg, err := pgstore.Open(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		logger.Info("storage backend: postgres")
		return pg, pg.Close, nil
	case config.BackendSQLite:
		if err := sqlitestore.Migrate(dsn); err != nil {
			return nil, nil, fmt.Errorf("sqlite migrate: %w", err)
		}
		sl, err := sqlitestore.Open(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite open: %w", err)
		}
		logger.Info("storage backend: sqlite", "path", dsn)
		return sl, func() {
			if err := sl.Close(); err != nil {
				logger.Warn("sqlite close failed", "err", err)
			}
		}, nil
	default:
		logger.Info("storage backend: memory")
		return memory.New(), func() {}, nil
	}
}

func openPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	switch cfg.EventsBackend {
	case config.EventsKafka:
		logger.Info("events backend: kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
		return kafkaevents.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case config.EventsAMQP:
		p, err := amqpevents.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, fmt.Errorf("amqp connect: %w", err)
		}
		logger.Info("events backend: amqp", "exchange", cfg.AMQPExchange)
		return p, nil
	default:
		return events.Nop{}, nil
	}
}

// seedDev inserts the two sample transactions through the service so
// validation and events apply as for any client.
func seedDev(ctx context.Context, st store, logger *slog.Logger) error {
	svc := transaction.New(st, st, nil, logger)
	seed := []transaction.Input{
		{Date: "2025-01-13", Title: "Grocery shopping", IsIncome: true, Spending: decimal.RequireFromString("21.37")},
		{Date: "2025-01-14", Title: "Rent", IsIncome: false, Spending: decimal.RequireFromString("500.00")},
	}
	ids := make([]int64, 0, len(seed))
	for _, in := range seed {
		t, err := svc.Create(ctx, in)
		if err != nil {
			return err
		}
		ids = append(ids, t.ID)
	}
	logger.Info("DEV seed", "transaction_ids", ids)
	return nil
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLogger(cfg *config.Config) *slog.Logger {
	level := parseLogLevel(cfg.LogLevel)
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
