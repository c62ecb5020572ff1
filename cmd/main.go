package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tinoosan/groupledger/internal/auth"
	"github.com/tinoosan/groupledger/internal/config"
	"github.com/tinoosan/groupledger/internal/events"
	httpapi "github.com/tinoosan/groupledger/internal/httpapi/v1"
	"github.com/tinoosan/groupledger/internal/jobs"
	"github.com/tinoosan/groupledger/internal/logging"
	"github.com/tinoosan/groupledger/internal/storage/memory"
	pgstore "github.com/tinoosan/groupledger/internal/storage/postgres"
	"github.com/tinoosan/groupledger/internal/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("groupledger stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info("storage backend", "store", cfg.Store())

	pub, closePub, err := openPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePub()

	var verifier *auth.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	} else {
		logger.Warn("JWT_HS256_SECRET not set; trusting X-User-ID headers")
	}

	if cfg.DevSeed {
		if err := seedDev(ctx, store, verifier, pub, cfg.DefaultCurrency, logger); err != nil {
			logger.Error("dev seed failed", "err", err)
		}
	}

	if cfg.ClosingSweepSchedule != "" {
		sweep := &jobs.ClosingSweep{Accounts: store, Publisher: pub, Location: loc, Log: logger}
		sched, err := sweep.Schedule(ctx, cfg.ClosingSweepSchedule)
		if err != nil {
			return err
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
		logger.Info("closing sweep scheduled", "schedule", cfg.ClosingSweepSchedule, "timezone", loc.String())
	}

	api := httpapi.New(store, httpapi.Options{
		Verifier:        verifier,
		Publisher:       pub,
		Location:        loc,
		DefaultCurrency: cfg.DefaultCurrency,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("groupledger listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// openStore picks postgres, then sqlite, then memory.
func openStore(ctx context.Context, cfg *config.Config) (httpapi.Store, func(), error) {
	switch cfg.Store() {
	case "postgres":
		pg, err := pgstore.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		return pg, pg.Close, nil
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		return db, func() { _ = db.Close() }, nil
	default:
		return memory.New(), func() {}, nil
	}
}

func openPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, func(), error) {
	if cfg.Events.AMQPURL == "" {
		return events.LogPublisher{Log: logger}, func() {}, nil
	}
	p, err := events.DialAMQP(cfg.Events.AMQPURL, cfg.Events.AMQPExchange)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp: %w", err)
	}
	logger.Info("publishing events", "exchange", cfg.Events.AMQPExchange)
	return p, closeQuietly(p, logger), nil
}

func closeQuietly(c io.Closer, logger *slog.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			logger.Warn("close failed", "err", err)
		}
	}
}
