package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/01moynul/stepup-orders/internal/auth"
	"github.com/01moynul/stepup-orders/internal/broadcast"
	"github.com/01moynul/stepup-orders/internal/config"
	"github.com/01moynul/stepup-orders/internal/database"
	"github.com/01moynul/stepup-orders/internal/handlers"
	"github.com/01moynul/stepup-orders/internal/logger"
	"github.com/01moynul/stepup-orders/internal/media"
	"github.com/01moynul/stepup-orders/internal/orders"
	"github.com/01moynul/stepup-orders/internal/routes"
	"github.com/01moynul/stepup-orders/internal/store"
)

func main() {
	// 0. --- Load Configuration (.env, config.yaml, environment) ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateAPI(); err != nil {
		log.Fatalf("CRITICAL ERROR: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("order api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. --- Database Connection ---
	db, err := database.OpenDB(ctx, cfg.DatabaseDSN, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, zl)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db, zl); err != nil {
			return err
		}
	}

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, 0)
	if err != nil {
		return err
	}

	// 2. --- Background Worker: broadcast dispatcher ---
	// It outlives the HTTP server so events from in-flight requests are flushed.
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	dispatcher := broadcast.NewDispatcher(
		broadcast.NewClient(cfg.RelayURL, cfg.SigningKey(), cfg.BroadcastTimeout),
		cfg.BroadcastQueueSize,
		cfg.BroadcastTimeout,
		zl.Named("broadcast"),
	)
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(dispatcherCtx)
	}()

	// --- Application Setup ---
	st := store.New(db)
	images := media.NewResolver(cfg.MediaRoot, cfg.PublicMediaURL, cfg.PlaceholderImage)
	app := &handlers.Handlers{
		Orders: orders.NewService(st, images, dispatcher, zl.Named("orders")),
		Cart:   st,
		Images: images,
		Log:    zl,
	}

	// --- Router Setup ---
	router, err := routes.SetupRouter(app, tokens, routes.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		TrustedProxies: cfg.TrustedProxies,
		MediaRoot:      cfg.MediaRoot,
		Log:            zl.Named("http"),
	})
	if err != nil {
		stopDispatcher()
		<-dispatcherDone
		return err
	}

	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// --- Start Server ---
	serveErr := make(chan error, 1)
	go func() {
		zl.Info("starting order api", zap.String("addr", cfg.APIAddr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stopDispatcher()
		<-dispatcherDone
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down order api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)

	stopDispatcher()
	<-dispatcherDone
	return err
}
