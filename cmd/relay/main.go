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
	"github.com/01moynul/stepup-orders/internal/config"
	"github.com/01moynul/stepup-orders/internal/logger"
	"github.com/01moynul/stepup-orders/internal/middleware"
	"github.com/01moynul/stepup-orders/internal/relay"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateRelay(); err != nil {
		log.Fatalf("CRITICAL ERROR: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("relay stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, 0)
	if err != nil {
		return err
	}

	limiter := middleware.NewRateLimiter(middleware.PerMinute(cfg.RelayRatePerMinute), cfg.RelayRateBurst, 10*time.Minute)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()

	hub := relay.NewHub(zl.Named("hub"))
	server := relay.NewServer(hub, tokens, cfg.AllowedOrigins, zl)
	router, err := server.Router(relay.Options{
		APIKeys:        cfg.RelayAPIKeys,
		Limiter:        limiter,
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.RelayAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		zl.Info("starting relay", zap.String("addr", cfg.RelayAddr), zap.Int("api_keys", len(cfg.RelayAPIKeys)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down relay", zap.Int("connections", hub.Connections()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
