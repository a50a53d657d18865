// Package main is the entry point for The Life Journal API server.
//
// MAIN PACKAGE IN GO:
// main's job is to:
//  1. Read configuration (environment, optional .env file)
//  2. Create dependencies (logger, store, identity verifier, payments)
//  3. Start the application
//
// All actual logic lives in imported packages (internal/server,
// internal/handler, etc.).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/life-journal/internal/auth"
	"github.com/sakif/life-journal/internal/config"
	"github.com/sakif/life-journal/internal/payment"
	"github.com/sakif/life-journal/internal/repository"
	"github.com/sakif/life-journal/internal/repository/mongo"
	"github.com/sakif/life-journal/internal/repository/sqlite"
	"github.com/sakif/life-journal/internal/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// === 1. CONFIGURATION ===
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	// === 2. LOGGING ===
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// === 3. STORE ===
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// === 4. IDENTITY ===
	verifier, err := newVerifier(ctx, cfg, logger)
	if err != nil {
		store.Close(context.Background())
		return err
	}

	// === 5. PAYMENTS ===
	// A nil interface (never a typed nil *Stripe) switches the payment
	// routes to 503.
	var payments payment.Processor
	if cfg.PaymentsEnabled() {
		stripe, err := payment.NewStripe(payment.StripeConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			Currency:      cfg.StripeCurrency,
			ClientURL:     cfg.ClientURL,
		})
		if err != nil {
			store.Close(context.Background())
			return fmt.Errorf("configuring payments: %w", err)
		}
		payments = stripe
		if cfg.StripeWebhookSecret == "" {
			logger.Warn("STRIPE_WEBHOOK_SECRET not set, /webhook will answer 503")
		}
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, payment routes will answer 503")
	}

	// === 6. SERVER ===
	srv, err := server.New(server.Config{
		Port:                 cfg.Port,
		CORSOrigins:          cfg.CORSOrigins,
		TopContributorsLimit: cfg.TopContributorsLimit,
		ShutdownTimeout:      cfg.ShutdownTimeout,
	}, server.Deps{
		Store:    store,
		Verifier: verifier,
		Payments: payments,
	}, logger)
	if err != nil {
		store.Close(context.Background())
		return fmt.Errorf("creating server: %w", err)
	}

	// Start blocks until SIGINT/SIGTERM and closes the store on the way out.
	return srv.Start()
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		if cfg.SQLitePath != ":memory:" {
			// os.MkdirAll is `mkdir -p`; 0755 lets others read.
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("using sqlite store", slog.String("path", cfg.SQLitePath))
		return db, nil

	default:
		store, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to MongoDB", slog.String("database", cfg.MongoDatabase))
		return store, nil
	}
}

func newVerifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.Verifier, error) {
	switch cfg.AuthProvider {
	case config.AuthJWT:
		logger.Warn("AUTH_PROVIDER=jwt: accepting locally signed tokens, not for production")
		return auth.NewTokenService(cfg.JWTSecret)

	default:
		v, err := auth.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("configuring firebase: %w", err)
		}
		return v, nil
	}
}
