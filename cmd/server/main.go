package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ticket-storefront/internal/config"
	"ticket-storefront/internal/database"
	"ticket-storefront/internal/middleware"
	"ticket-storefront/internal/repositories"
	"ticket-storefront/internal/server"
	"ticket-storefront/internal/services"
)

const (
	sessionJanitorInterval = 5 * time.Minute
	staleStateMaxAge       = 30 * 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := openStateStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	orderClient := services.NewOrderAPIClient(services.OrderAPIConfig{
		BaseURL: cfg.Checkout.OrderAPIURL,
		APIKey:  cfg.Checkout.OrderAPIKey,
		Timeout: cfg.Checkout.Timeout,
	}, logger)

	promos, err := newPromoResolver(cfg, orderClient, logger)
	if err != nil {
		return err
	}

	storefront := services.NewStorefront(ctx, store, promos, orderClient, nil, logger, services.StorefrontConfig{
		Reservation: services.ReservationConfig{
			TTL:          cfg.Reservation.TTL,
			PollInterval: cfg.Reservation.PollInterval,
		},
		ConfirmationPath: cfg.Checkout.ConfirmationPath,
		IdleTimeout:      cfg.Session.IdleTimeout,
	})
	defer storefront.Close()
	go storefront.RunJanitor(ctx, sessionJanitorInterval)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Attempts, cfg.RateLimit.Window)
	go rateLimiter.Cleanup(ctx, cfg.RateLimit.Window)

	deps := server.Dependencies{
		Sessions:       storefront,
		SessionStore:   middleware.NewCookieStore(cfg.Session.Secret, cfg.Session.MaxAge, cfg.Session.Secure),
		SessionName:    cfg.Session.Name,
		RateLimiter:    rateLimiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	}
	if db != nil {
		deps.DB = db
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           server.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Checkout.Timeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("storefront server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Int("live_sessions", storefront.Len()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// openStateStore connects to the configured database. In development an
// unreachable database falls back to in-memory state.
func openStateStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.StateStore, *database.DB, error) {
	db, err := database.NewConnection(database.ConfigFrom(cfg.Database))
	if err != nil {
		if cfg.IsDevelopment() {
			logger.Warn("database unavailable, keeping client state in memory", zap.Error(err))
			return repositories.NewMemoryStateStore(), nil, nil
		}
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	applied, err := db.RunMigrations(ctx)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, migration := range applied {
		logger.Info("applied migration", zap.Int("version", migration.Version), zap.String("name", migration.Name))
	}
	logger.Info("database connection established", zap.String("driver", db.Driver))

	repo := repositories.NewClientStateRepository(db.DB)
	go pruneStaleState(ctx, repo, logger)
	return repo, db, nil
}

// pruneStaleState removes state of clients that have not been back for a month
func pruneStaleState(ctx context.Context, repo *repositories.ClientStateRepository, logger *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := repo.DeleteStale(ctx, time.Now().Add(-staleStateMaxAge))
			if err != nil {
				logger.Error("failed to prune stale client state", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("pruned stale client state", zap.Int64("rows", removed))
			}
		}
	}
}

func newPromoResolver(cfg *config.Config, orderClient *services.OrderAPIClient, logger *zap.Logger) (*services.PromoResolver, error) {
	codes := services.DefaultPromoCodes()
	if cfg.Promo.CodesFile != "" {
		loaded, err := services.LoadPromoCodes(cfg.Promo.CodesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load promo codes: %w", err)
		}
		codes = loaded
	}

	var remote services.PromoChecker
	if cfg.Promo.RemoteValidate {
		remote = orderClient
	}
	logger.Info("promo codes loaded", zap.Int("codes", len(codes)), zap.Bool("remote_validation", remote != nil))
	return services.NewPromoResolver(codes, remote, logger), nil
}
