package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/devmatch/backend/internal/api"
	"github.com/devmatch/backend/internal/auth"
	"github.com/devmatch/backend/internal/domain"
	"github.com/devmatch/backend/internal/fcm"
	"github.com/devmatch/backend/internal/middleware"
	"github.com/devmatch/backend/internal/repository"
	"github.com/devmatch/backend/internal/storage"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting DevMatch API",
		zap.String("version", version),
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("database", cfg.Database.Driver),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Database.Timeout)
	store, err := repository.Open(connectCtx, cfg.Database)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("Failed to close store", zap.Error(err))
		}
	}()
	logger.Info("Connected to database")

	if !skipMigrate {
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate store: %w", err)
		}
	}

	// Initialize storage
	fileStorage, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize file storage: %w", err)
	}

	// Notifications: websocket always, push when configured
	wsManager := api.NewWebSocketManager(logger)
	notifiers := domain.MultiNotifier{wsManager}
	if cfg.Firebase.Enabled {
		fcmClient, err := fcm.NewClient(ctx, logger, cfg.Firebase.CredentialsFile, store)
		if err != nil {
			logger.Warn("Failed to initialize Firebase client - push notifications will be disabled", zap.Error(err))
		} else {
			notifiers = append(notifiers, fcmClient)
			logger.Info("Firebase client initialized")
		}
	}

	// Initialize services
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	authService := domain.NewAuthService(store, jwtManager)
	profileService := domain.NewProfileService(store, fileStorage, logger)
	feedService := domain.NewFeedService(store, store)
	connectionService := domain.NewConnectionService(store, store, notifiers, logger)
	paymentService := domain.NewPaymentService()

	// Initialize handlers
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	opts := api.RouterOptions{AllowedOrigins: cfg.Server.AllowedOrigins}
	if local, ok := fileStorage.(*storage.LocalFileStorage); ok {
		opts.UploadsDir = local.Dir()
	}

	router := api.NewRouter(
		api.NewAuthHandler(authService, cfg.Server.SecureCookies, logger),
		api.NewProfileHandler(profileService, logger),
		api.NewFeedHandler(feedService, logger),
		api.NewConnectionHandler(connectionService, logger),
		api.NewNotificationHandler(profileService, wsManager, cfg.Server.AllowedOrigins, logger),
		api.NewPaymentHandler(paymentService, logger),
		api.NewHealthHandler(store, version, logger),
		jwtManager,
		rateLimiter,
		opts,
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		wsManager.Run(gctx)
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rateLimiter.Cleanup()
			case <-gctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Server stopped")
	return nil
}
