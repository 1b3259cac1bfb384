package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"go-notes-workspace/internal/config"
	"go-notes-workspace/internal/database"
	"go-notes-workspace/internal/event"
	"go-notes-workspace/internal/handler"
	"go-notes-workspace/internal/metrics"
	"go-notes-workspace/internal/middleware"
	"go-notes-workspace/internal/repository"
	"go-notes-workspace/internal/router"
	"go-notes-workspace/internal/service"
	"go-notes-workspace/internal/storage"
	"go-notes-workspace/internal/websocket"
)

const (
	poolStatsInterval    = 30 * time.Second
	tokenCleanupInterval = time.Hour
	shutdownTimeout      = 10 * time.Second
)

type App struct {
	server *http.Server
	db     *database.DB
	hub    *websocket.Hub
	tokens *repository.TokenRepository
}

func New(cfg *config.Config) (*App, error) {
	documents, err := storage.New(cfg.StorageRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document storage: %w", err)
	}
	thumbnails, err := storage.New(cfg.ThumbnailRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize thumbnail storage: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), database.Options{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)
	folderRepo := repository.NewFolderRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	shareRepo := repository.NewShareRepository(pool)
	usageRepo := repository.NewUsageRepository(pool)
	slog.Info("database ready")

	bus := event.NewBus()
	bus.OnDrop(func(e event.Event) {
		metrics.RecordDroppedEvent(string(e.Notification.Type))
	})
	hub := websocket.NewHub(bus, cfg.CORSOrigins, slog.Default())

	authService := service.NewAuthService(userRepo, tokenRepo, service.AuthConfig{
		JWTSecret:    cfg.JWTSecret,
		AccessTTL:    cfg.JWTAccessTTL,
		RefreshTTL:   cfg.JWTRefreshTTL,
		StorageQuota: cfg.DefaultStorageQuota,
		TokenGrant:   cfg.DefaultTokenGrant,
	})
	folderService := service.NewFolderService(folderRepo, documentRepo, documents, thumbnails, bus)
	documentService := service.NewDocumentService(documentRepo, folderRepo, userRepo, documents, thumbnails, bus, cfg.MaxUploadSize)
	shareService := service.NewShareService(documentRepo, userRepo, shareRepo, bus)
	usageService := service.NewUsageService(documentRepo, userRepo, usageRepo, bus, service.UsageConfig{
		BillingPeriod:       cfg.BillingPeriod,
		LowBalanceThreshold: cfg.LowBalanceThreshold,
	})

	appRouter := router.New(cfg, middleware.NewAuthMiddleware(authService), router.Handlers{
		Health:   handler.NewHealthHandler(db),
		Auth:     handler.NewAuthHandler(authService),
		Folder:   handler.NewFolderHandler(folderService),
		Document: handler.NewDocumentHandler(documentService, cfg.MaxUploadSize),
		Share:    handler.NewShareHandler(shareService),
		Usage:    handler.NewUsageHandler(usageService),
	}, hub)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{server: server, db: db, hub: hub, tokens: tokenRepo}, nil
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests.
func (a *App) Run() error {
	defer a.db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		a.housekeeping(ctx)
		return nil
	})

	g.Go(func() error {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("server stopped")
	return nil
}

// housekeeping samples pool stats and purges expired refresh tokens until
// ctx is done.
func (a *App) housekeeping(ctx context.Context) {
	stats := time.NewTicker(poolStatsInterval)
	defer stats.Stop()
	cleanup := time.NewTicker(tokenCleanupInterval)
	defer cleanup.Stop()

	metrics.SetDBConnections(a.db.OpenConns())

	for {
		select {
		case <-ctx.Done():
			return
		case <-stats.C:
			metrics.SetDBConnections(a.db.OpenConns())
		case <-cleanup.C:
			removed, err := a.tokens.CleanExpired(ctx)
			if err != nil {
				slog.Warn("refresh token cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("expired refresh tokens removed", "count", removed)
			}
		}
	}
}
