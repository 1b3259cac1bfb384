//go:build integration

package integration

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"go-notes-workspace/internal/config"
	"go-notes-workspace/internal/database"
	"go-notes-workspace/internal/event"
	"go-notes-workspace/internal/handler"
	"go-notes-workspace/internal/middleware"
	"go-notes-workspace/internal/remote"
	"go-notes-workspace/internal/repository"
	"go-notes-workspace/internal/retry"
	"go-notes-workspace/internal/router"
	"go-notes-workspace/internal/service"
	"go-notes-workspace/internal/storage"
	"go-notes-workspace/internal/websocket"
	"go-notes-workspace/pkg/apierror"
)

const (
	testQuota      = 1 << 20
	testTokenGrant = 1000
)

// newServer runs the full HTTP stack against TEST_DATABASE_URL.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, database.Options{URL: databaseURL, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.EnsureSchema(ctx))

	documents, err := storage.New(t.TempDir())
	require.NoError(t, err)
	thumbnails, err := storage.New(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		RequestTimeout:      30 * time.Second,
		MaxUploadSize:       512 * 1024,
		JWTSecret:           "integration-secret-that-is-long-enough",
		JWTAccessTTL:        15 * time.Minute,
		JWTRefreshTTL:       24 * time.Hour,
		CORSOrigins:         []string{"*"},
		RateLimitRPM:        0,
		AuthRateLimitRPM:    1000,
		DefaultStorageQuota: testQuota,
		DefaultTokenGrant:   testTokenGrant,
		BillingPeriod:       30 * 24 * time.Hour,
		LowBalanceThreshold: 100,
	}

	pool := db.Pool
	users := repository.NewUserRepository(pool)
	tokens := repository.NewTokenRepository(pool)
	folders := repository.NewFolderRepository(pool)
	docs := repository.NewDocumentRepository(pool)
	shares := repository.NewShareRepository(pool)
	usage := repository.NewUsageRepository(pool)

	bus := event.NewBus()
	hub := websocket.NewHub(bus, cfg.CORSOrigins, nil)
	hubCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	go hub.Run(hubCtx)

	authService := service.NewAuthService(users, tokens, service.AuthConfig{
		JWTSecret:    cfg.JWTSecret,
		AccessTTL:    cfg.JWTAccessTTL,
		RefreshTTL:   cfg.JWTRefreshTTL,
		StorageQuota: cfg.DefaultStorageQuota,
		TokenGrant:   cfg.DefaultTokenGrant,
		BcryptCost:   4,
	})

	h := router.Handlers{
		Health:   handler.NewHealthHandler(db),
		Auth:     handler.NewAuthHandler(authService),
		Folder:   handler.NewFolderHandler(service.NewFolderService(folders, docs, documents, thumbnails, bus)),
		Document: handler.NewDocumentHandler(service.NewDocumentService(docs, folders, users, documents, thumbnails, bus, cfg.MaxUploadSize), cfg.MaxUploadSize),
		Share:    handler.NewShareHandler(service.NewShareService(docs, users, shares, bus)),
		Usage: handler.NewUsageHandler(service.NewUsageService(docs, users, usage, bus, service.UsageConfig{
			BillingPeriod:       cfg.BillingPeriod,
			LowBalanceThreshold: cfg.LowBalanceThreshold,
		})),
	}

	server := httptest.NewServer(router.New(cfg, middleware.NewAuthMiddleware(authService), h, hub))
	t.Cleanup(server.Close)
	return server
}

func newClient(server *httptest.Server) *remote.Client {
	return remote.New(remote.Config{
		BaseURL:     server.URL,
		RetryConfig: retry.Config{MaxAttempts: 1},
	})
}

// signUp registers a fresh user and returns a logged-in client plus the
// username.
func signUp(t *testing.T, server *httptest.Server) (*remote.Client, string) {
	t.Helper()

	ctx := context.Background()
	username := "user_" + uuid.NewString()[:8]
	c := newClient(server)

	_, err := c.Register(ctx, username, "correct-horse-battery")
	require.NoError(t, err)
	_, err = c.Login(ctx, username, "correct-horse-battery")
	require.NoError(t, err)
	return c, username
}

func statusOf(err error) int {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatus
	}
	return 0
}
