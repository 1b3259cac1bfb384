package service

import (
	"context"
	"io"
	"os"
	"time"

	"go-notes-workspace/internal/model"
)

// The repository interfaces below are satisfied by internal/repository and
// by the testify mocks in this package's tests.

type UserRepository interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	Create(ctx context.Context, u model.User, tokenGrant int64) error
}

type RefreshTokenRepository interface {
	Store(ctx context.Context, token string, userID string, expiresAt time.Time) error
	Consume(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
}

type FolderRepository interface {
	Create(ctx context.Context, ownerID string, f model.Folder) error
	Get(ctx context.Context, ownerID string, id string) (model.Folder, error)
	ListChildren(ctx context.Context, ownerID string, parentID *string) ([]model.Folder, error)
	SubtreeBlobKeys(ctx context.Context, ownerID string, id string) ([]string, []string, error)
	Delete(ctx context.Context, ownerID string, id string) error
}

type DocumentRepository interface {
	Create(ctx context.Context, d model.StoredDocument) error
	GetAccessible(ctx context.Context, userID string, id string) (model.StoredDocument, error)
	GetOwned(ctx context.Context, ownerID string, id string) (model.StoredDocument, error)
	ListByFolder(ctx context.Context, ownerID string, folderID *string) ([]model.StoredDocument, error)
	Delete(ctx context.Context, ownerID string, id string) error
	UsedBytes(ctx context.Context, ownerID string) (int64, error)
}

type ShareRepository interface {
	Upsert(ctx context.Context, record model.ShareRecord) (model.ShareRecord, error)
	ListIncoming(ctx context.Context, userID string) ([]model.SharedDocument, error)
}

type UsageRepository interface {
	Account(ctx context.Context, userID string, periodStart time.Time) (model.TokenAccount, error)
	Consume(ctx context.Context, ev model.UsageEvent) error
	Daily(ctx context.Context, userID string, since time.Time) ([]model.DailyUsage, error)
	ByFeature(ctx context.Context, userID string, since time.Time) ([]model.UsageBreakdown, error)
}

// BlobStore is implemented by storage.Storage.
type BlobStore interface {
	Put(key string, r io.Reader, limit int64) (int64, error)
	Open(key string) (*os.File, error)
	Remove(keys ...string) error
}
