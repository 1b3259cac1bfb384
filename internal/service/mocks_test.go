package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"go-notes-workspace/internal/event"
	"go-notes-workspace/internal/model"
)

type mockUsers struct{ mock.Mock }

func (m *mockUsers) FindByID(ctx context.Context, id string) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUsers) FindByUsername(ctx context.Context, username string) (model.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUsers) Create(ctx context.Context, u model.User, tokenGrant int64) error {
	return m.Called(ctx, u, tokenGrant).Error(0)
}

type mockRefreshTokens struct{ mock.Mock }

func (m *mockRefreshTokens) Store(ctx context.Context, token string, userID string, expiresAt time.Time) error {
	return m.Called(ctx, token, userID, expiresAt).Error(0)
}

func (m *mockRefreshTokens) Consume(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *mockRefreshTokens) Revoke(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

type mockFolders struct{ mock.Mock }

func (m *mockFolders) Create(ctx context.Context, ownerID string, f model.Folder) error {
	return m.Called(ctx, ownerID, f).Error(0)
}

func (m *mockFolders) Get(ctx context.Context, ownerID string, id string) (model.Folder, error) {
	args := m.Called(ctx, ownerID, id)
	return args.Get(0).(model.Folder), args.Error(1)
}

func (m *mockFolders) ListChildren(ctx context.Context, ownerID string, parentID *string) ([]model.Folder, error) {
	args := m.Called(ctx, ownerID, parentID)
	folders, _ := args.Get(0).([]model.Folder)
	return folders, args.Error(1)
}

func (m *mockFolders) SubtreeBlobKeys(ctx context.Context, ownerID string, id string) ([]string, []string, error) {
	args := m.Called(ctx, ownerID, id)
	documents, _ := args.Get(0).([]string)
	thumbnails, _ := args.Get(1).([]string)
	return documents, thumbnails, args.Error(2)
}

func (m *mockFolders) Delete(ctx context.Context, ownerID string, id string) error {
	return m.Called(ctx, ownerID, id).Error(0)
}

type mockDocuments struct{ mock.Mock }

func (m *mockDocuments) Create(ctx context.Context, d model.StoredDocument) error {
	return m.Called(ctx, d).Error(0)
}

func (m *mockDocuments) GetAccessible(ctx context.Context, userID string, id string) (model.StoredDocument, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(model.StoredDocument), args.Error(1)
}

func (m *mockDocuments) GetOwned(ctx context.Context, ownerID string, id string) (model.StoredDocument, error) {
	args := m.Called(ctx, ownerID, id)
	return args.Get(0).(model.StoredDocument), args.Error(1)
}

func (m *mockDocuments) ListByFolder(ctx context.Context, ownerID string, folderID *string) ([]model.StoredDocument, error) {
	args := m.Called(ctx, ownerID, folderID)
	docs, _ := args.Get(0).([]model.StoredDocument)
	return docs, args.Error(1)
}

func (m *mockDocuments) Delete(ctx context.Context, ownerID string, id string) error {
	return m.Called(ctx, ownerID, id).Error(0)
}

func (m *mockDocuments) UsedBytes(ctx context.Context, ownerID string) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

type mockShares struct{ mock.Mock }

func (m *mockShares) Upsert(ctx context.Context, record model.ShareRecord) (model.ShareRecord, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(model.ShareRecord), args.Error(1)
}

func (m *mockShares) ListIncoming(ctx context.Context, userID string) ([]model.SharedDocument, error) {
	args := m.Called(ctx, userID)
	docs, _ := args.Get(0).([]model.SharedDocument)
	return docs, args.Error(1)
}

type mockUsage struct{ mock.Mock }

func (m *mockUsage) Account(ctx context.Context, userID string, periodStart time.Time) (model.TokenAccount, error) {
	args := m.Called(ctx, userID, periodStart)
	return args.Get(0).(model.TokenAccount), args.Error(1)
}

func (m *mockUsage) Consume(ctx context.Context, ev model.UsageEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *mockUsage) Daily(ctx context.Context, userID string, since time.Time) ([]model.DailyUsage, error) {
	args := m.Called(ctx, userID, since)
	rows, _ := args.Get(0).([]model.DailyUsage)
	return rows, args.Error(1)
}

func (m *mockUsage) ByFeature(ctx context.Context, userID string, since time.Time) ([]model.UsageBreakdown, error) {
	args := m.Called(ctx, userID, since)
	rows, _ := args.Get(0).([]model.UsageBreakdown)
	return rows, args.Error(1)
}

// recordingBus keeps every published event for assertions.
type recordingBus struct {
	events []event.Event
}

func (b *recordingBus) Publish(e event.Event) { b.events = append(b.events, e) }

func (b *recordingBus) Subscribe() (<-chan event.Event, func()) {
	ch := make(chan event.Event)
	return ch, func() {}
}

var fixedNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func frozen() time.Time { return fixedNow }
