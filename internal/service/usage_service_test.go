package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/pkg/apierror"
)

const billingPeriod = 720 * time.Hour

func newUsageFixture() (*UsageService, *mockDocuments, *mockUsers, *mockUsage, *recordingBus) {
	documents, users, usage, bus := new(mockDocuments), new(mockUsers), new(mockUsage), &recordingBus{}
	svc := NewUsageService(documents, users, usage, bus, UsageConfig{BillingPeriod: billingPeriod, LowBalanceThreshold: 1000})
	svc.now = frozen
	return svc, documents, users, usage, bus
}

func TestUsageService_StorageUsage(t *testing.T) {
	ctx := context.Background()
	svc, documents, users, _, _ := newUsageFixture()
	users.On("FindByID", ctx, "u1").Return(model.User{ID: "u1", StorageQuota: 1000}, nil)
	documents.On("UsedBytes", ctx, "u1").Return(int64(1500), nil)

	usage, err := svc.StorageUsage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), usage.UsedBytes)
	assert.Equal(t, 100.0, usage.Percentage)
}

func TestUsageService_BalanceUsesBillingPeriod(t *testing.T) {
	ctx := context.Background()
	svc, _, _, usage, _ := newUsageFixture()
	usage.On("Account", ctx, "u1", fixedNow.Add(-billingPeriod)).Return(model.TokenAccount{Balance: 280, UsedTokens: 20}, nil)

	account, err := svc.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(280), account.Balance)
}

func TestUsageService_DailyFillsGaps(t *testing.T) {
	ctx := context.Background()
	svc, _, _, usage, _ := newUsageFixture()

	since := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	usage.On("Daily", ctx, "u1", since).Return([]model.DailyUsage{
		{Date: since, Tokens: 5},
		{Date: since.AddDate(0, 0, 2), Tokens: 7},
	}, nil)

	series, err := svc.Daily(ctx, "u1", 3)
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, []int64{5, 0, 7}, []int64{series[0].Tokens, series[1].Tokens, series[2].Tokens})
	assert.Equal(t, since.AddDate(0, 0, 1), series[1].Date)

	_, err = svc.Daily(ctx, "u1", 400)
	require.Error(t, err)
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
}

func TestUsageService_BreakdownPercentages(t *testing.T) {
	ctx := context.Background()
	svc, _, _, usage, _ := newUsageFixture()
	usage.On("ByFeature", ctx, "u1", mock.Anything).Return([]model.UsageBreakdown{
		{Feature: "summarize", Tokens: 75},
		{Feature: "search", Tokens: 25},
	}, nil)

	rows, err := svc.Breakdown(ctx, "u1", 0)
	require.NoError(t, err)
	assert.InDelta(t, 75.0, rows[0].Percentage, 0.001)
	assert.InDelta(t, 25.0, rows[1].Percentage, 0.001)
}

func TestUsageService_Consume(t *testing.T) {
	ctx := context.Background()
	periodStart := fixedNow.Add(-billingPeriod)

	t.Run("crossing the threshold notifies once", func(t *testing.T) {
		svc, _, _, usage, bus := newUsageFixture()
		usage.On("Account", ctx, "u1", periodStart).Return(model.TokenAccount{Balance: 1200}, nil).Once()
		usage.On("Consume", ctx, model.UsageEvent{UserID: "u1", Feature: "summarize", Amount: 300, CreatedAt: fixedNow}).Return(nil)
		usage.On("Account", ctx, "u1", periodStart).Return(model.TokenAccount{Balance: 900, UsedTokens: 300}, nil).Once()

		account, err := svc.Consume(ctx, "u1", model.ConsumeTokensRequest{Amount: 300, Feature: "summarize"})
		require.NoError(t, err)
		assert.Equal(t, int64(900), account.Balance)
		require.Len(t, bus.events, 1)
		assert.Equal(t, model.NotificationTokensLow, bus.events[0].Notification.Type)
	})

	t.Run("already low does not notify again", func(t *testing.T) {
		svc, _, _, usage, bus := newUsageFixture()
		usage.On("Account", ctx, "u1", periodStart).Return(model.TokenAccount{Balance: 900}, nil).Once()
		usage.On("Consume", ctx, mock.MatchedBy(func(ev model.UsageEvent) bool { return ev.Feature == "general" })).Return(nil)
		usage.On("Account", ctx, "u1", periodStart).Return(model.TokenAccount{Balance: 800}, nil).Once()

		_, err := svc.Consume(ctx, "u1", model.ConsumeTokensRequest{Amount: 100})
		require.NoError(t, err)
		assert.Empty(t, bus.events)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		svc, _, _, usage, _ := newUsageFixture()
		usage.On("Account", ctx, "u1", periodStart).Return(model.TokenAccount{Balance: 10}, nil)
		usage.On("Consume", ctx, mock.Anything).Return(model.ErrInsufficientTokens)

		_, err := svc.Consume(ctx, "u1", model.ConsumeTokensRequest{Amount: 100})
		require.ErrorIs(t, err, model.ErrInsufficientTokens)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		svc, _, _, usage, _ := newUsageFixture()
		_, err := svc.Consume(ctx, "u1", model.ConsumeTokensRequest{Amount: 0})
		require.Error(t, err)
		usage.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything)
	})
}
