package tokens

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/internal/optimistic"
	"go-notes-workspace/pkg/apierror"
)

type fakeAPI struct {
	account      model.TokenAccount
	balanceErr   error
	daily        []model.DailyUsage
	breakdown    []model.UsageBreakdown
	breakdownErr error
	consumeErr   error
	consumed     []int64

	// Hooks run before the call answers; tests use them to hold a request.
	beforeBalance func() model.TokenAccount
	beforeDaily   func(days int)
}

func (f *fakeAPI) TokenBalance(context.Context) (model.TokenAccount, error) {
	if f.beforeBalance != nil {
		return f.beforeBalance(), f.balanceErr
	}
	return f.account, f.balanceErr
}

func (f *fakeAPI) TokenDailyUsage(_ context.Context, days int) ([]model.DailyUsage, error) {
	if f.beforeDaily != nil {
		f.beforeDaily(days)
	}
	return f.daily, nil
}

func (f *fakeAPI) TokenBreakdown(context.Context, int) ([]model.UsageBreakdown, error) {
	return f.breakdown, f.breakdownErr
}

func (f *fakeAPI) ConsumeTokens(_ context.Context, amount int64, _ string) (model.TokenAccount, error) {
	if f.consumeErr != nil {
		return model.TokenAccount{}, f.consumeErr
	}
	f.consumed = append(f.consumed, amount)
	f.account.Balance -= amount
	f.account.UsedTokens += amount
	return f.account, nil
}

func newTestStore(api *fakeAPI) *Store {
	return New(api, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{})
}

func TestFetchOverwritesOptimisticDeduction(t *testing.T) {
	api := &fakeAPI{account: model.TokenAccount{Balance: 500}}
	s := newTestStore(api)
	require.NoError(t, s.FetchBalance(context.Background()))

	s.DeductTokens(200)
	st := s.Snapshot()
	require.Equal(t, int64(300), st.Balance)
	require.Equal(t, optimistic.Pending, st.BalanceState)

	api.account.Balance = 280
	require.NoError(t, s.FetchBalance(context.Background()))
	st = s.Snapshot()
	require.Equal(t, int64(280), st.Balance)
	require.Equal(t, optimistic.Confirmed, st.BalanceState)
}

func TestFetchBalanceFailureKeepsValue(t *testing.T) {
	api := &fakeAPI{account: model.TokenAccount{Balance: 500}}
	s := newTestStore(api)
	require.NoError(t, s.FetchBalance(context.Background()))

	api.balanceErr = apierror.Network(errors.New("timeout"))
	require.Error(t, s.FetchBalance(context.Background()))

	st := s.Snapshot()
	require.Equal(t, int64(500), st.Balance)
	require.Equal(t, apierror.FallbackMessage, st.Error)
	require.False(t, st.Loading)
}

func TestUsagePercentageIsClamped(t *testing.T) {
	s := newTestStore(&fakeAPI{account: model.TokenAccount{Balance: 10, UsedTokens: 1500, TotalTokens: 1000}})
	require.NoError(t, s.FetchBalance(context.Background()))

	require.InDelta(t, 100.0, s.UsagePercentage(), 0.0001)
	require.InDelta(t, 1.5, s.RawUsageRatio(), 0.0001)
}

func TestUsagePercentageWithoutAllowance(t *testing.T) {
	st := State{UsedTokens: 50}
	require.Zero(t, st.UsagePercentage())
	require.Zero(t, st.RawUsageRatio())
}

func TestLowBalance(t *testing.T) {
	require.True(t, State{Balance: 999, LowBalanceThreshold: 1000}.IsLowBalance())
	require.False(t, State{Balance: 1000, LowBalanceThreshold: 1000}.IsLowBalance())
}

func TestEstimatedDaysLeft(t *testing.T) {
	t.Run("no usage is unbounded", func(t *testing.T) {
		r := State{Balance: 500, WindowDays: 30}.EstimatedDaysLeft()
		require.True(t, r.Unbounded)
		require.Equal(t, "∞", r.String())
	})

	t.Run("daily rate", func(t *testing.T) {
		r := State{Balance: 280, UsedTokens: 300, WindowDays: 30}.EstimatedDaysLeft()
		require.False(t, r.Unbounded)
		require.InDelta(t, 28.0, r.Days, 0.0001)
		require.Equal(t, "28.0", r.String())
	})

	t.Run("overdrawn", func(t *testing.T) {
		r := State{Balance: -20, UsedTokens: 300, WindowDays: 30}.EstimatedDaysLeft()
		require.Zero(t, r.Days)
	})
}

func TestConsumeConfirmsWithServerBalance(t *testing.T) {
	api := &fakeAPI{account: model.TokenAccount{Balance: 500, TotalTokens: 1000}}
	s := newTestStore(api)
	require.NoError(t, s.FetchBalance(context.Background()))

	require.NoError(t, s.Consume(context.Background(), 120, "summarize"))

	st := s.Snapshot()
	require.Equal(t, int64(380), st.Balance)
	require.Equal(t, int64(120), st.UsedTokens)
	require.Equal(t, optimistic.Confirmed, st.BalanceState)
	require.Equal(t, []int64{120}, api.consumed)
}

func TestConsumeRollsBackOnFailure(t *testing.T) {
	api := &fakeAPI{account: model.TokenAccount{Balance: 100}}
	s := newTestStore(api)
	require.NoError(t, s.FetchBalance(context.Background()))

	api.consumeErr = apierror.New("INSUFFICIENT_TOKENS", "Insufficient tokens", "", 409)
	err := s.Consume(context.Background(), 500, "chat")
	require.True(t, apierror.IsKind(err, apierror.KindConflict))

	st := s.Snapshot()
	require.Equal(t, int64(100), st.Balance)
	require.Equal(t, optimistic.Failed, st.BalanceState)
	require.Equal(t, "Insufficient tokens", st.Error)
}

func TestConsumeRejectsNonPositiveAmount(t *testing.T) {
	api := &fakeAPI{}
	s := newTestStore(api)

	err := s.Consume(context.Background(), 0, "chat")
	require.True(t, apierror.IsKind(err, apierror.KindValidation))
	require.Empty(t, api.consumed)
}

func TestFetchUsageIsAllOrNothing(t *testing.T) {
	day := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	api := &fakeAPI{
		daily:     []model.DailyUsage{{Date: day, Tokens: 40}},
		breakdown: []model.UsageBreakdown{{Feature: "chat", Tokens: 40, Percentage: 100}},
	}
	s := newTestStore(api)
	require.NoError(t, s.FetchUsage(context.Background(), 7))

	st := s.Snapshot()
	require.Len(t, st.DailyUsage, 1)
	require.Len(t, st.Breakdown, 1)
	require.Equal(t, 7, st.HistoryDays)

	api.daily = append(api.daily, model.DailyUsage{Date: day.AddDate(0, 0, 1), Tokens: 5})
	api.breakdownErr = apierror.New("INTERNAL_ERROR", "Internal server error", "", 500)
	require.Error(t, s.FetchUsage(context.Background(), 14))

	st = s.Snapshot()
	require.Len(t, st.DailyUsage, 1)
	require.Equal(t, 7, st.HistoryDays)
	require.Equal(t, "Internal server error", st.Error)
}

func TestHistoryRangeLeavesBillingWindowAlone(t *testing.T) {
	api := &fakeAPI{account: model.TokenAccount{Balance: 280, UsedTokens: 300}}
	s := newTestStore(api)
	require.NoError(t, s.FetchBalance(context.Background()))

	before := s.EstimatedDaysLeft()
	require.InDelta(t, 28.0, before.Days, 0.0001)

	require.NoError(t, s.FetchUsage(context.Background(), 7))

	st := s.Snapshot()
	require.Equal(t, DefaultWindowDays, st.WindowDays)
	require.Equal(t, 7, st.HistoryDays)
	require.InDelta(t, 28.0, s.EstimatedDaysLeft().Days, 0.0001)
}

func TestFetchUsageDefaultsHistoryToBillingWindow(t *testing.T) {
	s := New(&fakeAPI{}, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{WindowDays: 14})
	require.NoError(t, s.FetchUsage(context.Background(), 0))

	st := s.Snapshot()
	require.Equal(t, 14, st.WindowDays)
	require.Equal(t, 14, st.HistoryDays)
}

func TestSupersededFetchUsageIsReported(t *testing.T) {
	day := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	started := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{daily: []model.DailyUsage{{Date: day, Tokens: 9}}}
	api.beforeDaily = func(days int) {
		if days == 1 {
			close(started)
			<-release
		}
	}
	s := newTestStore(api)

	done := make(chan error, 1)
	go func() { done <- s.FetchUsage(context.Background(), 1) }()
	<-started

	require.NoError(t, s.FetchUsage(context.Background(), 2))
	close(release)

	require.ErrorIs(t, <-done, ErrStaleResponse)
	st := s.Snapshot()
	require.Equal(t, 2, st.HistoryDays)
	require.Empty(t, st.Error)
	require.False(t, st.Loading)
}

func TestBalanceFetchOvertakenByConsumeIsDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{account: model.TokenAccount{Balance: 500}}
	s := newTestStore(api)
	require.NoError(t, s.FetchBalance(context.Background()))

	api.beforeBalance = func() model.TokenAccount {
		old := api.account
		close(started)
		<-release
		return old
	}

	done := make(chan error, 1)
	go func() { done <- s.FetchBalance(context.Background()) }()
	<-started

	require.NoError(t, s.Consume(context.Background(), 100, "chat"))
	close(release)

	require.ErrorIs(t, <-done, ErrStaleResponse)
	st := s.Snapshot()
	require.Equal(t, int64(400), st.Balance)
	require.Equal(t, optimistic.Confirmed, st.BalanceState)
}
