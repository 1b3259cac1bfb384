// Package tokens tracks the user's token balance and usage history.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/internal/optimistic"
	"go-notes-workspace/pkg/apierror"
)

const DefaultLowBalanceThreshold int64 = 1000

// DefaultWindowDays is the billing period UsedTokens is counted over.
const DefaultWindowDays = 30

// ErrStaleResponse is returned when a newer request superseded this one and
// its result was discarded.
var ErrStaleResponse = errors.New("tokens: stale response discarded")

type API interface {
	TokenBalance(ctx context.Context) (model.TokenAccount, error)
	TokenDailyUsage(ctx context.Context, days int) ([]model.DailyUsage, error)
	TokenBreakdown(ctx context.Context, days int) ([]model.UsageBreakdown, error)
	ConsumeTokens(ctx context.Context, amount int64, feature string) (model.TokenAccount, error)
}

// Options configures a Store. WindowDays is the server's billing period; it
// converts UsedTokens into a daily rate and never changes with the history
// range requested by FetchUsage.
type Options struct {
	LowBalanceThreshold int64
	WindowDays          int
}

type Store struct {
	api API
	log *slog.Logger

	mu          sync.Mutex
	balance     optimistic.Value[int64]
	used        int64
	total       int64
	daily       []model.DailyUsage
	breakdown   []model.UsageBreakdown
	threshold   int64
	windowDays  int
	historyDays int
	balanceGen  uint64
	usageGen    uint64
	inflight    int
	err         string
}

func New(api API, log *slog.Logger, opts Options) *Store {
	if log == nil {
		log = slog.Default()
	}
	if opts.LowBalanceThreshold <= 0 {
		opts.LowBalanceThreshold = DefaultLowBalanceThreshold
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultWindowDays
	}
	return &Store{
		api:        api,
		log:        log.With("component", "tokens"),
		balance:    optimistic.New[int64](0),
		daily:      []model.DailyUsage{},
		breakdown:  []model.UsageBreakdown{},
		threshold:   opts.LowBalanceThreshold,
		windowDays:  opts.WindowDays,
		historyDays: opts.WindowDays,
	}
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		Balance:             s.balance.Get(),
		BalanceState:        s.balance.State(),
		UsedTokens:          s.used,
		TotalTokens:         s.total,
		DailyUsage:          append([]model.DailyUsage{}, s.daily...),
		Breakdown:           append([]model.UsageBreakdown{}, s.breakdown...),
		LowBalanceThreshold: s.threshold,
		WindowDays:          s.windowDays,
		HistoryDays:         s.historyDays,
		Loading:             s.inflight > 0,
		Error:               s.err,
	}
}

// FetchBalance replaces the balance with the server's value, discarding any
// local deduction not yet reflected there. A fetch overtaken by a later
// FetchBalance or Consume is discarded and returns ErrStaleResponse, so an
// old balance never replaces a newer one.
func (s *Store) FetchBalance(ctx context.Context) error {
	s.mu.Lock()
	s.balanceGen++
	tag := s.balanceGen
	s.inflight++
	s.mu.Unlock()

	account, err := s.api.TokenBalance(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if tag != s.balanceGen {
		s.log.Debug("discarding stale response", "op", "fetch_balance")
		return ErrStaleResponse
	}
	if err != nil {
		return s.fail("fetch_balance", err)
	}
	s.applyAccount(account)
	s.err = ""
	return nil
}

// FetchUsage loads the daily series and the per-feature breakdown for the
// last days days. Both are replaced together or not at all. days only sets
// the history range; it does not touch the billing window. A call overtaken
// by a later one returns ErrStaleResponse.
func (s *Store) FetchUsage(ctx context.Context, days int) error {
	if days <= 0 {
		days = s.WindowDays()
	}

	s.mu.Lock()
	s.usageGen++
	tag := s.usageGen
	s.inflight++
	s.mu.Unlock()

	var (
		daily     []model.DailyUsage
		breakdown []model.UsageBreakdown
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		daily, err = s.api.TokenDailyUsage(gctx, days)
		return err
	})
	g.Go(func() error {
		var err error
		breakdown, err = s.api.TokenBreakdown(gctx, days)
		return err
	})
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if tag != s.usageGen {
		s.log.Debug("discarding stale response", "op", "fetch_usage")
		return ErrStaleResponse
	}
	if err != nil {
		return s.fail("fetch_usage", err)
	}

	if daily == nil {
		daily = []model.DailyUsage{}
	}
	if breakdown == nil {
		breakdown = []model.UsageBreakdown{}
	}
	s.daily = daily
	s.breakdown = breakdown
	s.historyDays = days
	s.err = ""
	return nil
}

// DeductTokens lowers the balance locally right after a consumption. The
// value stays pending until the next fetch or confirmed consume.
func (s *Store) DeductTokens(amount int64) {
	if amount <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance.Speculate(s.balance.Get() - amount)
}

// Consume deducts amount at once and reports it. The server's balance
// confirms the deduction; a failure rolls back to the last confirmed value.
func (s *Store) Consume(ctx context.Context, amount int64, feature string) error {
	if amount <= 0 {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.fail("consume", apierror.Validation("amount must be positive", fmt.Sprint(amount)))
	}

	s.mu.Lock()
	s.balance.Speculate(s.balance.Get() - amount)
	s.balanceGen++
	s.inflight++
	s.mu.Unlock()

	account, err := s.api.ConsumeTokens(ctx, amount, feature)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err != nil {
		s.balance.Fail()
		return s.fail("consume", err)
	}
	s.applyAccount(account)
	return nil
}

func (s *Store) UsagePercentage() float64 {
	return s.Snapshot().UsagePercentage()
}

func (s *Store) RawUsageRatio() float64 {
	return s.Snapshot().RawUsageRatio()
}

func (s *Store) IsLowBalance() bool {
	return s.Snapshot().IsLowBalance()
}

func (s *Store) EstimatedDaysLeft() Runway {
	return s.Snapshot().EstimatedDaysLeft()
}

// WindowDays is the billing period in days.
func (s *Store) WindowDays() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windowDays
}

func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = ""
}

func (s *Store) applyAccount(account model.TokenAccount) {
	s.balance.Confirm(account.Balance)
	s.used = account.UsedTokens
	s.total = account.TotalTokens
}

// fail must be called with mu held.
func (s *Store) fail(op string, err error) error {
	s.err = apierror.DisplayMessage(err)
	s.log.Warn("token operation failed", "op", op, "error", err)
	return err
}
