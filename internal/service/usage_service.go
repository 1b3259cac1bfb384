package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-notes-workspace/internal/event"
	"go-notes-workspace/internal/model"
	"go-notes-workspace/pkg/apierror"
)

const (
	DefaultUsageDays = 30
	MaxUsageDays     = 365
	defaultFeature   = "general"
)

type UsageConfig struct {
	BillingPeriod       time.Duration
	LowBalanceThreshold int64
}

type UsageService struct {
	documents DocumentRepository
	users     UserRepository
	usage     UsageRepository
	bus       event.Bus
	cfg       UsageConfig
	now       func() time.Time
}

func NewUsageService(documents DocumentRepository, users UserRepository, usage UsageRepository, bus event.Bus, cfg UsageConfig) *UsageService {
	return &UsageService{
		documents: documents,
		users:     users,
		usage:     usage,
		bus:       bus,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *UsageService) StorageUsage(ctx context.Context, userID string) (model.StorageUsage, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.StorageUsage{}, err
	}

	used, err := s.documents.UsedBytes(ctx, userID)
	if err != nil {
		return model.StorageUsage{}, err
	}

	return model.NewStorageUsage(used, user.StorageQuota), nil
}

// Balance reports the spendable balance and the tokens used in the current
// billing period.
func (s *UsageService) Balance(ctx context.Context, userID string) (model.TokenAccount, error) {
	return s.usage.Account(ctx, userID, s.now().Add(-s.cfg.BillingPeriod))
}

// Daily returns one entry per UTC day of the window, oldest first; days
// without usage are reported as zero.
func (s *UsageService) Daily(ctx context.Context, userID string, days int) ([]model.DailyUsage, error) {
	days, err := usageWindow(days)
	if err != nil {
		return nil, err
	}

	since := s.windowStart(days)
	rows, err := s.usage.Daily(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	byDay := make(map[time.Time]int64, len(rows))
	for _, row := range rows {
		byDay[startOfDay(row.Date)] += row.Tokens
	}

	series := make([]model.DailyUsage, 0, days)
	for i := 0; i < days; i++ {
		day := since.AddDate(0, 0, i)
		series = append(series, model.DailyUsage{Date: day, Tokens: byDay[day]})
	}
	return series, nil
}

func (s *UsageService) Breakdown(ctx context.Context, userID string, days int) ([]model.UsageBreakdown, error) {
	days, err := usageWindow(days)
	if err != nil {
		return nil, err
	}

	rows, err := s.usage.ByFeature(ctx, userID, s.windowStart(days))
	if err != nil {
		return nil, err
	}

	var total int64
	for _, row := range rows {
		total += row.Tokens
	}
	for i := range rows {
		rows[i].Percentage = model.ClampPercent(rows[i].Tokens, total)
	}
	return rows, nil
}

// Consume debits amount tokens and returns the updated account. Crossing
// below the low-balance threshold notifies the user.
func (s *UsageService) Consume(ctx context.Context, userID string, req model.ConsumeTokensRequest) (model.TokenAccount, error) {
	if req.Amount <= 0 {
		return model.TokenAccount{}, apierror.Validation("amount must be positive", fmt.Sprint(req.Amount))
	}

	feature := FeatureName(req.Feature)

	before, err := s.Balance(ctx, userID)
	if err != nil {
		return model.TokenAccount{}, err
	}

	if err := s.usage.Consume(ctx, model.UsageEvent{
		UserID:    userID,
		Feature:   feature,
		Amount:    req.Amount,
		CreatedAt: s.now(),
	}); err != nil {
		return model.TokenAccount{}, err
	}

	account, err := s.Balance(ctx, userID)
	if err != nil {
		return model.TokenAccount{}, err
	}

	threshold := s.cfg.LowBalanceThreshold
	if before.Balance >= threshold && account.Balance < threshold {
		publish(s.bus, userID, model.NotificationTokensLow, "Token balance is low",
			fmt.Sprintf("%d tokens left", account.Balance), account)
	}
	return account, nil
}

func (s *UsageService) windowStart(days int) time.Time {
	return startOfDay(s.now()).AddDate(0, 0, -(days - 1))
}

func usageWindow(days int) (int, error) {
	if days == 0 {
		return DefaultUsageDays, nil
	}
	if days < 0 || days > MaxUsageDays {
		return 0, apierror.Validation("days must be between 1 and 365", fmt.Sprint(days))
	}
	return days, nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FeatureName normalizes the feature a usage event is booked against.
func FeatureName(raw string) string {
	feature := strings.TrimSpace(raw)
	if feature == "" {
		return defaultFeature
	}
	return feature
}
