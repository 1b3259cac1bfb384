package model

import "time"

type StorageUsage struct {
	UsedBytes  int64   `json:"used_bytes"`
	TotalBytes int64   `json:"total_bytes"`
	Percentage float64 `json:"percentage"`
}

// NewStorageUsage derives the display percentage, clamped to [0,100] so an
// account over its quota still renders as full.
func NewStorageUsage(used int64, total int64) StorageUsage {
	return StorageUsage{UsedBytes: used, TotalBytes: total, Percentage: ClampPercent(used, total)}
}

func ClampPercent(used int64, total int64) float64 {
	if total <= 0 {
		return 0
	}

	pct := float64(used) / float64(total) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// TokenAccount carries two independent counters: Balance is the lifetime
// spendable amount, UsedTokens resets with each billing period.
type TokenAccount struct {
	Balance     int64 `json:"balance"`
	UsedTokens  int64 `json:"used_tokens"`
	TotalTokens int64 `json:"total_tokens"`
}

type DailyUsage struct {
	Date   time.Time `json:"date"`
	Tokens int64     `json:"tokens"`
}

type UsageBreakdown struct {
	Feature    string  `json:"feature"`
	Tokens     int64   `json:"tokens"`
	Percentage float64 `json:"percentage"`
}

type ConsumeTokensRequest struct {
	Amount  int64  `json:"amount"`
	Feature string `json:"feature"`
}

type UsageEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Feature   string    `json:"feature"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}
