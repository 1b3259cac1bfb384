package tokens

import (
	"math"
	"strconv"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/internal/optimistic"
)

// State is a copy of the store. WindowDays is the billing period UsedTokens
// covers; HistoryDays is the range DailyUsage and Breakdown were fetched for.
type State struct {
	Balance             int64
	BalanceState        optimistic.State
	UsedTokens          int64
	TotalTokens         int64
	DailyUsage          []model.DailyUsage
	Breakdown           []model.UsageBreakdown
	LowBalanceThreshold int64
	WindowDays          int
	HistoryDays         int
	Loading             bool
	Error               string
}

// UsagePercentage is the share of the period allowance used, clamped to
// [0,100] for display.
func (st State) UsagePercentage() float64 {
	return model.ClampPercent(st.UsedTokens, st.TotalTokens)
}

// RawUsageRatio is UsedTokens/TotalTokens without clamping, so overage stays
// visible. It is 0 when there is no allowance.
func (st State) RawUsageRatio() float64 {
	if st.TotalTokens <= 0 {
		return 0
	}
	return float64(st.UsedTokens) / float64(st.TotalTokens)
}

func (st State) IsLowBalance() bool {
	return st.Balance < st.LowBalanceThreshold
}

// Runway is how long the balance lasts at the recent daily rate. With no
// recorded usage the runway is unbounded rather than a number.
type Runway struct {
	Days      float64
	Unbounded bool
}

func (r Runway) String() string {
	if r.Unbounded {
		return "∞"
	}
	return strconv.FormatFloat(r.Days, 'f', 1, 64)
}

// EstimatedDaysLeft divides the balance by UsedTokens spread over the billing
// window.
func (st State) EstimatedDaysLeft() Runway {
	if st.WindowDays <= 0 || st.UsedTokens <= 0 {
		return Runway{Unbounded: true}
	}

	rate := float64(st.UsedTokens) / float64(st.WindowDays)
	days := float64(st.Balance) / rate
	if math.IsNaN(days) || math.IsInf(days, 0) {
		return Runway{Unbounded: true}
	}
	return Runway{Days: math.Max(days, 0)}
}
