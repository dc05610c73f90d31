package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"investbot/internal/state"
)

// DailyBudget returns the cash to deploy today so the program sleeve reaches
// the frozen target by the finish date. The straight line from "program
// equity now" to "target at finish" is re-derived on every run, so missed
// days, market drift and manual deposits are absorbed instead of compounding.
//
// The result is never negative: once the target is met or exceeded the
// budget is zero, and on or after the finish date the whole remainder is due
// at once (remaining days clamp to 1).
func DailyBudget(st state.State, programEquity decimal.Decimal, now time.Time) decimal.Decimal {
	remaining := st.TargetEquity.Sub(programEquity)
	if !remaining.IsPositive() {
		return decimal.Zero
	}
	return remaining.Div(decimal.NewFromInt(wholeDaysUntil(now, st.FinishDate)))
}

// wholeDaysUntil floors at 1 so pacing never divides by zero or turns
// negative once the finish date has arrived.
func wholeDaysUntil(now, finish time.Time) int64 {
	days := int64(finish.Sub(now).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}
