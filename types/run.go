package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order submission outcomes recorded in the run journal.
const (
	OrderSubmitted = "submitted"
	OrderFailed    = "failed"
	OrderSkipped   = "skipped"
)

// RunRecord summarizes one completed rebalance run for the journal.
type RunRecord struct {
	StartedAt     time.Time
	ProgramEquity decimal.Decimal
	Budget        decimal.Decimal
	Spent         decimal.Decimal
	Orders        []OrderResult
}

// OrderResult is the per-order outcome within a run.
type OrderResult struct {
	Ticker    string
	Quantity  int64
	LastPrice decimal.Decimal
	Status    string
}
