package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountSnapshot is the live account view fetched from the broker at the
// start of a run. It is never persisted.
type AccountSnapshot struct {
	Cash        decimal.Decimal
	TotalEquity decimal.Decimal
	BuyingPower decimal.Decimal
	Positions   map[string]PositionSnapshot
	FetchedAt   time.Time
}

type PositionSnapshot struct {
	Symbol      string
	Quantity    decimal.Decimal
	MarketValue decimal.Decimal
	LastPrice   decimal.Decimal
}
