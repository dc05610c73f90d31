package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a whole-share market buy selected by the optimizer. Quantity is
// always a positive integer; LastPrice is the quote the order was sized
// against, not a fill price.
type Order struct {
	Ticker    string
	Quantity  int64
	LastPrice decimal.Decimal
	CreatedAt time.Time
}

func NewOrder(ticker string, quantity int64, lastPrice decimal.Decimal, createdAt time.Time) Order {
	return Order{
		Ticker:    ticker,
		Quantity:  quantity,
		LastPrice: lastPrice,
		CreatedAt: createdAt,
	}
}

// Notional is the cash the order commits at its sizing price.
func (o Order) Notional() decimal.Decimal {
	return o.LastPrice.Mul(decimal.NewFromInt(o.Quantity))
}
