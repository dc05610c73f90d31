package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"investbot/internal/state"
	"investbot/types"
)

// Book is the program-owned view of the account: for every ticker in the
// allocation pool, the market value attributable to the engine's own
// purchases, with the frozen reference holdings subtracted out. Reference
// positions liquidated or shrunk externally floor at zero per ticker rather
// than dragging the others negative.
type Book struct {
	// ProgramEquity is the mark-to-market value of program-owned shares,
	// the sum of Values. Cash is not part of it.
	ProgramEquity decimal.Decimal
	Values        map[string]decimal.Decimal
	Prices        map[string]decimal.Decimal
	// Tickers is the allocation pool in sorted order; iteration over it is
	// what keeps the optimizer deterministic.
	Tickers []string
}

// BuildBook derives the program book from a live snapshot and the persisted
// state. Pool tickers with no open position carry a zero price; they become
// purchasable only once the broker reports a quote for them (they stay in
// the pool so their deficit is still visible in logs).
func BuildBook(snap types.AccountSnapshot, st state.State) Book {
	tickers := make([]string, 0, len(st.IdealAllocations))
	for t := range st.IdealAllocations {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	book := Book{
		ProgramEquity: decimal.Zero,
		Values:        make(map[string]decimal.Decimal, len(tickers)),
		Prices:        make(map[string]decimal.Decimal, len(tickers)),
		Tickers:       tickers,
	}
	for _, t := range tickers {
		value := decimal.Zero
		price := decimal.Zero
		if pos, held := snap.Positions[t]; held {
			price = pos.LastPrice
			value = pos.MarketValue.Sub(st.ReferenceEquities[t])
			if value.IsNegative() {
				value = decimal.Zero
			}
		}
		book.Values[t] = value
		book.Prices[t] = price
		book.ProgramEquity = book.ProgramEquity.Add(value)
	}
	return book
}

// Allocations returns the current program allocation fraction per pool
// ticker. All zero when the program owns nothing yet.
func (b Book) Allocations() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(b.Tickers))
	for _, t := range b.Tickers {
		if b.ProgramEquity.IsPositive() {
			out[t] = b.Values[t].Div(b.ProgramEquity)
		} else {
			out[t] = decimal.Zero
		}
	}
	return out
}
