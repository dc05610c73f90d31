package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"investbot/types"
)

// SelectPurchases spends budget on whole shares, one share at a time, always
// funding the ticker furthest below its ideal allocation. Buying a share
// grows the denominator for every ticker, so the deficits are recomputed
// after each pick. Ties go to the cheaper ticker, then to the lexicographic
// order of Book.Tickers, which makes identical inputs yield identical output.
//
// Tickers at or above their ideal allocation are never candidates; nothing
// is ever sold. The loop ends when no positive-deficit ticker is affordable.
// Shares are folded into one order per ticker, ordered by first purchase.
func SelectPurchases(budget decimal.Decimal, book Book, ideals map[string]decimal.Decimal, now time.Time) []types.Order {
	remaining := budget
	equity := book.ProgramEquity
	values := make(map[string]decimal.Decimal, len(book.Values))
	for t, v := range book.Values {
		values[t] = v
	}

	counts := make(map[string]int64)
	var sequence []string

	for {
		best := ""
		var bestDeficit, bestPrice decimal.Decimal
		for _, t := range book.Tickers {
			price := book.Prices[t]
			if !price.IsPositive() || price.GreaterThan(remaining) {
				continue
			}
			alloc := decimal.Zero
			if equity.IsPositive() {
				alloc = values[t].Div(equity)
			}
			deficit := ideals[t].Sub(alloc)
			if !deficit.IsPositive() {
				continue
			}
			if best == "" || deficit.GreaterThan(bestDeficit) ||
				(deficit.Equal(bestDeficit) && price.LessThan(bestPrice)) {
				best, bestDeficit, bestPrice = t, deficit, price
			}
		}
		if best == "" {
			break
		}

		if counts[best] == 0 {
			sequence = append(sequence, best)
		}
		counts[best]++
		values[best] = values[best].Add(bestPrice)
		equity = equity.Add(bestPrice)
		remaining = remaining.Sub(bestPrice)
	}

	orders := make([]types.Order, 0, len(sequence))
	for _, t := range sequence {
		orders = append(orders, types.NewOrder(t, counts[t], book.Prices[t], now))
	}
	return orders
}
