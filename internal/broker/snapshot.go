package broker

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"investbot/types"
)

// Alpaca encodes every monetary field as a JSON string.
type accountResponse struct {
	Cash        string `json:"cash"`
	Equity      string `json:"equity"`
	BuyingPower string `json:"buying_power"`
}

type positionResponse struct {
	Symbol       string `json:"symbol"`
	Qty          string `json:"qty"`
	MarketValue  string `json:"market_value"`
	CurrentPrice string `json:"current_price"`
}

// GetAccountSnapshot fetches the account and open positions and assembles
// the live view the engine works from. Any failure is a *GatewayError.
func (c *Client) GetAccountSnapshot(ctx context.Context) (types.AccountSnapshot, error) {
	var account accountResponse
	if status, err := c.do(ctx, "GET", "/v2/account", nil, nil, &account); err != nil {
		return types.AccountSnapshot{}, &GatewayError{Op: "get account", StatusCode: status, Err: err}
	}

	var positions []positionResponse
	if status, err := c.do(ctx, "GET", "/v2/positions", nil, nil, &positions); err != nil {
		return types.AccountSnapshot{}, &GatewayError{Op: "get positions", StatusCode: status, Err: err}
	}

	snap := types.AccountSnapshot{
		Cash:        parseDecimal(account.Cash),
		TotalEquity: parseDecimal(account.Equity),
		BuyingPower: parseDecimal(account.BuyingPower),
		Positions:   make(map[string]types.PositionSnapshot, len(positions)),
		FetchedAt:   time.Now().UTC(),
	}
	for _, pos := range positions {
		snap.Positions[pos.Symbol] = types.PositionSnapshot{
			Symbol:      pos.Symbol,
			Quantity:    parseDecimal(pos.Qty),
			MarketValue: parseDecimal(pos.MarketValue),
			LastPrice:   parseDecimal(pos.CurrentPrice),
		}
	}
	c.log.Debug().
		Int("positions", len(snap.Positions)).
		Str("cash", snap.Cash.StringFixed(2)).
		Str("equity", snap.TotalEquity.StringFixed(2)).
		Msg("account snapshot fetched")
	return snap, nil
}

// parseDecimal tolerates empty and malformed values as zero; Alpaca omits
// market_value/current_price for some position states.
func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
