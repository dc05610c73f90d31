package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"investbot/types"
)

type orderRequest struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	ClientOrderID string `json:"client_order_id"`
}

// PlaceBuyOrder submits a whole-share market day buy. Failures come back as
// *OrderError and never abort the run; a 404 means the broker does not trade
// the symbol and wraps types.ErrTickerUnavailable.
func (c *Client) PlaceBuyOrder(ctx context.Context, ticker string, quantity int64) error {
	body, err := json.Marshal(orderRequest{
		Symbol:        ticker,
		Qty:           strconv.FormatInt(quantity, 10),
		Side:          "buy",
		Type:          "market",
		TimeInForce:   "day",
		ClientOrderID: c.newOrderID(),
	})
	if err != nil {
		return &OrderError{Ticker: ticker, Err: err}
	}

	status, err := c.do(ctx, "POST", "/v2/orders", nil, body, nil)
	if err != nil {
		if status == http.StatusNotFound {
			return &OrderError{Ticker: ticker, StatusCode: status, Err: types.ErrTickerUnavailable}
		}
		return &OrderError{Ticker: ticker, StatusCode: status, Err: err}
	}
	return nil
}
