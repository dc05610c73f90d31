package broker

import (
	"context"
	"errors"
	"net/url"
	"time"
)

// Session is one trading day from the broker's calendar.
type Session struct {
	Date  time.Time
	Open  time.Time
	Close time.Time
}

type calendarDay struct {
	Date  string `json:"date"`
	Open  string `json:"open"`
	Close string `json:"close"`
}

var errNoSessions = errors.New("no trading sessions returned")

// NextSession returns the first trading session on or after from. Calendar
// times are exchange-local (US/Eastern).
func (c *Client) NextSession(ctx context.Context, from time.Time) (Session, error) {
	eastern, err := time.LoadLocation("America/New_York")
	if err != nil {
		return Session{}, &GatewayError{Op: "load calendar timezone", Err: err}
	}
	from = from.In(eastern)

	query := url.Values{}
	query.Set("start", from.Format("2006-01-02"))
	query.Set("end", from.AddDate(0, 0, 7).Format("2006-01-02"))

	var days []calendarDay
	if status, err := c.do(ctx, "GET", "/v2/calendar", query, nil, &days); err != nil {
		return Session{}, &GatewayError{Op: "get calendar", StatusCode: status, Err: err}
	}
	if len(days) == 0 {
		return Session{}, &GatewayError{Op: "get calendar", Err: errNoSessions}
	}

	day := days[0]
	date, err := time.ParseInLocation("2006-01-02", day.Date, eastern)
	if err != nil {
		return Session{}, &GatewayError{Op: "get calendar", Err: err}
	}
	open, err := time.ParseInLocation("2006-01-02 15:04", day.Date+" "+day.Open, eastern)
	if err != nil {
		return Session{}, &GatewayError{Op: "get calendar", Err: err}
	}
	closeAt, err := time.ParseInLocation("2006-01-02 15:04", day.Date+" "+day.Close, eastern)
	if err != nil {
		return Session{}, &GatewayError{Op: "get calendar", Err: err}
	}
	return Session{Date: date, Open: open, Close: closeAt}, nil
}
