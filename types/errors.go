package types

import "errors"

// ErrTickerUnavailable marks an order failure caused by the broker not
// knowing or not trading the symbol. The engine drops the ticker for the
// current run only.
var ErrTickerUnavailable = errors.New("ticker unavailable")
