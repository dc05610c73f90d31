package engine

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"investbot/internal/state"
	"investbot/types"
)

// Orchestrator wires the pacing and allocation engine to the outside world:
// it reads state and a live account snapshot, computes today's purchases,
// submits them and persists the updated funding date. One Run is one
// complete, synchronous pass; invocations are expected to be externally
// serialized.
type Orchestrator struct {
	gateway brokerGateway
	store   stateStore
	journal runJournal
	log     zerolog.Logger
	now     func() time.Time

	bootstrapRatio   decimal.Decimal
	bootstrapHorizon int
}

// NewOrchestrator builds an orchestrator. journal may be nil to disable run
// journaling. bootstrapRatio and bootstrapHorizonDays are used only when the
// state store reports no existing state and a first-run state is seeded from
// the live account.
func NewOrchestrator(gateway brokerGateway, store stateStore, journal runJournal, bootstrapRatio decimal.Decimal, bootstrapHorizonDays int, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		gateway:          gateway,
		store:            store,
		journal:          journal,
		log:              log,
		now:              time.Now,
		bootstrapRatio:   bootstrapRatio,
		bootstrapHorizon: bootstrapHorizonDays,
	}
}

// Run executes one full pass: fetch -> pace -> optimize -> order -> persist.
// State and snapshot failures abort before any order is placed; per-order
// failures are logged and skipped, and the funding date is persisted even
// when every order fails (it records intent, not settlement).
func (o *Orchestrator) Run(ctx context.Context) error {
	now := o.now()

	st, err := o.store.Load()
	var snap types.AccountSnapshot
	switch {
	case err == nil:
		snap, err = o.gateway.GetAccountSnapshot(ctx)
		if err != nil {
			return err
		}
	case errors.Is(err, fs.ErrNotExist):
		st, snap, err = o.bootstrap(ctx, now)
		if err != nil {
			return err
		}
	default:
		return err
	}

	if st.TargetEquity.IsZero() {
		// Hand-seeded state without a target figure: freeze it now.
		st = st.WithTargetEquity(snap.TotalEquity.Mul(st.TargetInvestmentEquityRatio))
		o.log.Info().
			Str("target_equity", st.TargetEquity.StringFixed(2)).
			Msg("froze target equity from current account value")
	}

	book := BuildBook(snap, st)
	allocs := book.Allocations()
	for _, t := range book.Tickers {
		o.log.Debug().
			Str("ticker", t).
			Str("current", allocs[t].StringFixed(4)).
			Str("ideal", st.IdealAllocations[t].StringFixed(4)).
			Msg("program allocation")
	}

	budget := DailyBudget(st, book.ProgramEquity, now)
	o.log.Info().
		Str("program_equity", book.ProgramEquity.StringFixed(2)).
		Str("target_equity", st.TargetEquity.StringFixed(2)).
		Str("daily_budget", budget.StringFixed(2)).
		Msg("pacing computed")
	if budget.IsZero() {
		o.log.Info().Msg("target equity reached, nothing to buy")
	}

	orders := SelectPurchases(budget, book, st.IdealAllocations, now)
	orders = trimToCash(orders, snap.Cash, o.log)

	spent := decimal.Zero
	results := make([]types.OrderResult, 0, len(orders))
	for _, ord := range orders {
		status := types.OrderSubmitted
		switch err := o.gateway.PlaceBuyOrder(ctx, ord.Ticker, ord.Quantity); {
		case err == nil:
			spent = spent.Add(ord.Notional())
			o.log.Info().
				Str("ticker", ord.Ticker).
				Int64("quantity", ord.Quantity).
				Str("last_price", ord.LastPrice.StringFixed(2)).
				Msg("buy order submitted")
		case errors.Is(err, types.ErrTickerUnavailable):
			status = types.OrderSkipped
			o.log.Warn().Err(err).Str("ticker", ord.Ticker).Msg("ticker unavailable, skipped for this run")
		default:
			status = types.OrderFailed
			o.log.Error().Err(err).Str("ticker", ord.Ticker).Msg("order submission failed")
		}
		results = append(results, types.OrderResult{
			Ticker:    ord.Ticker,
			Quantity:  ord.Quantity,
			LastPrice: ord.LastPrice,
			Status:    status,
		})
	}

	if err := o.store.Save(st.WithFundingDate(now)); err != nil {
		return err
	}

	if o.journal != nil {
		rec := types.RunRecord{
			StartedAt:     now,
			ProgramEquity: book.ProgramEquity,
			Budget:        budget,
			Spent:         spent,
			Orders:        results,
		}
		if err := o.journal.RecordRun(ctx, rec); err != nil {
			o.log.Warn().Err(err).Msg("journal write failed")
		}
	}
	return nil
}

func (o *Orchestrator) bootstrap(ctx context.Context, now time.Time) (state.State, types.AccountSnapshot, error) {
	snap, err := o.gateway.GetAccountSnapshot(ctx)
	if err != nil {
		return state.State{}, types.AccountSnapshot{}, err
	}
	st, err := state.Bootstrap(snap, o.bootstrapRatio, o.bootstrapHorizon, now)
	if err != nil {
		return state.State{}, types.AccountSnapshot{}, err
	}
	if err := o.store.Save(st); err != nil {
		return state.State{}, types.AccountSnapshot{}, err
	}
	o.log.Info().
		Int("tickers", len(st.IdealAllocations)).
		Str("target_equity", st.TargetEquity.StringFixed(2)).
		Time("finish_date", st.FinishDate).
		Msg("seeded first-run state from current holdings")
	return st, snap, nil
}

// trimToCash drops shares from the most recently selected order until the
// total cost fits in the live cash balance. The optimizer already respects
// the budget, so this only fires when a stale quote moved under us between
// snapshot and selection.
func trimToCash(orders []types.Order, cash decimal.Decimal, log zerolog.Logger) []types.Order {
	total := decimal.Zero
	for _, ord := range orders {
		total = total.Add(ord.Notional())
	}
	for total.GreaterThan(cash) && len(orders) > 0 {
		last := &orders[len(orders)-1]
		last.Quantity--
		total = total.Sub(last.LastPrice)
		log.Warn().
			Str("ticker", last.Ticker).
			Msg("trimmed one share to fit available cash")
		if last.Quantity == 0 {
			orders = orders[:len(orders)-1]
		}
	}
	return orders
}
