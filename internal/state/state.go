// Package state holds the persisted portfolio configuration: the frozen
// reference holdings, the ideal allocation targets and the pacing horizon.
// The engine reads it at the start of every run and writes back only the
// funding date.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"investbot/types"
)

// allocSumTolerance bounds how far the ideal allocation fractions may drift
// from summing to exactly 1.
const allocSumTolerance = 1e-6

// ConfigError reports a malformed or invariant-violating state file. It is
// fatal: no orders are placed and the file is left untouched.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("portfolio state: %s: %s", e.Field, e.Reason)
}

func configErrf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// State is the parsed, validated portfolio configuration.
//
// ReferenceEquities is a frozen snapshot of the dollar value of each position
// the user held before the engine's first run; the engine never updates it.
// TargetEquity is the fixed dollar figure the program-managed sleeve should
// reach by FinishDate; it is derived once, at state creation, and zero means
// "not yet derived" (a hand-seeded file, frozen on the next run).
type State struct {
	LastFundingDate             time.Time
	ReferenceEquities           map[string]decimal.Decimal
	IdealAllocations            map[string]decimal.Decimal
	TargetInvestmentEquityRatio decimal.Decimal
	TargetEquity                decimal.Decimal
	FinishDate                  time.Time
}

// stateFile is the on-disk schema. Values stay as plain JSON numbers so that
// a load/save cycle reproduces a user-edited file.
type stateFile struct {
	LastFundingDate             *string            `json:"last_funding_date"`
	ReferenceEquities           map[string]float64 `json:"reference_equities"`
	IdealAllocations            map[string]float64 `json:"ideal_allocations"`
	TargetInvestmentEquityRatio float64            `json:"target_investment_equity_ratio"`
	TargetEquity                float64            `json:"target_equity,omitempty"`
	FinishDate                  string             `json:"finish_date"`
}

// Parse decodes and validates a raw state file.
func Parse(raw []byte) (State, error) {
	var f stateFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return State{}, configErrf("json", "decode: %v", err)
	}

	var st State
	if f.LastFundingDate != nil {
		t, err := time.Parse(time.RFC3339, *f.LastFundingDate)
		if err != nil {
			return State{}, configErrf("last_funding_date", "parse %q: %v", *f.LastFundingDate, err)
		}
		st.LastFundingDate = t
	}
	finish, err := time.Parse(time.RFC3339, f.FinishDate)
	if err != nil {
		return State{}, configErrf("finish_date", "parse %q: %v", f.FinishDate, err)
	}
	st.FinishDate = finish

	st.ReferenceEquities = make(map[string]decimal.Decimal, len(f.ReferenceEquities))
	for ticker, v := range f.ReferenceEquities {
		if v < 0 {
			return State{}, configErrf("reference_equities", "%s: negative value %v", ticker, v)
		}
		st.ReferenceEquities[ticker] = decimal.NewFromFloat(v)
	}

	st.IdealAllocations = make(map[string]decimal.Decimal, len(f.IdealAllocations))
	for ticker, v := range f.IdealAllocations {
		st.IdealAllocations[ticker] = decimal.NewFromFloat(v)
	}

	st.TargetInvestmentEquityRatio = decimal.NewFromFloat(f.TargetInvestmentEquityRatio)
	st.TargetEquity = decimal.NewFromFloat(f.TargetEquity)

	if err := st.validate(); err != nil {
		return State{}, err
	}
	return st, nil
}

func (s State) validate() error {
	if len(s.IdealAllocations) == 0 {
		return configErrf("ideal_allocations", "empty")
	}
	sum := decimal.Zero
	for ticker, frac := range s.IdealAllocations {
		if frac.IsNegative() {
			return configErrf("ideal_allocations", "%s: negative fraction %s", ticker, frac)
		}
		if frac.GreaterThan(decimal.NewFromInt(1)) {
			return configErrf("ideal_allocations", "%s: fraction %s exceeds 1", ticker, frac)
		}
		sum = sum.Add(frac)
	}
	drift := sum.Sub(decimal.NewFromInt(1)).Abs()
	if drift.GreaterThan(decimal.NewFromFloat(allocSumTolerance)) {
		return configErrf("ideal_allocations", "fractions sum to %s, want 1.0", sum)
	}
	if !s.TargetInvestmentEquityRatio.IsPositive() {
		return configErrf("target_investment_equity_ratio", "must be > 0, got %s", s.TargetInvestmentEquityRatio)
	}
	if s.TargetEquity.IsNegative() {
		return configErrf("target_equity", "negative value %s", s.TargetEquity)
	}
	if s.FinishDate.IsZero() {
		return configErrf("finish_date", "missing")
	}
	if !s.LastFundingDate.IsZero() && !s.FinishDate.After(s.LastFundingDate) {
		return configErrf("finish_date", "%s is not after last funding date %s",
			s.FinishDate.Format(time.RFC3339), s.LastFundingDate.Format(time.RFC3339))
	}
	return nil
}

// Load reads and parses the state file at path. A missing file is reported
// with the underlying fs error so callers can bootstrap instead.
func Load(path string) (State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return State{}, fmt.Errorf("read state file: %w", err)
	}
	return Parse(raw)
}

// Save writes the state atomically (temp file in the same directory, then
// rename).
func Save(path string, s State) error {
	f := stateFile{
		ReferenceEquities:           make(map[string]float64, len(s.ReferenceEquities)),
		IdealAllocations:            make(map[string]float64, len(s.IdealAllocations)),
		TargetInvestmentEquityRatio: s.TargetInvestmentEquityRatio.InexactFloat64(),
		TargetEquity:                s.TargetEquity.InexactFloat64(),
		FinishDate:                  s.FinishDate.Format(time.RFC3339),
	}
	if !s.LastFundingDate.IsZero() {
		lfd := s.LastFundingDate.Format(time.RFC3339)
		f.LastFundingDate = &lfd
	}
	for ticker, v := range s.ReferenceEquities {
		f.ReferenceEquities[ticker] = v.InexactFloat64()
	}
	for ticker, v := range s.IdealAllocations {
		f.IdealAllocations[ticker] = v.InexactFloat64()
	}

	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	raw = append(raw, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// FileStore binds Load and Save to a fixed path.
type FileStore struct {
	Path string
}

func (fs FileStore) Load() (State, error) { return Load(fs.Path) }
func (fs FileStore) Save(st State) error  { return Save(fs.Path, st) }

// WithFundingDate returns a copy with LastFundingDate set to now. The
// receiver is not mutated.
func (s State) WithFundingDate(now time.Time) State {
	out := s
	out.LastFundingDate = now
	out.ReferenceEquities = cloneDecimalMap(s.ReferenceEquities)
	out.IdealAllocations = cloneDecimalMap(s.IdealAllocations)
	return out
}

// WithTargetEquity returns a copy with the target figure frozen. Used once,
// when a hand-seeded file omitted target_equity.
func (s State) WithTargetEquity(target decimal.Decimal) State {
	out := s
	out.TargetEquity = target
	out.ReferenceEquities = cloneDecimalMap(s.ReferenceEquities)
	out.IdealAllocations = cloneDecimalMap(s.IdealAllocations)
	return out
}

func cloneDecimalMap(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Bootstrap builds a first-run state from the current account: reference
// equities snapshot the existing positions, ideal allocations mirror their
// current proportions, and the target equity is frozen at total equity times
// the configured ratio.
func Bootstrap(snap types.AccountSnapshot, ratio decimal.Decimal, horizonDays int, now time.Time) (State, error) {
	if !ratio.IsPositive() {
		return State{}, configErrf("target_investment_equity_ratio", "must be > 0, got %s", ratio)
	}
	if horizonDays < 1 {
		return State{}, configErrf("finish_date", "horizon must be at least 1 day, got %d", horizonDays)
	}

	totalInvested := decimal.Zero
	for _, pos := range snap.Positions {
		totalInvested = totalInvested.Add(pos.MarketValue)
	}
	if !totalInvested.IsPositive() {
		return State{}, configErrf("ideal_allocations", "no existing positions to seed allocations from")
	}

	refs := make(map[string]decimal.Decimal, len(snap.Positions))
	ideals := make(map[string]decimal.Decimal, len(snap.Positions))
	for sym, pos := range snap.Positions {
		refs[sym] = pos.MarketValue
		ideals[sym] = pos.MarketValue.Div(totalInvested)
	}

	st := State{
		ReferenceEquities:           refs,
		IdealAllocations:            ideals,
		TargetInvestmentEquityRatio: ratio,
		TargetEquity:                snap.TotalEquity.Mul(ratio),
		FinishDate:                  now.AddDate(0, 0, horizonDays),
	}
	if err := st.validate(); err != nil {
		return State{}, err
	}
	return st, nil
}
