package state

import (
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"investbot/types"
)

const validStateJSON = `{
	"last_funding_date": "2026-08-29T14:30:00Z",
	"reference_equities": {"AAPL": 1200.50, "MSFT": 800},
	"ideal_allocations": {"AAPL": 0.6, "MSFT": 0.4},
	"target_investment_equity_ratio": 1.25,
	"target_equity": 50000,
	"finish_date": "2027-08-29T00:00:00Z"
}`

func TestParse(t *testing.T) {
	st, err := Parse([]byte(validStateJSON))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 8, 29, 14, 30, 0, 0, time.UTC), st.LastFundingDate)
	assert.Equal(t, time.Date(2027, 8, 29, 0, 0, 0, 0, time.UTC), st.FinishDate)
	assert.True(t, st.ReferenceEquities["AAPL"].Equal(decimal.NewFromFloat(1200.50)))
	assert.True(t, st.IdealAllocations["MSFT"].Equal(decimal.NewFromFloat(0.4)))
	assert.True(t, st.TargetInvestmentEquityRatio.Equal(decimal.NewFromFloat(1.25)))
	assert.True(t, st.TargetEquity.Equal(decimal.NewFromInt(50000)))
}

func TestParseRejectsInvalidStates(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "not json",
			raw:  `{`,
		},
		{
			name: "allocations sum below one",
			raw: `{
				"reference_equities": {},
				"ideal_allocations": {"AAPL": 0.6, "MSFT": 0.3},
				"target_investment_equity_ratio": 1.0,
				"finish_date": "2027-08-29T00:00:00Z"
			}`,
		},
		{
			name: "allocations sum above one",
			raw: `{
				"reference_equities": {},
				"ideal_allocations": {"AAPL": 0.7, "MSFT": 0.4},
				"target_investment_equity_ratio": 1.0,
				"finish_date": "2027-08-29T00:00:00Z"
			}`,
		},
		{
			name: "negative allocation",
			raw: `{
				"reference_equities": {},
				"ideal_allocations": {"AAPL": 1.5, "MSFT": -0.5},
				"target_investment_equity_ratio": 1.0,
				"finish_date": "2027-08-29T00:00:00Z"
			}`,
		},
		{
			name: "empty allocations",
			raw: `{
				"reference_equities": {},
				"ideal_allocations": {},
				"target_investment_equity_ratio": 1.0,
				"finish_date": "2027-08-29T00:00:00Z"
			}`,
		},
		{
			name: "zero ratio",
			raw: `{
				"reference_equities": {},
				"ideal_allocations": {"AAPL": 1.0},
				"target_investment_equity_ratio": 0,
				"finish_date": "2027-08-29T00:00:00Z"
			}`,
		},
		{
			name: "negative reference equity",
			raw: `{
				"reference_equities": {"AAPL": -5},
				"ideal_allocations": {"AAPL": 1.0},
				"target_investment_equity_ratio": 1.0,
				"finish_date": "2027-08-29T00:00:00Z"
			}`,
		},
		{
			name: "unparsable finish date",
			raw: `{
				"reference_equities": {},
				"ideal_allocations": {"AAPL": 1.0},
				"target_investment_equity_ratio": 1.0,
				"finish_date": "next year"
			}`,
		},
		{
			name: "finish date not after last funding date",
			raw: `{
				"last_funding_date": "2027-08-29T00:00:00Z",
				"reference_equities": {},
				"ideal_allocations": {"AAPL": 1.0},
				"target_investment_equity_ratio": 1.0,
				"finish_date": "2027-08-29T00:00:00Z"
			}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			var cfgErr *ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestParseToleratesTinyAllocationDrift(t *testing.T) {
	raw := `{
		"reference_equities": {},
		"ideal_allocations": {"AAPL": 0.3333333, "MSFT": 0.3333333, "VOO": 0.3333334},
		"target_investment_equity_ratio": 1.0,
		"finish_date": "2027-08-29T00:00:00Z"
	}`
	_, err := Parse([]byte(raw))
	assert.NoError(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	st, err := Parse([]byte(validStateJSON))
	require.NoError(t, err)
	require.NoError(t, Save(path, st))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.True(t, loaded.LastFundingDate.Equal(st.LastFundingDate))
	assert.True(t, loaded.FinishDate.Equal(st.FinishDate))
	assert.True(t, loaded.TargetInvestmentEquityRatio.Equal(st.TargetInvestmentEquityRatio))
	assert.True(t, loaded.TargetEquity.Equal(st.TargetEquity))
	require.Len(t, loaded.ReferenceEquities, len(st.ReferenceEquities))
	for ticker, want := range st.ReferenceEquities {
		assert.True(t, loaded.ReferenceEquities[ticker].Equal(want), "reference %s", ticker)
	}
	require.Len(t, loaded.IdealAllocations, len(st.IdealAllocations))
	for ticker, want := range st.IdealAllocations {
		assert.True(t, loaded.IdealAllocations[ticker].Equal(want), "allocation %s", ticker)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestWithFundingDateDoesNotMutate(t *testing.T) {
	st, err := Parse([]byte(validStateJSON))
	require.NoError(t, err)

	before := st.LastFundingDate
	now := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)
	updated := st.WithFundingDate(now)

	assert.True(t, st.LastFundingDate.Equal(before))
	assert.True(t, updated.LastFundingDate.Equal(now))

	updated.IdealAllocations["AAPL"] = decimal.Zero
	assert.True(t, st.IdealAllocations["AAPL"].Equal(decimal.NewFromFloat(0.6)))
}

func TestBootstrap(t *testing.T) {
	now := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)
	snap := types.AccountSnapshot{
		Cash:        decimal.NewFromInt(500),
		TotalEquity: decimal.NewFromInt(1500),
		Positions: map[string]types.PositionSnapshot{
			"AAPL": {Symbol: "AAPL", MarketValue: decimal.NewFromInt(600)},
			"MSFT": {Symbol: "MSFT", MarketValue: decimal.NewFromInt(400)},
		},
	}

	st, err := Bootstrap(snap, decimal.NewFromFloat(1.2), 365, now)
	require.NoError(t, err)

	assert.True(t, st.LastFundingDate.IsZero())
	assert.True(t, st.ReferenceEquities["AAPL"].Equal(decimal.NewFromInt(600)))
	assert.True(t, st.IdealAllocations["AAPL"].Equal(decimal.NewFromFloat(0.6)))
	assert.True(t, st.IdealAllocations["MSFT"].Equal(decimal.NewFromFloat(0.4)))
	assert.True(t, st.TargetEquity.Equal(decimal.NewFromInt(1800)))
	assert.Equal(t, now.AddDate(0, 0, 365), st.FinishDate)
}

func TestBootstrapNeedsPositions(t *testing.T) {
	snap := types.AccountSnapshot{TotalEquity: decimal.NewFromInt(1000)}
	_, err := Bootstrap(snap, decimal.NewFromInt(1), 365, time.Now())
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
