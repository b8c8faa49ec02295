package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/fundfolio/backend/src/models"
)

// partialHolding is a processed equity holding with one matched pair and one
// open remainder: buy 100@10 on 2023-01-01, sell 40@20 on 2023-06-01, valued
// at NAV 25 on 2024-01-01.
func partialHolding(t *testing.T) *models.Holding {
	t.Helper()
	h := &models.Holding{
		ISIN:       "INF000TEST10",
		Folio:      "777",
		SchemeName: "Test Equity Fund",
		Transactions: []models.Transaction{
			buy(day(2023, time.January, 1), 100, 10, 0),
			sell(day(2023, time.June, 1), 40, 20, 0),
		},
		Meta: equityMeta(),
	}
	NewLotProcessor().Process(h)
	require.False(t, h.IsDefective())

	classifier := NewTaxClassifier(stubFairValues{})
	for i := range h.MatchedLots {
		require.NoError(t, classifier.Classify(h, &h.MatchedLots[i]))
	}
	h.NAV = 25
	h.NAVDate = day(2024, time.January, 1)
	return h
}

func TestRealizedPnLAndBreakdown(t *testing.T) {
	h := partialHolding(t)
	p := NewReturnsProcessor()

	assert.InDelta(t, 400.0, p.RealizedPnL(h, time.Time{}, time.Time{}), 1e-9)

	b := p.RealizedBreakdown(h, time.Time{}, time.Time{})
	assert.InDelta(t, 400.0, b.STCG, 1e-9)
	assert.Zero(t, b.SlabRate)
	assert.Zero(t, b.LTCG)
	assert.InDelta(t, 400.0, b.Total(), 1e-9)
}

func TestRealizedPnLPeriodFilter(t *testing.T) {
	h := partialHolding(t)
	p := NewReturnsProcessor()

	// FY2023-24 contains the 2023-06-01 sale; FY2022-23 does not.
	assert.InDelta(t, 400.0, p.RealizedPnL(h, day(2023, time.April, 1), day(2024, time.March, 31)), 1e-9)
	assert.Zero(t, p.RealizedPnL(h, day(2022, time.April, 1), day(2023, time.March, 31)))
}

func TestUnrealizedPnL(t *testing.T) {
	h := partialHolding(t)
	p := NewReturnsProcessor()

	// 60 unsold units appreciated from 10 to 25.
	assert.InDelta(t, 900.0, p.UnrealizedPnL(h), 1e-9)

	// A year and a day after purchase: long term.
	b := p.UnrealizedBreakdown(h, NewTaxClassifier(stubFairValues{}))
	assert.InDelta(t, 900.0, b.LTCG, 1e-9)
	assert.Zero(t, b.STCG)
}

func TestUnrealizedPnLAmortizesCharges(t *testing.T) {
	h := &models.Holding{
		ISIN: "INF000TEST11",
		Transactions: []models.Transaction{
			buy(day(2023, time.January, 1), 100, 10, 10),
			sell(day(2023, time.June, 1), 40, 20, 0),
		},
		Meta: equityMeta(),
	}
	NewLotProcessor().Process(h)
	h.NAV = 25
	h.NAVDate = day(2024, time.January, 1)

	// 60/100 of the 10 stamp duty still attaches to the open units.
	assert.InDelta(t, 894.0, NewReturnsProcessor().UnrealizedPnL(h), 1e-9)
}

func TestCashFlowSeries(t *testing.T) {
	h := partialHolding(t)
	p := NewReturnsProcessor()

	realized := p.RealizedCashFlows(h, time.Time{}, time.Time{})
	require.Len(t, realized, 2)
	assert.InDelta(t, -400.0, realized[0].Amount, 1e-9)
	assert.InDelta(t, 800.0, realized[1].Amount, 1e-9)

	unrealized := p.UnrealizedCashFlows(h)
	require.Len(t, unrealized, 2)
	assert.InDelta(t, -600.0, unrealized[0].Amount, 1e-9)
	assert.Equal(t, h.NAVDate, unrealized[1].Date)
	assert.InDelta(t, 1500.0, unrealized[1].Amount, 1e-9)

	total := p.TotalCashFlows(h)
	assert.Len(t, total, 4)
}

func TestUnrealizedCashFlowsEmptyWhenFullyExited(t *testing.T) {
	h := &models.Holding{
		Transactions: []models.Transaction{
			buy(day(2023, time.January, 1), 100, 10, 0),
			sell(day(2023, time.June, 1), 100, 20, 0),
		},
		Meta: equityMeta(),
	}
	NewLotProcessor().Process(h)

	assert.Nil(t, NewReturnsProcessor().UnrealizedCashFlows(h))
}

func TestGainDetailsFinancialYearFilter(t *testing.T) {
	h := partialHolding(t)
	p := NewReturnsProcessor()

	all := p.GainDetails(h, "")
	require.Len(t, all, 1)
	assert.Equal(t, "FY2023-24", all[0].FinancialYear)
	assert.Equal(t, models.BucketSTCG, all[0].Bucket)
	assert.InDelta(t, 400.0, all[0].Gain, 1e-9)
	assert.Greater(t, all[0].CAGR, 0.0)

	assert.Empty(t, p.GainDetails(h, "FY2022-23"))
	assert.Len(t, p.GainDetails(h, "FY2023-24"), 1)
}

func TestOpenLotDetails(t *testing.T) {
	h := partialHolding(t)
	h.Meta.ExitLoadDays = 30

	details := NewReturnsProcessor().OpenLotDetails(h, NewTaxClassifier(stubFairValues{}))
	require.Len(t, details, 1)

	d := details[0]
	assert.InDelta(t, 60.0, d.RemainingUnits, 1e-9)
	assert.InDelta(t, 600.0, d.RemainingCost, 1e-9)
	assert.InDelta(t, 1500.0, d.CurrentValue, 1e-9)
	assert.InDelta(t, 900.0, d.UnrealizedGain, 1e-9)
	assert.Equal(t, models.BucketLTCG, d.Bucket)
	assert.Equal(t, day(2023, time.January, 31), d.LoadFreeFromDate)
	assert.Equal(t, day(2024, time.January, 1), d.LTCGFromDate)
	assert.Greater(t, d.CAGR, 0.0)
}

func TestCAGR(t *testing.T) {
	// Doubling over two years is roughly 41.4% a year.
	rate := CAGR(1000, 2000, day(2021, time.January, 1), day(2023, time.January, 1))
	assert.InDelta(t, 0.414, rate, 0.01)

	assert.Zero(t, CAGR(1000, 2000, day(2021, time.January, 1), day(2021, time.January, 1)))
	assert.Zero(t, CAGR(0, 2000, day(2021, time.January, 1), day(2023, time.January, 1)))
}
