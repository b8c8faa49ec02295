package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/fundfolio/backend/src/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func buy(date time.Time, units, price, tax float64) models.Transaction {
	return models.Transaction{Date: date, Kind: models.TxnBuy, Units: units, Price: price, Tax: tax}
}

func sell(date time.Time, units, price, tax float64) models.Transaction {
	return models.Transaction{Date: date, Kind: models.TxnSell, Units: units, Price: price, Tax: tax}
}

func TestFIFOAcrossLots(t *testing.T) {
	h := &models.Holding{
		ISIN:  "INF000TEST01",
		Folio: "111",
		Transactions: []models.Transaction{
			buy(day(2023, time.January, 1), 100, 10, 0),
			buy(day(2023, time.January, 10), 100, 12, 0),
			sell(day(2024, time.February, 5), 150, 20, 0),
		},
	}
	NewLotProcessor().Process(h)

	require.False(t, h.IsDefective())
	assert.Equal(t, 50.0, h.NetUnits)
	require.Len(t, h.MatchedLots, 2)

	first, second := h.MatchedLots[0], h.MatchedLots[1]
	assert.Equal(t, 100.0, first.Units)
	assert.Equal(t, 10.0, first.BuyPrice)
	assert.InDelta(t, 1000.0, first.Gain, 1e-9)
	assert.Equal(t, 50.0, second.Units)
	assert.Equal(t, 12.0, second.BuyPrice)
	assert.InDelta(t, 400.0, second.Gain, 1e-9)

	assert.InDelta(t, 1400.0, first.Gain+second.Gain, 1e-9)

	// The day-1 lot is fully consumed, the day-10 lot half consumed.
	assert.Equal(t, 0.0, h.BuyLots[0].RemainingUnits)
	assert.Equal(t, 50.0, h.BuyLots[1].RemainingUnits)
	assert.Equal(t, 50.0, h.BuyLots[1].SoldUnits())
}

func TestSellWithoutAnyBuys(t *testing.T) {
	h := &models.Holding{
		Transactions: []models.Transaction{
			sell(day(2023, time.June, 1), 60, 15, 0),
		},
	}
	NewLotProcessor().Process(h)

	require.True(t, h.IsDefective())
	assert.Equal(t, models.DefectNoBuyLots, h.Defect.Kind)
	assert.Empty(t, h.MatchedLots)
}

func TestBuyListOverflow(t *testing.T) {
	h := &models.Holding{
		Transactions: []models.Transaction{
			buy(day(2023, time.January, 1), 50, 10, 0),
			sell(day(2023, time.June, 1), 60, 15, 0),
		},
	}
	NewLotProcessor().Process(h)

	require.True(t, h.IsDefective())
	assert.Equal(t, models.DefectBuyListOverflow, h.Defect.Kind)
}

func TestImproperOrdering(t *testing.T) {
	h := &models.Holding{
		Transactions: []models.Transaction{
			sell(day(2023, time.January, 1), 50, 15, 0),
			buy(day(2023, time.February, 1), 100, 10, 0),
		},
	}
	NewLotProcessor().Process(h)

	require.True(t, h.IsDefective())
	assert.Equal(t, models.DefectImproperOrdering, h.Defect.Kind)
}

func TestNegativeRunningBalance(t *testing.T) {
	// Same-day matching succeeds but the cumulative balance dips negative.
	h := &models.Holding{
		Transactions: []models.Transaction{
			buy(day(2023, time.January, 1), 100, 10, 0),
			sell(day(2023, time.January, 1), 150, 10, 0),
			buy(day(2023, time.January, 1), 50, 10, 0),
		},
	}
	NewLotProcessor().Process(h)

	require.True(t, h.IsDefective())
	assert.Equal(t, models.DefectNegativeBalance, h.Defect.Kind)
}

func TestChargeProration(t *testing.T) {
	h := &models.Holding{
		Transactions: []models.Transaction{
			buy(day(2023, time.January, 1), 100, 10, 5),
			sell(day(2023, time.June, 1), 40, 20, 2),
		},
	}
	NewLotProcessor().Process(h)

	require.False(t, h.IsDefective())
	require.Len(t, h.MatchedLots, 1)
	ml := h.MatchedLots[0]
	assert.InDelta(t, 2.0, ml.StampDuty, 1e-9) // 5 * 40/100
	assert.InDelta(t, 2.0, ml.STT, 1e-9)       // sell fully matched
	assert.InDelta(t, 402.0, ml.BuyAmount, 1e-9)
	assert.InDelta(t, 798.0, ml.SellAmount, 1e-9)
	assert.InDelta(t, 396.0, ml.Gain, 1e-9)
}

func TestHoldingDaysAndBucketsStartUnclassified(t *testing.T) {
	h := &models.Holding{
		Transactions: []models.Transaction{
			buy(day(2023, time.January, 1), 10, 10, 0),
			sell(day(2024, time.January, 1), 10, 20, 0),
		},
	}
	NewLotProcessor().Process(h)

	require.Len(t, h.MatchedLots, 1)
	assert.Equal(t, 365, h.MatchedLots[0].HoldingDays)
	assert.Equal(t, models.BucketUnclassified, h.MatchedLots[0].Bucket)
}

func TestOneSellSpansManyLotsAndViceVersa(t *testing.T) {
	h := &models.Holding{
		Transactions: []models.Transaction{
			buy(day(2023, time.January, 1), 30, 10, 0),
			buy(day(2023, time.February, 1), 30, 11, 0),
			buy(day(2023, time.March, 1), 30, 12, 0),
			sell(day(2023, time.June, 1), 70, 15, 0),
			sell(day(2023, time.July, 1), 10, 16, 0),
		},
	}
	NewLotProcessor().Process(h)

	require.False(t, h.IsDefective())
	require.Len(t, h.MatchedLots, 4)
	assert.Equal(t, 30.0, h.MatchedLots[0].Units)
	assert.Equal(t, 30.0, h.MatchedLots[1].Units)
	assert.Equal(t, 10.0, h.MatchedLots[2].Units)
	assert.Equal(t, 10.0, h.MatchedLots[3].Units)
	assert.Equal(t, 10.0, h.NetUnits)
	assert.Equal(t, 10.0, h.BuyLots[2].RemainingUnits)
}

func TestProcessIsIdempotent(t *testing.T) {
	txns := []models.Transaction{
		buy(day(2023, time.January, 1), 100, 10, 0),
		buy(day(2023, time.January, 10), 100, 12, 0),
		sell(day(2024, time.February, 5), 150, 20, 0),
	}
	h := &models.Holding{Transactions: txns}
	p := NewLotProcessor()

	p.Process(h)
	firstLots := append([]models.MatchedLot(nil), h.MatchedLots...)
	firstNet := h.NetUnits

	p.Process(h)
	assert.Equal(t, firstLots, h.MatchedLots)
	assert.Equal(t, firstNet, h.NetUnits)
}

func TestFractionalUnitsRounding(t *testing.T) {
	h := &models.Holding{
		Transactions: []models.Transaction{
			buy(day(2023, time.January, 1), 33.3333, 30, 0),
			buy(day(2023, time.February, 1), 33.3334, 30, 0),
			sell(day(2023, time.December, 1), 66.6667, 45, 0),
		},
	}
	NewLotProcessor().Process(h)

	require.False(t, h.IsDefective())
	assert.Equal(t, 0.0, h.NetUnits)
	require.Len(t, h.MatchedLots, 2)
	assert.Equal(t, 0.0, h.BuyLots[0].RemainingUnits)
	assert.Equal(t, 0.0, h.BuyLots[1].RemainingUnits)
}

func TestZeroQuantityTransactionsMatchNothing(t *testing.T) {
	h := &models.Holding{
		Transactions: []models.Transaction{
			buy(day(2023, time.January, 1), 100, 10, 0),
			sell(day(2023, time.June, 1), 0, 20, 0),
		},
	}
	NewLotProcessor().Process(h)

	require.False(t, h.IsDefective())
	assert.Empty(t, h.MatchedLots)
	assert.Equal(t, 100.0, h.NetUnits)

	// A zero-unit buy lot is skipped over, never matched against.
	h = &models.Holding{
		Transactions: []models.Transaction{
			buy(day(2023, time.January, 1), 0, 10, 0),
			buy(day(2023, time.February, 1), 100, 12, 0),
			sell(day(2023, time.June, 1), 50, 20, 0),
		},
	}
	NewLotProcessor().Process(h)

	require.False(t, h.IsDefective())
	require.Len(t, h.MatchedLots, 1)
	assert.Greater(t, h.MatchedLots[0].Units, 0.0)
	assert.Equal(t, 1, h.MatchedLots[0].BuyIndex)
	assert.Equal(t, 12.0, h.MatchedLots[0].BuyPrice)
}
