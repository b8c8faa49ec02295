package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/fundfolio/backend/src/models"
)

type stubFairValues map[string]float64

func (s stubFairValues) FairValueAtCutover(isin string) float64 { return s[isin] }

func equityMeta() models.SchemeMeta {
	m := models.SchemeMeta{UnderSTCG: true, UnderLTCG: true}
	m.ApplyDerived()
	return m
}

func hybridMeta() models.SchemeMeta {
	m := models.SchemeMeta{UnderASR: true, UnderLTCG: true}
	m.ApplyDerived()
	return m
}

func debtMeta() models.SchemeMeta {
	m := models.SchemeMeta{UnderASR: true}
	m.ApplyDerived()
	return m
}

func matchedLot(buyDate, sellDate time.Time, units, buyPrice, sellPrice float64) models.MatchedLot {
	buyAmount := buyPrice * units
	sellAmount := sellPrice * units
	return models.MatchedLot{
		Units:       units,
		BuyDate:     buyDate,
		SellDate:    sellDate,
		BuyPrice:    buyPrice,
		SellPrice:   sellPrice,
		BuyAmount:   buyAmount,
		SellAmount:  sellAmount,
		HoldingDays: int(sellDate.Sub(buyDate).Hours() / 24),
		Gain:        sellAmount - buyAmount,
		Bucket:      models.BucketUnclassified,
		TaxableGain: sellAmount - buyAmount,
	}
}

func TestDerivedThresholds(t *testing.T) {
	assert.Equal(t, models.LTCGDaysAfterSTCG, equityMeta().LTCGDays)
	assert.Equal(t, models.LTCGDaysAfterASR, hybridMeta().LTCGDays)
	assert.Equal(t, models.LTCGDaysSentinel, debtMeta().LTCGDays)

	// LTCG without slab rate implies STCG for the shorter period.
	m := models.SchemeMeta{UnderLTCG: true}
	m.ApplyDerived()
	assert.True(t, m.UnderSTCG)
}

func TestTaxationLabels(t *testing.T) {
	assert.Equal(t, "Equity", equityMeta().Taxation())
	assert.Equal(t, "Hybrid", hybridMeta().Taxation())
	assert.Equal(t, "Debt", debtMeta().Taxation())
}

func TestClassifyEquityShortAndLongTerm(t *testing.T) {
	c := NewTaxClassifier(stubFairValues{})
	h := &models.Holding{ISIN: "INF000TEST01", Meta: equityMeta()}

	short := matchedLot(day(2023, time.January, 1), day(2023, time.June, 1), 10, 10, 20)
	require.NoError(t, c.Classify(h, &short))
	assert.Equal(t, models.BucketSTCG, short.Bucket)
	assert.InDelta(t, 100.0, short.TaxableGain, 1e-9)

	long := matchedLot(day(2023, time.January, 1), day(2024, time.January, 1), 10, 10, 20)
	require.NoError(t, c.Classify(h, &long))
	assert.Equal(t, models.BucketLTCG, long.Bucket)
	assert.InDelta(t, 100.0, long.TaxableGain, 1e-9)
}

func TestClassifyHybridThresholds(t *testing.T) {
	c := NewTaxClassifier(stubFairValues{})
	h := &models.Holding{ISIN: "INF000TEST02", Meta: hybridMeta()}

	under := matchedLot(day(2022, time.January, 1), day(2023, time.February, 1), 10, 10, 20)
	require.NoError(t, c.Classify(h, &under))
	assert.Equal(t, models.BucketSlabRate, under.Bucket)

	over := matchedLot(day(2021, time.January, 1), day(2023, time.June, 1), 10, 10, 20)
	require.NoError(t, c.Classify(h, &over))
	assert.Equal(t, models.BucketLTCG, over.Bucket)
}

func TestClassifyDebtAlwaysSlabRate(t *testing.T) {
	c := NewTaxClassifier(stubFairValues{})
	h := &models.Holding{ISIN: "INF000TEST03", Meta: debtMeta()}

	ml := matchedLot(day(2015, time.January, 1), day(2024, time.January, 1), 10, 10, 20)
	require.NoError(t, c.Classify(h, &ml))
	assert.Equal(t, models.BucketSlabRate, ml.Bucket)
}

func TestGrandfatheredDeemedCost(t *testing.T) {
	c := NewTaxClassifier(stubFairValues{"INF000TEST04": 15})
	h := &models.Holding{ISIN: "INF000TEST04", Meta: equityMeta()}

	ml := matchedLot(day(2017, time.June, 1), day(2020, time.January, 1), 200, 10, 20)
	require.NoError(t, c.Classify(h, &ml))
	assert.Equal(t, models.BucketLTCG, ml.Bucket)
	// deemed cost = max(10, min(20, 15)) = 15
	assert.InDelta(t, 1000.0, ml.TaxableGain, 1e-9)
	assert.InDelta(t, 2000.0, ml.Gain, 1e-9) // raw gain untouched
}

func TestGrandfatheringDeemedCostBounds(t *testing.T) {
	h := &models.Holding{ISIN: "INF000TEST04", Meta: equityMeta()}

	// Fair value above sell price clamps to the sell price: taxable gain 0.
	c := NewTaxClassifier(stubFairValues{"INF000TEST04": 30})
	ml := matchedLot(day(2017, time.June, 1), day(2020, time.January, 1), 100, 10, 20)
	require.NoError(t, c.Classify(h, &ml))
	assert.InDelta(t, 0.0, ml.TaxableGain, 1e-9)

	// Fair value below buy price keeps the real cost.
	c = NewTaxClassifier(stubFairValues{"INF000TEST04": 5})
	ml = matchedLot(day(2017, time.June, 1), day(2020, time.January, 1), 100, 10, 20)
	require.NoError(t, c.Classify(h, &ml))
	assert.InDelta(t, 1000.0, ml.TaxableGain, 1e-9)
}

func TestNoGrandfatheringCases(t *testing.T) {
	h := &models.Holding{ISIN: "INF000TEST05", Meta: equityMeta()}

	// Bought after the cutover.
	c := NewTaxClassifier(stubFairValues{"INF000TEST05": 15})
	ml := matchedLot(day(2018, time.June, 1), day(2020, time.January, 1), 100, 10, 20)
	require.NoError(t, c.Classify(h, &ml))
	assert.InDelta(t, 1000.0, ml.TaxableGain, 1e-9)

	// No fair value data: 0 means unknown, never a real price.
	c = NewTaxClassifier(stubFairValues{})
	ml = matchedLot(day(2017, time.June, 1), day(2020, time.January, 1), 100, 10, 20)
	require.NoError(t, c.Classify(h, &ml))
	assert.InDelta(t, 1000.0, ml.TaxableGain, 1e-9)

	// Hybrid schemes are outside the equity grandfathering rule.
	hybrid := &models.Holding{ISIN: "INF000TEST06", Meta: hybridMeta()}
	c = NewTaxClassifier(stubFairValues{"INF000TEST06": 15})
	ml = matchedLot(day(2017, time.June, 1), day(2020, time.June, 1), 100, 10, 20)
	require.NoError(t, c.Classify(hybrid, &ml))
	assert.Equal(t, models.BucketLTCG, ml.Bucket)
	assert.InDelta(t, 1000.0, ml.TaxableGain, 1e-9)
}

func TestUnclassifiedGainIsAnError(t *testing.T) {
	c := NewTaxClassifier(stubFairValues{})
	h := &models.Holding{ISIN: "INF000TEST07", Folio: "222", Meta: models.SchemeMeta{}}
	h.Meta.ApplyDerived()

	ml := matchedLot(day(2023, time.January, 1), day(2023, time.June, 1), 10, 10, 20)
	err := c.Classify(h, &ml)
	require.Error(t, err)
	assert.Equal(t, models.BucketUnclassified, ml.Bucket)

	var ue *UnclassifiedGainError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "INF000TEST07", ue.ISIN)
}

func TestClassifyOpenLot(t *testing.T) {
	c := NewTaxClassifier(stubFairValues{})
	lot := models.BuyLot{
		Txn:            models.Transaction{Date: day(2023, time.January, 1), Kind: models.TxnBuy, Units: 10, Price: 10},
		RemainingUnits: 10,
	}

	equity := &models.Holding{Meta: equityMeta(), NAVDate: day(2023, time.June, 1)}
	assert.Equal(t, models.BucketSTCG, c.ClassifyOpenLot(equity, lot))

	equity.NAVDate = day(2024, time.June, 1)
	assert.Equal(t, models.BucketLTCG, c.ClassifyOpenLot(equity, lot))

	hybrid := &models.Holding{Meta: hybridMeta(), NAVDate: day(2024, time.June, 1)}
	assert.Equal(t, models.BucketSlabRate, c.ClassifyOpenLot(hybrid, lot))

	debt := &models.Holding{Meta: debtMeta(), NAVDate: day(2040, time.June, 1)}
	assert.Equal(t, models.BucketSlabRate, c.ClassifyOpenLot(debt, lot))
}
