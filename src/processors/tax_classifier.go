package processors

import (
	"fmt"
	"math"
	"time"

	"github.com/username/fundfolio/backend/src/models"
)

// GrandfatherCutoverDate is the historical cutover for the LTCG deemed-cost
// rule on equity-like schemes: units bought on or before this date use the
// 31-Jan-2018 fair value as a cost floor.
var GrandfatherCutoverDate = time.Date(2018, time.January, 31, 0, 0, 0, 0, time.UTC)

// UnclassifiedGainError reports a matched pair that fits none of the tax
// buckets. It is always surfaced to the caller; a gain is never silently
// coerced into a default bucket.
type UnclassifiedGainError struct {
	ISIN        string
	Folio       string
	SellDate    time.Time
	HoldingDays int
}

func (e *UnclassifiedGainError) Error() string {
	return fmt.Sprintf("no tax bucket applies to matched lot of %s/%s sold %s (held %d days)",
		e.ISIN, e.Folio, e.SellDate.Format("2006-01-02"), e.HoldingDays)
}

// TaxClassifier assigns each matched buy/sell pair a tax bucket and the gain
// amount taxable under it, using the holding's scheme metadata.
type TaxClassifier struct {
	fairValues FairValueLookup
}

func NewTaxClassifier(fairValues FairValueLookup) *TaxClassifier {
	return &TaxClassifier{fairValues: fairValues}
}

// Classify fills ml.Bucket and ml.TaxableGain. The regime flags form a
// priority chain: slab rate, then STCG, then LTCG. For ASR-only schemes the
// derived threshold is the infinite sentinel, so the holding period is always
// below it.
func (c *TaxClassifier) Classify(h *models.Holding, ml *models.MatchedLot) error {
	meta := h.Meta
	if meta.LTCGDays == 0 {
		meta.ApplyDerived()
	}
	threshold := meta.LTCGDays

	switch {
	case meta.UnderASR && ml.HoldingDays < threshold:
		ml.Bucket = models.BucketSlabRate
	case meta.UnderSTCG && ml.HoldingDays < threshold:
		ml.Bucket = models.BucketSTCG
	case meta.UnderLTCG && ml.HoldingDays >= threshold:
		ml.Bucket = models.BucketLTCG
	default:
		ml.Bucket = models.BucketUnclassified
		return &UnclassifiedGainError{ISIN: h.ISIN, Folio: h.Folio, SellDate: ml.SellDate, HoldingDays: ml.HoldingDays}
	}

	ml.TaxableGain = ml.Gain
	if ml.Bucket == models.BucketLTCG && meta.UnderSTCG && meta.UnderLTCG && !ml.BuyDate.After(GrandfatherCutoverDate) {
		fairValue := c.fairValues.FairValueAtCutover(h.ISIN)
		if fairValue > 0 { // 0 means no grandfathering data for this scheme
			deemedCost := math.Max(ml.BuyPrice, math.Min(ml.SellPrice, fairValue))
			ml.TaxableGain = (ml.SellPrice - deemedCost) * ml.Units
		}
	}
	return nil
}

// ClassifyOpenLot buckets the unrealized gain of an unsold buy lot as of the
// holding's valuation date, by where that date sits relative to the lot's
// LTCG-from date.
func (c *TaxClassifier) ClassifyOpenLot(h *models.Holding, lot models.BuyLot) models.TaxBucket {
	meta := h.Meta
	if meta.LTCGDays == 0 {
		meta.ApplyDerived()
	}
	ltcgFrom := lot.Txn.Date.AddDate(0, 0, meta.LTCGDays)

	switch {
	case meta.UnderASR && h.NAVDate.Before(ltcgFrom):
		return models.BucketSlabRate
	case meta.UnderSTCG && h.NAVDate.Before(ltcgFrom):
		return models.BucketSTCG
	case meta.UnderLTCG && !h.NAVDate.Before(ltcgFrom):
		return models.BucketLTCG
	default:
		return models.BucketUnclassified
	}
}
