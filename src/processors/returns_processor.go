package processors

import (
	"math"
	"time"

	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/utils"
)

// ReturnsProcessor walks a holding's matched pairs and open lots to produce
// realized and unrealized P&L figures, reporting rows and the cash-flow
// series consumed by the IRR solver.
type ReturnsProcessor struct{}

func NewReturnsProcessor() *ReturnsProcessor {
	return &ReturnsProcessor{}
}

// inPeriod reports whether date falls in [from, to]. Zero bounds are open.
func inPeriod(date, from, to time.Time) bool {
	if !from.IsZero() && date.Before(from) {
		return false
	}
	if !to.IsZero() && date.After(to) {
		return false
	}
	return true
}

// RealizedPnL sums gains over matched lots whose sell date falls in the
// period. Charges are already embedded in the matched amounts.
func (p *ReturnsProcessor) RealizedPnL(h *models.Holding, from, to time.Time) float64 {
	total := 0.0
	for _, ml := range h.MatchedLots {
		if inPeriod(ml.SellDate, from, to) {
			total += ml.Gain
		}
	}
	return total
}

// RealizedBreakdown splits the period's taxable realized gains across the
// three tax buckets. Unclassified gains are excluded; they are surfaced via
// diagnostics instead.
func (p *ReturnsProcessor) RealizedBreakdown(h *models.Holding, from, to time.Time) models.TaxBucketBreakdown {
	var b models.TaxBucketBreakdown
	for _, ml := range h.MatchedLots {
		if !inPeriod(ml.SellDate, from, to) {
			continue
		}
		switch ml.Bucket {
		case models.BucketSlabRate:
			b.SlabRate += ml.TaxableGain
		case models.BucketSTCG:
			b.STCG += ml.TaxableGain
		case models.BucketLTCG:
			b.LTCG += ml.TaxableGain
		}
	}
	return b
}

// UnrealizedPnL values the unsold units of every buy lot at the holding's
// current NAV, net of the unamortized share of stamp duty.
func (p *ReturnsProcessor) UnrealizedPnL(h *models.Holding) float64 {
	total := 0.0
	for _, lot := range h.BuyLots {
		if lot.RemainingUnits <= 0 {
			continue
		}
		total += p.unrealizedLotPnL(h, lot)
	}
	return total
}

func (p *ReturnsProcessor) unrealizedLotPnL(h *models.Holding, lot models.BuyLot) float64 {
	unamortizedTax := 0.0
	if lot.Txn.Units > 0 {
		unamortizedTax = (lot.RemainingUnits / lot.Txn.Units) * lot.Txn.Tax
	}
	return lot.RemainingUnits*(h.NAV-lot.Txn.Price) - unamortizedTax
}

// UnrealizedBreakdown splits unrealized P&L across tax buckets, classifying
// each open lot by where the valuation date sits relative to its LTCG-from
// date.
func (p *ReturnsProcessor) UnrealizedBreakdown(h *models.Holding, classifier *TaxClassifier) models.TaxBucketBreakdown {
	var b models.TaxBucketBreakdown
	for _, lot := range h.BuyLots {
		if lot.RemainingUnits <= 0 {
			continue
		}
		pnl := p.unrealizedLotPnL(h, lot)
		switch classifier.ClassifyOpenLot(h, lot) {
		case models.BucketSlabRate:
			b.SlabRate += pnl
		case models.BucketSTCG:
			b.STCG += pnl
		case models.BucketLTCG:
			b.LTCG += pnl
		}
	}
	return b
}

// RealizedCashFlows emits one outflow at the buy date and one inflow at the
// sell date per matched lot with a sell date in the period.
func (p *ReturnsProcessor) RealizedCashFlows(h *models.Holding, from, to time.Time) []models.CashFlow {
	var flows []models.CashFlow
	for _, ml := range h.MatchedLots {
		if !inPeriod(ml.SellDate, from, to) {
			continue
		}
		flows = append(flows,
			models.CashFlow{Date: ml.BuyDate, Amount: -ml.BuyAmount},
			models.CashFlow{Date: ml.SellDate, Amount: ml.SellAmount},
		)
	}
	return flows
}

// UnrealizedCashFlows emits one outflow per open buy lot for its unsold cost
// plus a terminal inflow of the current holding value at the valuation date.
func (p *ReturnsProcessor) UnrealizedCashFlows(h *models.Holding) []models.CashFlow {
	var flows []models.CashFlow
	for _, lot := range h.BuyLots {
		if lot.RemainingUnits <= 0 {
			continue
		}
		flows = append(flows, models.CashFlow{Date: lot.Txn.Date, Amount: -lot.RemainingUnits * lot.Txn.Price})
	}
	if len(flows) == 0 {
		return nil
	}
	flows = append(flows, models.CashFlow{Date: h.NAVDate, Amount: h.NetUnits * h.NAV})
	return flows
}

// TotalCashFlows combines realized and unrealized flows for the holding's
// overall XIRR.
func (p *ReturnsProcessor) TotalCashFlows(h *models.Holding) []models.CashFlow {
	flows := p.RealizedCashFlows(h, time.Time{}, time.Time{})
	return append(flows, p.UnrealizedCashFlows(h)...)
}

// GainDetails prepares matched lots as reporting rows, optionally restricted
// to one financial year (empty fy means all).
func (p *ReturnsProcessor) GainDetails(h *models.Holding, fy string) []models.GainDetail {
	var details []models.GainDetail
	for _, ml := range h.MatchedLots {
		sellFY := utils.FinancialYear(ml.SellDate)
		if fy != "" && sellFY != fy {
			continue
		}
		details = append(details, models.GainDetail{
			ISIN:          h.ISIN,
			Folio:         h.Folio,
			SchemeName:    h.SchemeName,
			BuyDate:       ml.BuyDate,
			SellDate:      ml.SellDate,
			Units:         ml.Units,
			BuyPrice:      ml.BuyPrice,
			SellPrice:     ml.SellPrice,
			BuyAmount:     ml.BuyAmount,
			SellAmount:    ml.SellAmount,
			HoldingDays:   ml.HoldingDays,
			Gain:          ml.Gain,
			TaxableGain:   ml.TaxableGain,
			Bucket:        ml.Bucket,
			CAGR:          CAGR(ml.BuyAmount, ml.SellAmount, ml.BuyDate, ml.SellDate),
			FinancialYear: sellFY,
		})
	}
	return details
}

// OpenLotDetails prepares the unsold buy lots as reporting rows.
func (p *ReturnsProcessor) OpenLotDetails(h *models.Holding, classifier *TaxClassifier) []models.OpenLotDetail {
	var details []models.OpenLotDetail
	for _, lot := range h.BuyLots {
		if lot.RemainingUnits <= 0 {
			continue
		}
		currentValue := lot.RemainingUnits * h.NAV
		details = append(details, models.OpenLotDetail{
			ISIN:             h.ISIN,
			Folio:            h.Folio,
			SchemeName:       h.SchemeName,
			BuyDate:          lot.Txn.Date,
			RemainingUnits:   lot.RemainingUnits,
			BuyPrice:         lot.Txn.Price,
			RemainingCost:    lot.RemainingCost(),
			CurrentValue:     currentValue,
			UnrealizedGain:   p.unrealizedLotPnL(h, lot),
			Bucket:           classifier.ClassifyOpenLot(h, lot),
			LoadFreeFromDate: lot.Txn.Date.AddDate(0, 0, h.Meta.ExitLoadDays),
			LTCGFromDate:     lot.Txn.Date.AddDate(0, 0, h.Meta.LTCGDays),
			CAGR:             CAGR(lot.RemainingCost(), currentValue, lot.Txn.Date, h.NAVDate),
		})
	}
	return details
}

// CAGR computes the compound annual growth rate between two valuations.
// Returns 0 for degenerate inputs (same-day, non-positive values).
func CAGR(buyValue, sellValue float64, buyDate, sellDate time.Time) float64 {
	yearsHeld := sellDate.Sub(buyDate).Hours() / 24 / 365
	if yearsHeld <= 0 || buyValue <= 0 || sellValue <= 0 {
		return 0
	}
	return math.Pow(sellValue/buyValue, 1/yearsHeld) - 1
}
