package processors

import (
	"fmt"
	"sort"

	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/utils"
)

// LotProcessor rebuilds a holding's lot structure from its transaction list
// and matches sells against buys in strict chronological FIFO order.
//
// Process is a pure function of the transaction list: re-running it always
// yields the same lots, matches and defect state. The derived slices are
// replaced wholesale, never patched incrementally.
type LotProcessor struct{}

func NewLotProcessor() *LotProcessor {
	return &LotProcessor{}
}

// Process sorts the holding's transactions (ascending date, stable on ties),
// partitions them into buy lots and sell events, runs FIFO matching and
// verifies reconciliation invariants. Any violation attaches a typed defect
// to the holding instead of producing bad matches.
func (p *LotProcessor) Process(h *models.Holding) {
	sort.SliceStable(h.Transactions, func(i, j int) bool {
		return h.Transactions[i].Date.Before(h.Transactions[j].Date)
	})

	h.BuyLots = nil
	h.SellEvents = nil
	h.MatchedLots = nil
	h.Defect = nil

	net := 0.0
	for _, t := range h.Transactions {
		net = utils.RoundUnits(net + t.SignedUnits())
		switch t.Kind {
		case models.TxnBuy:
			h.BuyLots = append(h.BuyLots, models.BuyLot{Txn: t, RemainingUnits: t.Units})
		case models.TxnSell:
			h.SellEvents = append(h.SellEvents, models.SellEvent{Txn: t, RemainingUnits: t.Units})
		}
	}
	h.NetUnits = net

	p.match(h)
	if h.Defect != nil {
		return
	}
	p.replayBalance(h)
	if h.Defect != nil {
		return
	}

	// Unsold buy units must account for the full net holding.
	unsold := 0.0
	for _, lot := range h.BuyLots {
		unsold = utils.RoundUnits(unsold + lot.RemainingUnits)
	}
	if unsold != h.NetUnits {
		h.Defect = &models.HoldingDefect{
			Kind: models.DefectUnmatchedHolding,
			Description: fmt.Sprintf("unmatched holding for %s (%s, %s): net units %.4f, unsold units %.4f",
				h.SchemeName, h.ISIN, h.Folio, h.NetUnits, unsold),
		}
	}
}

// match pairs the earliest unconsumed buy lot against the earliest unconsumed
// sell event. A single sell may span multiple buy lots and vice versa.
func (p *LotProcessor) match(h *models.Holding) {
	if len(h.SellEvents) > 0 && len(h.BuyLots) == 0 {
		h.Defect = &models.HoldingDefect{
			Kind:        models.DefectNoBuyLots,
			Description: fmt.Sprintf("no buy transactions for %s (%s, %s)", h.SchemeName, h.ISIN, h.Folio),
		}
		return
	}

	iBuy, iSell := 0, 0
	for iSell < len(h.SellEvents) {
		// Corrupted or truncated input surfaces here, not as bad matches.
		if iBuy >= len(h.BuyLots) {
			h.Defect = &models.HoldingDefect{
				Kind: models.DefectBuyListOverflow,
				Description: fmt.Sprintf("unmatched sold units remain but buy lot list exhausted for %s (%s, %s)",
					h.SchemeName, h.ISIN, h.Folio),
			}
			return
		}
		sell := &h.SellEvents[iSell]
		buy := &h.BuyLots[iBuy]
		if sell.Txn.Date.Before(buy.Txn.Date) {
			h.Defect = &models.HoldingDefect{
				Kind: models.DefectImproperOrdering,
				Description: fmt.Sprintf("selling date %s precedes buying date %s for %s (%s, %s)",
					sell.Txn.Date.Format(utils.DefaultDateFormat), buy.Txn.Date.Format(utils.DefaultDateFormat),
					h.SchemeName, h.ISIN, h.Folio),
			}
			return
		}

		units := utils.MinFloat(sell.RemainingUnits, buy.RemainingUnits)
		// Zero-quantity transactions are legal; they exhaust a cursor
		// without producing a matched pair.
		if units > 0 {
			h.MatchedLots = append(h.MatchedLots, newMatchedLot(iBuy, iSell, units, buy.Txn, sell.Txn))
		}

		sell.RemainingUnits = utils.RoundUnits(sell.RemainingUnits - units)
		buy.RemainingUnits = utils.RoundUnits(buy.RemainingUnits - units)

		if sell.RemainingUnits <= 0 {
			iSell++
		}
		if buy.RemainingUnits <= 0 {
			iBuy++
		}
	}
}

// newMatchedLot computes the matched pair's derived values once, at matching
// time. Buy amount includes the matched share of stamp duty; sell amount is
// net of the matched share of STT, so the gain already carries all charges.
func newMatchedLot(iBuy, iSell int, units float64, buyTxn, sellTxn models.Transaction) models.MatchedLot {
	stampDuty := 0.0
	if buyTxn.Units > 0 {
		stampDuty = buyTxn.Tax * (units / buyTxn.Units)
	}
	stt := 0.0
	if sellTxn.Units > 0 {
		stt = sellTxn.Tax * (units / sellTxn.Units)
	}
	buyAmount := buyTxn.Price*units + stampDuty
	sellAmount := sellTxn.Price*units - stt

	return models.MatchedLot{
		BuyIndex:    iBuy,
		SellIndex:   iSell,
		Units:       units,
		BuyDate:     buyTxn.Date,
		SellDate:    sellTxn.Date,
		BuyPrice:    buyTxn.Price,
		SellPrice:   sellTxn.Price,
		BuyAmount:   buyAmount,
		SellAmount:  sellAmount,
		StampDuty:   stampDuty,
		STT:         stt,
		HoldingDays: int(sellTxn.Date.Sub(buyTxn.Date).Hours() / 24),
		Gain:        sellAmount - buyAmount,
		Bucket:      models.BucketUnclassified,
		TaxableGain: sellAmount - buyAmount,
	}
}

// replayBalance replays the cumulative unit balance in date order. A negative
// intermediate balance means the statement history is incomplete or corrupted.
func (p *LotProcessor) replayBalance(h *models.Holding) {
	balance := 0.0
	for _, t := range h.Transactions {
		balance = utils.RoundUnits(balance + t.SignedUnits())
		if balance < 0 {
			h.Defect = &models.HoldingDefect{
				Kind: models.DefectNegativeBalance,
				Description: fmt.Sprintf("cumulative balance negative for %s (%s, %s) on %s",
					h.SchemeName, h.ISIN, h.Folio, t.Date.Format(utils.DefaultDateFormat)),
			}
			return
		}
	}
}
