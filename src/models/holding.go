package models

import (
	"fmt"
	"time"
)

// TaxBucket labels the tax treatment of a matched buy/sell pair.
type TaxBucket string

const (
	BucketSlabRate     TaxBucket = "Slab Rate"
	BucketSTCG         TaxBucket = "STCG"
	BucketLTCG         TaxBucket = "LTCG"
	BucketUnclassified TaxBucket = "Unclassified"
)

// SchemeMeta is the externally maintained tax-treatment record for a scheme.
// ASR = taxed at the investor's slab rate ("applicable slab rate").
type SchemeMeta struct {
	ISIN         string   `json:"isin"`
	SchemeName   string   `json:"scheme_name"`
	LastTxnDate  string   `json:"last_txn_date"`
	UnderASR     bool     `json:"is_under_asr"`
	UnderSTCG    bool     `json:"is_under_stcg"`
	UnderLTCG    bool     `json:"is_under_ltcg"`
	ExitLoadDays int      `json:"exit_load_days"`
	LTCGDays     int      `json:"ltcg_days"`
	Tags         []string `json:"tags"`
}

// Long-term thresholds derived from the regime flags. A scheme under LTCG
// without a paired shorter regime gets the effectively-infinite sentinel.
const (
	LTCGDaysAfterSTCG = 365
	LTCGDaysAfterASR  = 365 * 2
	LTCGDaysSentinel  = 99999
)

// ApplyDerived normalizes the dependent fields: LTCG without slab-rate
// implies STCG for the shorter holding period, and the LTCG threshold follows
// from which shorter regime is paired with it.
func (m *SchemeMeta) ApplyDerived() {
	if m.UnderLTCG && !m.UnderASR {
		m.UnderSTCG = true
	}
	m.LTCGDays = LTCGDaysSentinel
	if m.UnderLTCG && m.UnderSTCG {
		m.LTCGDays = LTCGDaysAfterSTCG
	}
	if m.UnderLTCG && m.UnderASR {
		m.LTCGDays = LTCGDaysAfterASR
	}
}

// Taxation returns the display label for the scheme's tax regime.
func (m SchemeMeta) Taxation() string {
	switch {
	case m.UnderSTCG:
		return "Equity"
	case m.UnderASR && m.UnderLTCG:
		return "Hybrid"
	default:
		return "Debt"
	}
}

// BuyLot wraps a buy transaction and tracks the units not yet consumed by
// FIFO matching. RemainingUnits starts at Txn.Units and only decreases.
type BuyLot struct {
	Txn            Transaction `json:"txn"`
	RemainingUnits float64     `json:"remaining_units"`
}

// SoldUnits is the portion of the lot already matched against sells.
func (l BuyLot) SoldUnits() float64 { return l.Txn.Units - l.RemainingUnits }

// RemainingCost is the purchase cost of the unsold units, including the
// proportional share of stamp duty.
func (l BuyLot) RemainingCost() float64 {
	if l.Txn.Units == 0 {
		return 0
	}
	return l.RemainingUnits*l.Txn.Price + (l.RemainingUnits/l.Txn.Units)*l.Txn.Tax
}

// SellEvent wraps a sell transaction and tracks the units still to be matched
// against buy lots.
type SellEvent struct {
	Txn            Transaction `json:"txn"`
	RemainingUnits float64     `json:"remaining_units"`
}

// MatchedLot records units matched from one buy lot against one sell event.
// It stores indices into the holding's BuyLots/SellEvents slices rather than
// references, and every derived value is computed once at matching time.
type MatchedLot struct {
	BuyIndex  int `json:"buy_index"`
	SellIndex int `json:"sell_index"`

	Units float64 `json:"units"`

	BuyDate   time.Time `json:"buy_date"`
	SellDate  time.Time `json:"sell_date"`
	BuyPrice  float64   `json:"buy_price"`
	SellPrice float64   `json:"sell_price"`

	// Proportional cash values: BuyAmount includes the matched share of stamp
	// duty, SellAmount is net of the matched share of STT.
	BuyAmount  float64 `json:"buy_amount"`
	SellAmount float64 `json:"sell_amount"`
	StampDuty  float64 `json:"stamp_duty"`
	STT        float64 `json:"stt"`

	HoldingDays int     `json:"holding_days"`
	Gain        float64 `json:"gain"` // SellAmount - BuyAmount

	// Filled by the tax classifier.
	Bucket      TaxBucket `json:"tax_bucket"`
	TaxableGain float64   `json:"taxable_gain"` // grandfather-adjusted for LTCG
}

// DefectKind identifies which reconciliation invariant a holding violated.
type DefectKind string

const (
	DefectNoBuyLots        DefectKind = "no_buy_lots"
	DefectBuyListOverflow  DefectKind = "buy_list_overflow"
	DefectImproperOrdering DefectKind = "improper_ordering"
	DefectNegativeBalance  DefectKind = "negative_balance"
	DefectUnmatchedHolding DefectKind = "unmatched_holding"

	// DefectUnclassifiedGain is not a holding defect; it tags diagnostics for
	// matched pairs that fit none of the tax buckets.
	DefectUnclassifiedGain DefectKind = "unclassified_gain"
)

// HoldingDefect flags a holding whose transaction history failed a
// reconciliation invariant. Defective holdings are excluded from financial
// summaries but never abort processing of other holdings.
type HoldingDefect struct {
	Kind        DefectKind `json:"kind"`
	Description string     `json:"description"`
}

func (d *HoldingDefect) Error() string {
	return fmt.Sprintf("defective holding (%s): %s", d.Kind, d.Description)
}

// Holding is one scheme/folio position: the full transaction history plus the
// lot structure derived from it. The derived slices are rebuilt as a whole
// whenever the transaction list changes; readers never see a partial rebuild.
type Holding struct {
	ISIN       string `json:"isin"`
	Folio      string `json:"folio"`
	SchemeName string `json:"scheme_name"`

	// Sorted ascending by date, input order preserved on ties.
	Transactions []Transaction `json:"transactions"`

	NetUnits float64 `json:"net_units"`

	BuyLots     []BuyLot     `json:"buy_lots"`
	SellEvents  []SellEvent  `json:"sell_events"`
	MatchedLots []MatchedLot `json:"matched_lots"`

	Defect *HoldingDefect `json:"defect,omitempty"`

	Meta SchemeMeta `json:"meta"`

	// Current valuation. Falls back to the last transaction's price/date when
	// no published NAV is available.
	NAV     float64   `json:"nav"`
	NAVDate time.Time `json:"nav_date"`
}

// IsDefective reports whether the holding failed reconciliation.
func (h *Holding) IsDefective() bool { return h.Defect != nil }

// Value is the current market value of the held units.
func (h *Holding) Value() float64 { return h.NetUnits * h.NAV }

// LastTxn returns the most recent transaction, or a zero Transaction when the
// history is empty.
func (h *Holding) LastTxn() Transaction {
	if len(h.Transactions) == 0 {
		return Transaction{}
	}
	return h.Transactions[len(h.Transactions)-1]
}
