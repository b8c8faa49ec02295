package models

import "time"

// CashFlow is one dated signed amount in an XIRR series. Outflows (purchases)
// are negative, inflows (sale proceeds, terminal value) positive.
type CashFlow struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// TaxBucketBreakdown splits a P&L figure across the three tax regimes.
type TaxBucketBreakdown struct {
	SlabRate float64 `json:"slab_rate"`
	STCG     float64 `json:"stcg"`
	LTCG     float64 `json:"ltcg"`
}

// Total sums the three buckets.
func (b TaxBucketBreakdown) Total() float64 { return b.SlabRate + b.STCG + b.LTCG }

// GainDetail is one matched buy/sell pair prepared for reporting, with the
// scheme identity and financial year attached.
type GainDetail struct {
	ISIN          string    `json:"isin"`
	Folio         string    `json:"folio"`
	SchemeName    string    `json:"scheme_name"`
	BuyDate       time.Time `json:"buy_date"`
	SellDate      time.Time `json:"sell_date"`
	Units         float64   `json:"units"`
	BuyPrice      float64   `json:"buy_price"`
	SellPrice     float64   `json:"sell_price"`
	BuyAmount     float64   `json:"buy_amount"`
	SellAmount    float64   `json:"sell_amount"`
	HoldingDays   int       `json:"holding_days"`
	Gain          float64   `json:"gain"`
	TaxableGain   float64   `json:"taxable_gain"`
	Bucket        TaxBucket `json:"tax_bucket"`
	CAGR          float64   `json:"cagr"`
	FinancialYear string    `json:"financial_year"`
}

// OpenLotDetail is one unsold (or partially sold) buy lot prepared for
// reporting.
type OpenLotDetail struct {
	ISIN             string    `json:"isin"`
	Folio            string    `json:"folio"`
	SchemeName       string    `json:"scheme_name"`
	BuyDate          time.Time `json:"buy_date"`
	RemainingUnits   float64   `json:"remaining_units"`
	BuyPrice         float64   `json:"buy_price"`
	RemainingCost    float64   `json:"remaining_cost"`
	CurrentValue     float64   `json:"current_value"`
	UnrealizedGain   float64   `json:"unrealized_gain"`
	Bucket           TaxBucket `json:"tax_bucket"`
	LoadFreeFromDate time.Time `json:"load_free_from_date"`
	LTCGFromDate     time.Time `json:"ltcg_from_date"`
	CAGR             float64   `json:"cagr"`
}

// HoldingSummary is the per-holding row served to the presentation layer.
type HoldingSummary struct {
	ISIN       string `json:"isin"`
	Folio      string `json:"folio"`
	SchemeName string `json:"scheme_name"`
	Taxation   string `json:"taxation"`

	Units   float64   `json:"units"`
	NAV     float64   `json:"nav"`
	NAVDate time.Time `json:"nav_date"`
	Value   float64   `json:"value"`

	RealizedPnL   float64            `json:"realized_pnl"`
	UnrealizedPnL float64            `json:"unrealized_pnl"`
	RealizedTax   TaxBucketBreakdown `json:"realized_tax_breakdown"`
	UnrealizedTax TaxBucketBreakdown `json:"unrealized_tax_breakdown"`

	RealizedXIRR   float64 `json:"realized_xirr"`
	UnrealizedXIRR float64 `json:"unrealized_xirr"`
	TotalXIRR      float64 `json:"total_xirr"`

	CashFlows []CashFlow `json:"cash_flows"`
}

// Diagnostic is one defective holding surfaced to the diagnostics list
// instead of the financial summaries.
type Diagnostic struct {
	ISIN        string     `json:"isin"`
	Folio       string     `json:"folio"`
	SchemeName  string     `json:"scheme_name"`
	Kind        DefectKind `json:"kind"`
	Description string     `json:"description"`
}
