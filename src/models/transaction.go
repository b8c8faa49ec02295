package models

import (
	"fmt"
	"time"

	"github.com/username/fundfolio/backend/src/utils"
)

// TxnKind distinguishes buys from sells. Units are always stored positive;
// the kind carries the direction.
type TxnKind string

const (
	TxnBuy  TxnKind = "buy"
	TxnSell TxnKind = "sell"
)

// Transaction is a single dated buy or sell of mutual fund units.
// Immutable once created.
type Transaction struct {
	Date   time.Time `json:"date"`
	Kind   TxnKind   `json:"kind"`
	Units  float64   `json:"units"`  // positive magnitude
	Price  float64   `json:"price"`  // per-unit NAV at execution
	Tax    float64   `json:"tax"`    // stamp duty for buys, STT for sells
	Source string    `json:"source"` // "ecas" or "manual"
}

// Validate checks field constraints shared by all transaction sources.
// Zero-unit transactions are legal; fee-only rows never become transactions.
func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return fmt.Errorf("transaction date is required")
	}
	if t.Kind != TxnBuy && t.Kind != TxnSell {
		return fmt.Errorf("transaction kind must be %q or %q, got %q", TxnBuy, TxnSell, t.Kind)
	}
	if t.Units < 0 {
		return fmt.Errorf("transaction units must not be negative, got %v", t.Units)
	}
	if t.Price <= 0 {
		return fmt.Errorf("transaction price must be positive, got %v", t.Price)
	}
	if t.Tax < 0 {
		return fmt.Errorf("transaction tax must not be negative, got %v", t.Tax)
	}
	return nil
}

// Amount is the cash value of the transaction: cost including stamp duty for
// buys, proceeds net of STT for sells.
func (t Transaction) Amount() float64 {
	if t.Kind == TxnSell {
		return t.Units*t.Price - t.Tax
	}
	return t.Units*t.Price + t.Tax
}

// SignedUnits returns the unit delta this transaction applies to a running
// balance: positive for buys, negative for sells.
func (t Transaction) SignedUnits() float64 {
	if t.Kind == TxnSell {
		return -t.Units
	}
	return t.Units
}

// TransactionDetail is a transaction prepared as a reporting row: the raw
// fields plus the cash amount and the unit balance after applying it.
type TransactionDetail struct {
	Transaction
	Amount            float64 `json:"amount"`
	CumulativeBalance float64 `json:"cumulative_balance"`
}

// TransactionDetails replays the running unit balance over a date-ordered
// transaction list and attaches it, with the cash amount, to each row.
func TransactionDetails(txns []Transaction) []TransactionDetail {
	details := make([]TransactionDetail, 0, len(txns))
	balance := 0.0
	for _, t := range txns {
		balance = utils.RoundUnits(balance + t.SignedUnits())
		details = append(details, TransactionDetail{
			Transaction:       t,
			Amount:            t.Amount(),
			CumulativeBalance: balance,
		})
	}
	return details
}

// StatementBlock is one scheme/folio section extracted from a CAS statement:
// the identifying header fields, declared balances and the transactions found
// between them.
type StatementBlock struct {
	ISIN       string `json:"isin"`
	Folio      string `json:"folio"`
	SchemeName string `json:"scheme_name"`
	HolderName string `json:"holder_name"`
	PAN        string `json:"pan,omitempty"`

	OpeningBalance float64 `json:"opening_balance"`
	ClosingBalance float64 `json:"closing_balance"`
	// RunningTotal is the replayed unit balance after the last parsed
	// transaction. It should equal ClosingBalance; a mismatch is recorded,
	// not fatal, and downstream reconciliation decides whether the holding
	// is defective.
	RunningTotal    float64 `json:"running_total"`
	BalanceMismatch bool    `json:"balance_mismatch"`

	Transactions []Transaction `json:"transactions"`
}

// LatestTransactionDate returns the most recent transaction date in the
// block. The slice groups buys before sells, so the last element is not
// necessarily the latest. Returns the zero time for an empty block.
func (b StatementBlock) LatestTransactionDate() time.Time {
	var latest time.Time
	for _, t := range b.Transactions {
		if t.Date.After(latest) {
			latest = t.Date
		}
	}
	return latest
}

// ParsedStatement is the result of parsing one CAS text: the statement period
// plus every scheme block found in it.
type ParsedStatement struct {
	FromDate     time.Time        `json:"from_date"`
	ToDate       time.Time        `json:"to_date"`
	InvestorName string           `json:"investor_name"`
	Blocks       []StatementBlock `json:"blocks"`
}
