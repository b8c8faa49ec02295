package services

import (
	"errors"
	"io"
	"time"

	"github.com/username/fundfolio/backend/src/models"
)

var (
	ErrParsingFailed    = errors.New("statement parsing failed")
	ErrProcessingFailed = errors.New("holding processing failed")
	ErrHoldingNotFound  = errors.New("holding not found")
	ErrSchemeNotFound   = errors.New("scheme metadata not found")
	ErrInvalidInput     = errors.New("invalid input")
)

// PriceInfo is one published NAV quote.
type PriceInfo struct {
	NAV  float64
	Date time.Time
}

// PriceService supplies current NAVs. Lookups that miss report ok=false;
// callers fall back to the holding's last transaction price.
type PriceService interface {
	CurrentNAV(isin string) (PriceInfo, bool)
	Refresh() error
}

// SchemeMetadataService maintains the per-scheme tax-treatment records.
// Register lazily creates a default record the first time a scheme appears in
// a statement; the regime flags are then curated via Update.
type SchemeMetadataService interface {
	Lookup(isin string) (models.SchemeMeta, error)
	Register(isin, schemeName string, lastTxnDate time.Time) (models.SchemeMeta, error)
	Update(meta models.SchemeMeta) error
	All() ([]models.SchemeMeta, error)
}

// FairValueService provides per-scheme fair market values on the LTCG
// grandfathering cutover date. 0 means no data.
type FairValueService interface {
	FairValueAtCutover(isin string) float64
}

// IRRSolver computes the annualized internal rate of return of a dated
// cash-flow series. Degenerate series yield 0.
type IRRSolver interface {
	Solve(flows []models.CashFlow) float64
}

// StatementResult summarizes one processed statement upload.
type StatementResult struct {
	InvestorName      string    `json:"investor_name"`
	FromDate          time.Time `json:"from_date"`
	ToDate            time.Time `json:"to_date"`
	BlocksParsed      int       `json:"blocks_parsed"`
	TransactionsAdded int       `json:"transactions_added"`
	BalanceMismatches int       `json:"balance_mismatches"`
}

// HoldingFilter narrows the holdings included in summaries.
type HoldingFilter struct {
	// Hide fully exited holdings whose last transaction predates this date.
	// Zero disables the check.
	HideExitedBefore time.Time
	// Category names and per-category subcategory selections matched against
	// the scheme's compiled tags.
	Categories    []string
	Subcategories map[string][]string
	// Restrict realized figures to one financial year, e.g. "FY2023-24".
	FinancialYear string
}

// HoldingService is the orchestrating service behind the HTTP surface.
type HoldingService interface {
	ProcessStatement(fileReader io.Reader) (*StatementResult, error)
	AddManualTransaction(isin, folio, schemeName string, txn models.Transaction) error
	HoldingSummaries(filter HoldingFilter) ([]models.HoldingSummary, error)
	GainDetails(fy string) ([]models.GainDetail, error)
	OpenLots() ([]models.OpenLotDetail, error)
	Transactions(isin, folio string) ([]models.TransactionDetail, error)
	Diagnostics() ([]models.Diagnostic, error)
	RefreshNAVs() error
	// InvalidateReports drops the cached portfolio snapshot, forcing a
	// rebuild on the next read. Called after out-of-band writes such as
	// scheme metadata curation.
	InvalidateReports()
}
