package services

import (
	"fmt"
	"io"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/fundfolio/backend/src/database"
	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/parsers"
	"github.com/username/fundfolio/backend/src/processors"
	"github.com/username/fundfolio/backend/src/utils"
)

// SourceManual marks transactions entered by hand rather than parsed from a
// statement.
const SourceManual = "manual"

const ckPortfolioSnapshot = "portfolio_snapshot"

// portfolioSnapshot is the fully processed portfolio: every holding rebuilt
// from stored transactions, matched, classified and priced, plus the
// diagnostics collected along the way.
type portfolioSnapshot struct {
	holdings    []*models.Holding
	diagnostics []models.Diagnostic
}

type holdingServiceImpl struct {
	parser      parsers.StatementParser
	store       *database.TransactionStore
	schemes     SchemeMetadataService
	prices      PriceService
	irr         IRRSolver
	lots        *processors.LotProcessor
	returns     *processors.ReturnsProcessor
	classifier  *processors.TaxClassifier
	reportCache *cache.Cache
}

func NewHoldingService(
	parser parsers.StatementParser,
	store *database.TransactionStore,
	schemes SchemeMetadataService,
	prices PriceService,
	fairValues FairValueService,
	irr IRRSolver,
	reportCache *cache.Cache,
) HoldingService {
	return &holdingServiceImpl{
		parser:      parser,
		store:       store,
		schemes:     schemes,
		prices:      prices,
		irr:         irr,
		lots:        processors.NewLotProcessor(),
		returns:     processors.NewReturnsProcessor(),
		classifier:  processors.NewTaxClassifier(fairValues),
		reportCache: reportCache,
	}
}

func (s *holdingServiceImpl) ProcessStatement(fileReader io.Reader) (*StatementResult, error) {
	startTime := time.Now()
	logger.L.Info("ProcessStatement START")

	parsed, err := s.parser.Parse(fileReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	result := &StatementResult{
		InvestorName: parsed.InvestorName,
		FromDate:     parsed.FromDate,
		ToDate:       parsed.ToDate,
	}
	for _, blk := range parsed.Blocks {
		if blk.ISIN == "" || blk.Folio == "" {
			logger.L.Warn("Skipping statement block without scheme identity", "schemeName", blk.SchemeName)
			continue
		}
		result.BlocksParsed++
		if blk.BalanceMismatch {
			result.BalanceMismatches++
		}

		added, err := s.store.MergeTransactions(blk.ISIN, blk.Folio, blk.SchemeName, blk.Transactions, false)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
		}
		result.TransactionsAdded += added

		lastTxnDate := blk.LatestTransactionDate()
		if lastTxnDate.IsZero() {
			lastTxnDate = parsed.ToDate
		}
		if _, err := s.schemes.Register(blk.ISIN, blk.SchemeName, lastTxnDate); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
		}
	}

	s.invalidateSnapshot()
	logger.L.Info("ProcessStatement END",
		"blocks", result.BlocksParsed,
		"transactionsAdded", result.TransactionsAdded,
		"duration", time.Since(startTime))
	return result, nil
}

func (s *holdingServiceImpl) AddManualTransaction(isin, folio, schemeName string, txn models.Transaction) error {
	if isin == "" || folio == "" {
		return fmt.Errorf("%w: isin and folio are required", ErrInvalidInput)
	}
	txn.Source = SourceManual
	if err := txn.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if _, err := s.store.MergeTransactions(isin, folio, schemeName, []models.Transaction{txn}, true); err != nil {
		return fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}
	if _, err := s.schemes.Register(isin, schemeName, txn.Date); err != nil {
		return fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}

	s.invalidateSnapshot()
	return nil
}

func (s *holdingServiceImpl) HoldingSummaries(filter HoldingFilter) ([]models.HoldingSummary, error) {
	var realizedFrom, realizedTo time.Time
	if filter.FinancialYear != "" {
		var err error
		realizedFrom, realizedTo, err = utils.ParseFinancialYear(filter.FinancialYear)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	summaries := []models.HoldingSummary{}
	for _, h := range snap.holdings {
		if h.IsDefective() || !matchesFilter(h, filter) {
			continue
		}
		summaries = append(summaries, models.HoldingSummary{
			ISIN:           h.ISIN,
			Folio:          h.Folio,
			SchemeName:     h.SchemeName,
			Taxation:       h.Meta.Taxation(),
			Units:          h.NetUnits,
			NAV:            h.NAV,
			NAVDate:        h.NAVDate,
			Value:          h.Value(),
			RealizedPnL:    s.returns.RealizedPnL(h, realizedFrom, realizedTo),
			UnrealizedPnL:  s.returns.UnrealizedPnL(h),
			RealizedTax:    s.returns.RealizedBreakdown(h, realizedFrom, realizedTo),
			UnrealizedTax:  s.returns.UnrealizedBreakdown(h, s.classifier),
			RealizedXIRR:   s.irr.Solve(s.returns.RealizedCashFlows(h, realizedFrom, realizedTo)),
			UnrealizedXIRR: s.irr.Solve(s.returns.UnrealizedCashFlows(h)),
			TotalXIRR:      s.irr.Solve(s.returns.TotalCashFlows(h)),
			CashFlows:      s.returns.TotalCashFlows(h),
		})
	}
	return summaries, nil
}

func (s *holdingServiceImpl) GainDetails(fy string) ([]models.GainDetail, error) {
	if fy != "" {
		if _, _, err := utils.ParseFinancialYear(fy); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	details := []models.GainDetail{}
	for _, h := range snap.holdings {
		if h.IsDefective() {
			continue
		}
		details = append(details, s.returns.GainDetails(h, fy)...)
	}
	return details, nil
}

func (s *holdingServiceImpl) OpenLots() ([]models.OpenLotDetail, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	details := []models.OpenLotDetail{}
	for _, h := range snap.holdings {
		if h.IsDefective() {
			continue
		}
		details = append(details, s.returns.OpenLotDetails(h, s.classifier)...)
	}
	return details, nil
}

func (s *holdingServiceImpl) Transactions(isin, folio string) ([]models.TransactionDetail, error) {
	txns, err := s.store.Transactions(isin, folio)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}
	if len(txns) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrHoldingNotFound, isin, folio)
	}
	return models.TransactionDetails(txns), nil
}

func (s *holdingServiceImpl) Diagnostics() ([]models.Diagnostic, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if snap.diagnostics == nil {
		return []models.Diagnostic{}, nil
	}
	return snap.diagnostics, nil
}

func (s *holdingServiceImpl) RefreshNAVs() error {
	if err := s.prices.Refresh(); err != nil {
		return err
	}
	s.invalidateSnapshot()
	return nil
}

// snapshot returns the processed portfolio, rebuilding it from the store on a
// cache miss.
func (s *holdingServiceImpl) snapshot() (*portfolioSnapshot, error) {
	if cached, found := s.reportCache.Get(ckPortfolioSnapshot); found {
		logger.L.Debug("Cache hit for portfolio snapshot")
		return cached.(*portfolioSnapshot), nil
	}
	logger.L.Info("Cache miss for portfolio snapshot, rebuilding from DB")

	keys, err := s.store.Holdings()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}

	snap := &portfolioSnapshot{}
	for _, key := range keys {
		h, diags, err := s.buildHolding(key)
		if err != nil {
			return nil, err
		}
		snap.holdings = append(snap.holdings, h)
		snap.diagnostics = append(snap.diagnostics, diags...)
	}

	s.reportCache.Set(ckPortfolioSnapshot, snap, cache.DefaultExpiration)
	logger.L.Info("Portfolio snapshot rebuilt", "holdings", len(snap.holdings), "diagnostics", len(snap.diagnostics))
	return snap, nil
}

// buildHolding assembles one holding end to end: stored transactions, scheme
// metadata, FIFO matching, tax classification and current valuation. Defects
// and unclassified gains become diagnostics, never errors.
func (s *holdingServiceImpl) buildHolding(key database.HoldingKey) (*models.Holding, []models.Diagnostic, error) {
	txns, err := s.store.Transactions(key.ISIN, key.Folio)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}

	meta, err := s.schemes.Lookup(key.ISIN)
	if err != nil {
		lastTxnDate := time.Time{}
		if len(txns) > 0 {
			lastTxnDate = txns[len(txns)-1].Date
		}
		meta, err = s.schemes.Register(key.ISIN, key.SchemeName, lastTxnDate)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
		}
	}

	h := &models.Holding{
		ISIN:         key.ISIN,
		Folio:        key.Folio,
		SchemeName:   meta.SchemeName,
		Transactions: txns,
		Meta:         meta,
	}
	if h.SchemeName == "" {
		h.SchemeName = key.SchemeName
	}

	s.lots.Process(h)

	var diags []models.Diagnostic
	if h.IsDefective() {
		diags = append(diags, models.Diagnostic{
			ISIN:        h.ISIN,
			Folio:       h.Folio,
			SchemeName:  h.SchemeName,
			Kind:        h.Defect.Kind,
			Description: h.Defect.Description,
		})
	} else {
		for i := range h.MatchedLots {
			if err := s.classifier.Classify(h, &h.MatchedLots[i]); err != nil {
				diags = append(diags, models.Diagnostic{
					ISIN:        h.ISIN,
					Folio:       h.Folio,
					SchemeName:  h.SchemeName,
					Kind:        models.DefectUnclassifiedGain,
					Description: err.Error(),
				})
			}
		}
	}

	if info, ok := s.prices.CurrentNAV(h.ISIN); ok {
		h.NAV = info.NAV
		h.NAVDate = info.Date
	} else {
		last := h.LastTxn()
		h.NAV = last.Price
		h.NAVDate = last.Date
		logger.L.Debug("No published NAV, using last transaction price", "isin", h.ISIN, "folio", h.Folio)
	}

	return h, diags, nil
}

func (s *holdingServiceImpl) InvalidateReports() {
	s.invalidateSnapshot()
}

func (s *holdingServiceImpl) invalidateSnapshot() {
	s.reportCache.Delete(ckPortfolioSnapshot)
	logger.L.Debug("Invalidated portfolio snapshot cache")
}

// matchesFilter applies the summary filter to one holding. Category and
// subcategory selections combine asymmetrically: with both present either
// match admits the holding, with only one present that one must match.
func matchesFilter(h *models.Holding, filter HoldingFilter) bool {
	if !filter.HideExitedBefore.IsZero() && h.NetUnits <= 0 && !h.LastTxn().Date.After(filter.HideExitedBefore) {
		return false
	}

	compiled := utils.CompileTags(h.Meta.Tags)

	catMatch := len(filter.Categories) == 0
	for _, cat := range filter.Categories {
		if _, ok := compiled[cat]; ok {
			catMatch = true
			break
		}
	}

	subMatch := len(filter.Subcategories) == 0
	for cat, wanted := range filter.Subcategories {
		if subMatch {
			break
		}
		have, ok := compiled[cat]
		if !ok || len(wanted) == 0 {
			continue
		}
		for _, sub := range wanted {
			for _, existing := range have {
				if sub == existing {
					subMatch = true
					break
				}
			}
			if subMatch {
				break
			}
		}
	}

	if len(filter.Categories) > 0 && len(filter.Subcategories) > 0 {
		return catMatch || subMatch
	}
	return catMatch && subMatch
}
