package parsers

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/utils"
)

// SourceECAS tags transactions extracted from an uploaded CAS statement, as
// opposed to manual entries.
const SourceECAS = "ecas"

var (
	// ErrStatementFormat reports statement text that does not match the
	// expected shapes at a structurally required point (missing heading,
	// date range or balance line). Fatal for the statement.
	ErrStatementFormat = errors.New("statement format error")

	// ErrReversalMismatch reports a reversal row that cannot be reconciled
	// with the immediately preceding purchase. Fatal for the scheme block.
	ErrReversalMismatch = errors.New("reversal could not be reconciled with preceding purchase")
)

// CASParser parses CAS statement text in a single forward pass. It is
// stateless between calls; re-running it on the same text yields the same
// result.
type CASParser struct{}

func NewCASParser() *CASParser {
	return &CASParser{}
}

// lineCursor is a consuming cursor over the statement's line sequence.
type lineCursor struct {
	lines []string
	pos   int
}

func (c *lineCursor) exhausted() bool { return c.pos >= len(c.lines) }

// lineAt returns the line at an absolute position, or "" past the end.
func (c *lineCursor) lineAt(pos int) string {
	if pos < 0 || pos >= len(c.lines) {
		return ""
	}
	return c.lines[pos]
}

func (p *CASParser) Parse(file io.Reader) (*models.ParsedStatement, error) {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read statement text: %w", err)
	}

	cur := &lineCursor{lines: lines}

	stmt := &models.ParsedStatement{}
	var err error
	stmt.FromDate, stmt.ToDate, err = findStatementDates(cur)
	if err != nil {
		return nil, err
	}

	for {
		block, found := nextSchemeBlock(cur)
		if !found {
			break
		}
		if err := parseBlockTransactions(cur, &block); err != nil {
			return nil, err
		}
		if stmt.InvestorName == "" && block.HolderName != "" {
			stmt.InvestorName = titleCase(block.HolderName)
		}
		stmt.Blocks = append(stmt.Blocks, block)
	}

	logger.L.Info("Parsed CAS statement",
		"from", stmt.FromDate.Format(utils.DefaultDateFormat),
		"to", stmt.ToDate.Format(utils.DefaultDateFormat),
		"blocks", len(stmt.Blocks))
	return stmt, nil
}

// findStatementDates scans forward to the statement heading; the line
// immediately after it must carry the from/to date range.
func findStatementDates(cur *lineCursor) (from, to time.Time, _ error) {
	for !cur.exhausted() {
		line := cur.lines[cur.pos]
		if matchHeading(line) {
			from, to, ok := matchStatementDates(cur.lineAt(cur.pos + 1))
			if !ok {
				return time.Time{}, time.Time{}, fmt.Errorf("%w: statement dates not found after the heading", ErrStatementFormat)
			}
			cur.pos += 2
			return from, to, nil
		}
		cur.pos++
	}
	return time.Time{}, time.Time{}, fmt.Errorf("%w: reached end of input without finding the statement heading", ErrStatementFormat)
}

// nextSchemeBlock scans forward for the next folio line and extracts the
// block's identity from it and the following lines. Blocks whose sanitized
// scheme name marks a segregated (side-pocket) portfolio are discarded by
// clearing the folio key so their transactions are never attributed.
// Reaching end of input means no further blocks.
func nextSchemeBlock(cur *lineCursor) (models.StatementBlock, bool) {
	var blk models.StatementBlock
	for !cur.exhausted() && (blk.Folio == "" || blk.ISIN == "") {
		line := cur.lines[cur.pos]
		if folio, pan, ok := matchFolio(line); ok {
			blk.Folio, blk.PAN = folio, pan
			if name, ok := matchHolderName(cur.lineAt(cur.pos + 1)); ok {
				blk.HolderName = name
			}
			// The scheme header may wrap onto a second line.
			joined := cur.lineAt(cur.pos+2) + cur.lineAt(cur.pos+3)
			if _, schemeName, isin, ok := matchSchemeISIN(joined); ok {
				blk.SchemeName = schemeName
				blk.ISIN = isin
			} else {
				// Some very old schemes appear in CAS reports without an
				// ISIN. Leave the block unkeyed and keep scanning.
				logger.L.Warn("Scheme header without ISIN", "folio", blk.Folio, "line", strings.TrimSpace(joined))
			}
			if strings.Contains(blk.SchemeName, "Segregated") {
				blk = models.StatementBlock{}
			}
		}
		cur.pos++
	}
	return blk, blk.Folio != "" && blk.ISIN != ""
}

// parseBlockTransactions consumes lines from the opening balance through the
// closing balance of the current block, appending buy and sell transactions
// and attributing charge rows to the preceding transaction of the matching
// direction. The replayed running total is compared against the declared
// closing balance; a mismatch is recorded and logged with the transaction
// dump but is not fatal, since lot reconciliation independently flags the
// holding if the discrepancy is real.
func parseBlockTransactions(cur *lineCursor, blk *models.StatementBlock) error {
	openingFound := false
	for !cur.exhausted() {
		line := cur.lines[cur.pos]
		cur.pos++
		if v, ok := matchOpeningBalance(line); ok {
			blk.OpeningBalance = v
			openingFound = true
			break
		}
	}
	if !openingFound {
		return fmt.Errorf("%w: opening balance not found for ISIN %s folio %s", ErrStatementFormat, blk.ISIN, blk.Folio)
	}

	runningTotal := blk.OpeningBalance
	var buys, sells []models.Transaction
	closingFound := false

	for !cur.exhausted() && !closingFound {
		line := cur.lines[cur.pos]
		cur.pos++

		if f, ok := matchBuyTxn(line); ok {
			buys = append(buys, models.Transaction{
				Date:   f.Date,
				Kind:   models.TxnBuy,
				Units:  f.Units,
				Price:  f.Price,
				Source: SourceECAS,
			})
			runningTotal = utils.RoundUnits(runningTotal + f.Units)
		} else if amt, ok := matchStampDuty(line); ok && len(buys) > 0 {
			buys[len(buys)-1].Tax = amt
		} else if f, ok := matchReversal(line); ok {
			runningTotal = utils.RoundUnits(runningTotal - f.Units)
			last := len(buys) - 1
			if last >= 0 && buys[last].Date.Equal(f.Date) && buys[last].Units == f.Units {
				buys = buys[:last]
			} else {
				return fmt.Errorf("%w: ISIN %s folio %s, reversal of %.4f units on %s",
					ErrReversalMismatch, blk.ISIN, blk.Folio, f.Units, f.Date.Format(utils.DefaultDateFormat))
			}
		} else if f, ok := matchSellTxn(line); ok {
			sells = append(sells, models.Transaction{
				Date:   f.Date,
				Kind:   models.TxnSell,
				Units:  f.Units,
				Price:  f.Price,
				Source: SourceECAS,
			})
			runningTotal = utils.RoundUnits(runningTotal - f.Units)
		} else if amt, ok := matchSTTPaid(line); ok && len(sells) > 0 {
			sells[len(sells)-1].Tax = amt
		} else if v, ok := matchClosingBalance(line); ok {
			blk.ClosingBalance = v
			closingFound = true
		}
	}
	if !closingFound {
		return fmt.Errorf("%w: closing balance not found for ISIN %s folio %s", ErrStatementFormat, blk.ISIN, blk.Folio)
	}

	blk.RunningTotal = runningTotal
	if runningTotal != blk.ClosingBalance {
		blk.BalanceMismatch = true
		logger.L.Warn("Closing balance mismatch",
			"isin", blk.ISIN,
			"folio", blk.Folio,
			"runningTotal", runningTotal,
			"closingBalance", blk.ClosingBalance,
			"buys", buys,
			"sells", sells)
	}

	// Buys first, then sells; the lot ledger's stable date sort keeps buys
	// ahead of same-day sells so intraday switch pairs replay cleanly.
	blk.Transactions = append(buys, sells...)
	return nil
}
