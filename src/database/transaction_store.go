package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/utils"
)

// HoldingKey identifies one folio of one scheme.
type HoldingKey struct {
	ISIN       string
	Folio      string
	SchemeName string
}

// TransactionStore persists statement transactions keyed by (isin, folio).
type TransactionStore struct{}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{}
}

// MergeTransactions inserts the given transactions for a holding, skipping
// any whose date already has stored rows for that holding. Statements from
// overlapping periods therefore merge idempotently. With allowSameDate set
// (manual entry) only exact duplicate rows are skipped, via the unique
// constraint. Returns the number of rows actually added.
func (s *TransactionStore) MergeTransactions(isin, folio, schemeName string, txns []models.Transaction, allowSameDate bool) (int, error) {
	existingDates, err := s.transactionDates(isin, folio)
	if err != nil {
		return 0, err
	}

	dbTx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`INSERT INTO transactions (isin, folio, scheme_name, date, kind, units, price, tax, source) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, txn := range txns {
		dateKey := txn.Date.Format(utils.DefaultDateFormat)
		if !allowSameDate && existingDates[dateKey] {
			logger.L.Debug("Skipping already stored transaction date", "isin", isin, "folio", folio, "date", dateKey)
			continue
		}
		_, err := stmt.Exec(isin, folio, schemeName, dateKey, string(txn.Kind), txn.Units, txn.Price, txn.Tax, txn.Source)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
				logger.L.Debug("Skipping duplicate transaction on merge", "isin", isin, "folio", folio, "date", dateKey)
				continue
			}
			return 0, fmt.Errorf("error inserting transaction (isin %s, date %s): %w", isin, dateKey, err)
		}
		added++
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing transactions: %w", err)
	}
	return added, nil
}

// Transactions returns all stored rows for a holding, oldest first.
func (s *TransactionStore) Transactions(isin, folio string) ([]models.Transaction, error) {
	rows, err := DB.Query(`SELECT date, kind, units, price, tax, source FROM transactions WHERE isin = ? AND folio = ? ORDER BY date ASC, id ASC`, isin, folio)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions for %s/%s: %w", isin, folio, err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var txn models.Transaction
		var dateStr, kindStr string
		if err := rows.Scan(&dateStr, &kindStr, &txn.Units, &txn.Price, &txn.Tax, &txn.Source); err != nil {
			return nil, fmt.Errorf("error scanning transaction row for %s/%s: %w", isin, folio, err)
		}
		date, err := time.Parse(utils.DefaultDateFormat, dateStr)
		if err != nil {
			return nil, fmt.Errorf("error parsing stored date %q for %s/%s: %w", dateStr, isin, folio, err)
		}
		txn.Date = date
		txn.Kind = models.TxnKind(kindStr)
		txns = append(txns, txn)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transaction rows for %s/%s: %w", isin, folio, err)
	}
	return txns, nil
}

// Holdings returns the distinct (isin, folio) keys present in the store.
func (s *TransactionStore) Holdings() ([]HoldingKey, error) {
	rows, err := DB.Query(`SELECT isin, folio, MAX(scheme_name) FROM transactions GROUP BY isin, folio ORDER BY isin, folio`)
	if err != nil {
		return nil, fmt.Errorf("error querying holding keys: %w", err)
	}
	defer rows.Close()

	var keys []HoldingKey
	for rows.Next() {
		var key HoldingKey
		if err := rows.Scan(&key.ISIN, &key.Folio, &key.SchemeName); err != nil {
			return nil, fmt.Errorf("error scanning holding key: %w", err)
		}
		keys = append(keys, key)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over holding keys: %w", err)
	}
	return keys, nil
}

func (s *TransactionStore) transactionDates(isin, folio string) (map[string]bool, error) {
	rows, err := DB.Query(`SELECT DISTINCT date FROM transactions WHERE isin = ? AND folio = ?`, isin, folio)
	if err != nil {
		return nil, fmt.Errorf("error querying transaction dates for %s/%s: %w", isin, folio, err)
	}
	defer rows.Close()

	dates := make(map[string]bool)
	for rows.Next() {
		var dateStr string
		if err := rows.Scan(&dateStr); err != nil {
			return nil, fmt.Errorf("error scanning transaction date for %s/%s: %w", isin, folio, err)
		}
		dates[dateStr] = true
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transaction dates for %s/%s: %w", isin, folio, err)
	}
	return dates, nil
}
