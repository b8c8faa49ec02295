package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/username/fundfolio/backend/src/database"
	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/utils"
)

// schemeServiceImpl stores scheme tax-treatment records in the scheme_master
// table. Derived fields are normalized on every write so reads never see an
// inconsistent flag combination.
type schemeServiceImpl struct{}

func NewSchemeMetadataService() SchemeMetadataService {
	return &schemeServiceImpl{}
}

func (s *schemeServiceImpl) Lookup(isin string) (models.SchemeMeta, error) {
	var meta models.SchemeMeta
	var tags string
	err := database.DB.QueryRow(
		`SELECT isin, scheme_name, last_txn_date, under_asr, under_stcg, under_ltcg, exit_load_days, ltcg_days, tags
		 FROM scheme_master WHERE isin = ?`, isin).
		Scan(&meta.ISIN, &meta.SchemeName, &meta.LastTxnDate, &meta.UnderASR, &meta.UnderSTCG, &meta.UnderLTCG,
			&meta.ExitLoadDays, &meta.LTCGDays, &tags)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SchemeMeta{}, fmt.Errorf("%w: %s", ErrSchemeNotFound, isin)
		}
		return models.SchemeMeta{}, fmt.Errorf("error querying scheme_master for %s: %w", isin, err)
	}
	meta.Tags = splitTags(tags)
	meta.ApplyDerived()
	return meta, nil
}

// Register creates a default record the first time a scheme appears in a
// statement, and on later calls only advances the stored name and last
// transaction date. Regime flags are left for curation via Update; a fresh
// record therefore classifies nothing until its flags are set.
func (s *schemeServiceImpl) Register(isin, schemeName string, lastTxnDate time.Time) (models.SchemeMeta, error) {
	dateStr := lastTxnDate.Format(utils.DefaultDateFormat)

	existing, err := s.Lookup(isin)
	if err == nil {
		if schemeName != "" && schemeName != existing.SchemeName {
			existing.SchemeName = schemeName
		}
		if existing.LastTxnDate == "" || dateStr > existing.LastTxnDate {
			existing.LastTxnDate = dateStr
		}
		_, err = database.DB.Exec(
			`UPDATE scheme_master SET scheme_name = ?, last_txn_date = ?, updated_at = CURRENT_TIMESTAMP WHERE isin = ?`,
			existing.SchemeName, existing.LastTxnDate, isin)
		if err != nil {
			return models.SchemeMeta{}, fmt.Errorf("error updating scheme_master for %s: %w", isin, err)
		}
		return existing, nil
	}
	if !errors.Is(err, ErrSchemeNotFound) {
		return models.SchemeMeta{}, err
	}

	logger.L.Info("Registering new scheme", "isin", isin, "schemeName", schemeName)
	_, err = database.DB.Exec(
		`INSERT INTO scheme_master (isin, scheme_name, last_txn_date) VALUES (?, ?, ?)`,
		isin, schemeName, dateStr)
	if err != nil {
		return models.SchemeMeta{}, fmt.Errorf("error inserting into scheme_master for %s: %w", isin, err)
	}
	meta := models.SchemeMeta{ISIN: isin, SchemeName: schemeName, LastTxnDate: dateStr}
	meta.ApplyDerived()
	return meta, nil
}

func (s *schemeServiceImpl) Update(meta models.SchemeMeta) error {
	if meta.ISIN == "" {
		return fmt.Errorf("%w: scheme isin is required", ErrInvalidInput)
	}
	meta.ApplyDerived()
	res, err := database.DB.Exec(
		`UPDATE scheme_master SET scheme_name = ?, under_asr = ?, under_stcg = ?, under_ltcg = ?,
		 exit_load_days = ?, ltcg_days = ?, tags = ?, updated_at = CURRENT_TIMESTAMP WHERE isin = ?`,
		meta.SchemeName, meta.UnderASR, meta.UnderSTCG, meta.UnderLTCG,
		meta.ExitLoadDays, meta.LTCGDays, joinTags(meta.Tags), meta.ISIN)
	if err != nil {
		return fmt.Errorf("error updating scheme_master for %s: %w", meta.ISIN, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking scheme_master update for %s: %w", meta.ISIN, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrSchemeNotFound, meta.ISIN)
	}
	return nil
}

func (s *schemeServiceImpl) All() ([]models.SchemeMeta, error) {
	rows, err := database.DB.Query(
		`SELECT isin, scheme_name, last_txn_date, under_asr, under_stcg, under_ltcg, exit_load_days, ltcg_days, tags
		 FROM scheme_master ORDER BY scheme_name`)
	if err != nil {
		return nil, fmt.Errorf("error querying scheme_master: %w", err)
	}
	defer rows.Close()

	var metas []models.SchemeMeta
	for rows.Next() {
		var meta models.SchemeMeta
		var tags string
		if err := rows.Scan(&meta.ISIN, &meta.SchemeName, &meta.LastTxnDate, &meta.UnderASR, &meta.UnderSTCG,
			&meta.UnderLTCG, &meta.ExitLoadDays, &meta.LTCGDays, &tags); err != nil {
			return nil, fmt.Errorf("error scanning scheme_master row: %w", err)
		}
		meta.Tags = splitTags(tags)
		meta.ApplyDerived()
		metas = append(metas, meta)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over scheme_master rows: %w", err)
	}
	return metas, nil
}

// Tags are stored as one comma separated column; normalization (trim, lower,
// dedupe) happens here so every read path sees clean values.
func splitTags(stored string) []string {
	if stored == "" {
		return nil
	}
	seen := make(map[string]bool)
	var tags []string
	for _, tag := range strings.Split(stored, ",") {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

func joinTags(tags []string) string {
	var cleaned []string
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			cleaned = append(cleaned, tag)
		}
	}
	return strings.Join(cleaned, ",")
}
