package services

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/username/fundfolio/backend/src/logger"
)

// fairValueServiceImpl serves the 31-Jan-2018 fair market values used by the
// LTCG grandfathering rule, loaded once from a JSON file of isin -> price.
type fairValueServiceImpl struct {
	values map[string]float64
}

// NewFairValueService loads the fair value file. A missing or unreadable file
// is not fatal: the service then answers 0 (no data) for every scheme and
// grandfathering is simply never applied.
func NewFairValueService(filePath string) FairValueService {
	s := &fairValueServiceImpl{values: make(map[string]float64)}
	if err := s.load(filePath); err != nil {
		logger.L.Warn("Fair value data unavailable, LTCG grandfathering disabled", "path", filePath, "error", err)
	}
	return s
}

func (s *fairValueServiceImpl) load(filePath string) error {
	logger.L.Info("Loading grandfathering fair values", "path", filePath)
	file, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("error reading fair value file '%s': %w", filePath, err)
	}
	if err := json.Unmarshal(file, &s.values); err != nil {
		return fmt.Errorf("error unmarshalling fair values from '%s': %w", filePath, err)
	}
	logger.L.Info("Fair values loaded successfully.", "path", filePath, "schemeCount", len(s.values))
	return nil
}

func (s *fairValueServiceImpl) FairValueAtCutover(isin string) float64 {
	return s.values[isin]
}
