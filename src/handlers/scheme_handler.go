package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/services"
	"github.com/username/fundfolio/backend/src/utils"
)

type SchemeHandler struct {
	schemeService  services.SchemeMetadataService
	holdingService services.HoldingService
}

func NewSchemeHandler(schemeService services.SchemeMetadataService, holdingService services.HoldingService) *SchemeHandler {
	return &SchemeHandler{
		schemeService:  schemeService,
		holdingService: holdingService,
	}
}

// HandleGetSchemes lists every scheme in the master table with its current
// tax-regime flags and tags.
func (h *SchemeHandler) HandleGetSchemes(w http.ResponseWriter, r *http.Request) {
	metas, err := h.schemeService.All()
	if err != nil {
		logger.L.Error("Error listing schemes", "error", err)
		utils.SendJSONError(w, "Error listing schemes", http.StatusInternalServerError)
		return
	}

	writeJSONWithETag(w, r, metas)
}

// schemeUpdateRequest is the PUT body for scheme curation. It carries only
// the curated fields; identity and last transaction date are server-owned.
type schemeUpdateRequest struct {
	SchemeName   string   `json:"scheme_name"`
	UnderASR     bool     `json:"is_under_asr"`
	UnderSTCG    bool     `json:"is_under_stcg"`
	UnderLTCG    bool     `json:"is_under_ltcg"`
	ExitLoadDays int      `json:"exit_load_days"`
	Tags         []string `json:"tags"`
}

// HandleUpdateScheme sets the curated fields of one scheme: tax-regime flags,
// exit load period, tags and display name. Statement uploads only register
// schemes with empty flags, so holdings classify to a real tax bucket only
// after this endpoint has been used.
func (h *SchemeHandler) HandleUpdateScheme(w http.ResponseWriter, r *http.Request) {
	isin := r.PathValue("isin")
	if isin == "" {
		utils.SendJSONError(w, "scheme isin is required", http.StatusBadRequest)
		return
	}

	var req schemeUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid JSON request body", http.StatusBadRequest)
		return
	}
	if req.ExitLoadDays < 0 {
		utils.SendJSONError(w, "exit_load_days must not be negative", http.StatusBadRequest)
		return
	}

	meta, err := h.schemeService.Lookup(isin)
	if err != nil {
		if errors.Is(err, services.ErrSchemeNotFound) {
			utils.SendJSONError(w, fmt.Sprintf("Scheme %s not found", isin), http.StatusNotFound)
			return
		}
		logger.L.Error("Error looking up scheme", "isin", isin, "error", err)
		utils.SendJSONError(w, "Error looking up scheme", http.StatusInternalServerError)
		return
	}

	if req.SchemeName != "" {
		meta.SchemeName = req.SchemeName
	}
	meta.UnderASR = req.UnderASR
	meta.UnderSTCG = req.UnderSTCG
	meta.UnderLTCG = req.UnderLTCG
	meta.ExitLoadDays = req.ExitLoadDays
	meta.Tags = req.Tags
	meta.ApplyDerived()

	if err := h.schemeService.Update(meta); err != nil {
		switch {
		case errors.Is(err, services.ErrSchemeNotFound):
			utils.SendJSONError(w, fmt.Sprintf("Scheme %s not found", isin), http.StatusNotFound)
		case errors.Is(err, services.ErrInvalidInput):
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			logger.L.Error("Error updating scheme", "isin", isin, "error", err)
			utils.SendJSONError(w, "Error updating scheme", http.StatusInternalServerError)
		}
		return
	}

	// Classification depends on these flags, so cached reports are stale.
	h.holdingService.InvalidateReports()
	logger.L.Info("Scheme updated", "isin", isin, "taxation", meta.Taxation())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(meta); err != nil {
		logger.L.Error("Error encoding JSON response for scheme update", "error", err)
	}
}
