package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/services"
	"github.com/username/fundfolio/backend/src/utils"
)

type PortfolioHandler struct {
	holdingService services.HoldingService
}

func NewPortfolioHandler(service services.HoldingService) *PortfolioHandler {
	return &PortfolioHandler{
		holdingService: service,
	}
}

// HandleGetHoldings serves the per-holding summaries. Query params:
//
//	fy                  - restrict realized figures to one financial year
//	hide_exited_before  - hide exited holdings whose last txn predates this date
//	categories          - comma separated category names
//	subcategories       - comma separated category/subcategory pairs
func (h *PortfolioHandler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	summaries, err := h.holdingService.HoldingSummaries(filter)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("Error retrieving holding summaries", "error", err)
		utils.SendJSONError(w, "Error retrieving holding summaries", http.StatusInternalServerError)
		return
	}

	writeJSONWithETag(w, r, summaries)
}

// HandleGetGains serves matched-lot detail rows, optionally for one financial
// year via the fy query param.
func (h *PortfolioHandler) HandleGetGains(w http.ResponseWriter, r *http.Request) {
	details, err := h.holdingService.GainDetails(r.URL.Query().Get("fy"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("Error retrieving gain details", "error", err)
		utils.SendJSONError(w, "Error retrieving gain details", http.StatusInternalServerError)
		return
	}

	writeJSONWithETag(w, r, details)
}

// HandleGetOpenLots serves the unsold buy lots across all holdings.
func (h *PortfolioHandler) HandleGetOpenLots(w http.ResponseWriter, r *http.Request) {
	details, err := h.holdingService.OpenLots()
	if err != nil {
		logger.L.Error("Error retrieving open lots", "error", err)
		utils.SendJSONError(w, "Error retrieving open lots", http.StatusInternalServerError)
		return
	}

	writeJSONWithETag(w, r, details)
}

// HandleGetDiagnostics serves the defective-holding and unclassified-gain
// diagnostics.
func (h *PortfolioHandler) HandleGetDiagnostics(w http.ResponseWriter, r *http.Request) {
	diags, err := h.holdingService.Diagnostics()
	if err != nil {
		logger.L.Error("Error retrieving diagnostics", "error", err)
		utils.SendJSONError(w, "Error retrieving diagnostics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(diags); err != nil {
		logger.L.Error("Error encoding JSON response for diagnostics", "error", err)
	}
}

// HandleRefreshNAVs triggers a NAV table refresh and portfolio recalculation.
func (h *PortfolioHandler) HandleRefreshNAVs(w http.ResponseWriter, r *http.Request) {
	if err := h.holdingService.RefreshNAVs(); err != nil {
		logger.L.Error("NAV refresh failed", "error", err)
		utils.SendJSONError(w, fmt.Sprintf("NAV refresh failed: %v", err), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "nav table refreshed"})
}

func filterFromQuery(r *http.Request) (services.HoldingFilter, error) {
	q := r.URL.Query()
	filter := services.HoldingFilter{
		FinancialYear: q.Get("fy"),
	}

	if cutoff := q.Get("hide_exited_before"); cutoff != "" {
		date, err := time.Parse(utils.DefaultDateFormat, cutoff)
		if err != nil {
			return filter, fmt.Errorf("invalid hide_exited_before date %q, expected YYYY-MM-DD", cutoff)
		}
		filter.HideExitedBefore = date
	}

	if cats := q.Get("categories"); cats != "" {
		for _, cat := range strings.Split(cats, ",") {
			if cat = strings.TrimSpace(cat); cat != "" {
				filter.Categories = append(filter.Categories, cat)
			}
		}
	}

	if subs := q.Get("subcategories"); subs != "" {
		filter.Subcategories = make(map[string][]string)
		for _, pair := range strings.Split(subs, ",") {
			category, subcategory, found := strings.Cut(strings.TrimSpace(pair), "/")
			if !found || category == "" || subcategory == "" {
				return filter, fmt.Errorf("invalid subcategory selector %q, expected category/subcategory", pair)
			}
			filter.Subcategories[category] = append(filter.Subcategories[category], subcategory)
		}
	}

	return filter, nil
}

// writeJSONWithETag encodes data as JSON with an ETag so clients polling the
// portfolio endpoints can skip unchanged payloads.
func writeJSONWithETag(w http.ResponseWriter, r *http.Request, data interface{}) {
	currentETag, etagErr := utils.GenerateETag(data)

	w.Header().Set("Cache-Control", "no-cache, private")
	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("%q", currentETag)
		w.Header().Set("ETag", quotedETag)
		for _, clientETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(clientETag) == quotedETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	} else {
		logger.L.Warn("Proceeding without ETag check", "error", etagErr)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.L.Error("Error encoding JSON response", "error", err)
	}
}
