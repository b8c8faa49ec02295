package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/services"
	"github.com/username/fundfolio/backend/src/utils"
)

type TransactionHandler struct {
	holdingService services.HoldingService
}

func NewTransactionHandler(service services.HoldingService) *TransactionHandler {
	return &TransactionHandler{
		holdingService: service,
	}
}

// HandleGetTransactions serves the stored transactions of one holding as
// detail rows carrying the cash amount and running unit balance, identified
// by isin and folio query params.
func (h *TransactionHandler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	isin := r.URL.Query().Get("isin")
	folio := r.URL.Query().Get("folio")
	if isin == "" || folio == "" {
		utils.SendJSONError(w, "isin and folio query params are required", http.StatusBadRequest)
		return
	}

	txns, err := h.holdingService.Transactions(isin, folio)
	if err != nil {
		if errors.Is(err, services.ErrHoldingNotFound) {
			utils.SendJSONError(w, fmt.Sprintf("No transactions found for %s/%s", isin, folio), http.StatusNotFound)
			return
		}
		logger.L.Error("Error retrieving transactions", "isin", isin, "folio", folio, "error", err)
		utils.SendJSONError(w, "Error retrieving transactions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(txns); err != nil {
		logger.L.Error("Error encoding JSON response for transactions", "error", err)
	}
}

// manualTransactionRequest is the POST body for manual transaction entry.
type manualTransactionRequest struct {
	ISIN       string  `json:"isin"`
	Folio      string  `json:"folio"`
	SchemeName string  `json:"scheme_name"`
	Date       string  `json:"date"` // YYYY-MM-DD
	Kind       string  `json:"kind"` // "buy" or "sell"
	Units      float64 `json:"units"`
	Price      float64 `json:"price"`
	Tax        float64 `json:"tax"`
}

// HandleAddTransaction records a hand-entered transaction for a holding, for
// funds that never appear in a CAS statement.
func (h *TransactionHandler) HandleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req manualTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid JSON request body", http.StatusBadRequest)
		return
	}

	date, err := time.Parse(utils.DefaultDateFormat, req.Date)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", req.Date), http.StatusBadRequest)
		return
	}

	txn := models.Transaction{
		Date:  date,
		Kind:  models.TxnKind(req.Kind),
		Units: req.Units,
		Price: req.Price,
		Tax:   req.Tax,
	}
	if err := h.holdingService.AddManualTransaction(req.ISIN, req.Folio, req.SchemeName, txn); err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("Error adding manual transaction", "isin", req.ISIN, "folio", req.Folio, "error", err)
		utils.SendJSONError(w, "Error adding transaction", http.StatusInternalServerError)
		return
	}

	logger.L.Info("Manual transaction recorded", "isin", req.ISIN, "folio", req.Folio, "kind", req.Kind, "units", req.Units)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"status": "transaction recorded"})
}
