package handler

import (
	"net/http"
	"os"

	"kiosk/internal/dto"
	"kiosk/internal/logger"
	"kiosk/internal/repository"
)

const (
	defaultPurchasesLimit = 50
	dailyTotalsDays       = 30
)

// GetPurchasesHandler returns the most recent purchases together with daily totals.
func GetPurchasesHandler(purchaseRepo repository.PurchaseRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := atoiDefault(r.URL.Query().Get("limit"), defaultPurchasesLimit)

		purchases, err := purchaseRepo.GetRecent(limit)
		if err != nil {
			logger.Error("Error querying purchases from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totals, err := purchaseRepo.GetDailyTotals(dailyTotalsDays)
		if err != nil {
			logger.Error("Error computing daily totals: %v", err)
			totals = map[string]float64{}
		}

		writeJSON(w, logger, http.StatusOK, dto.PurchasesData{
			Purchases:   purchases,
			DailyTotals: totals,
			Length:      len(purchases),
			Limit:       limit,
		})
	}
}

// ViewEvidenceHandler serves the annotated frame stored for the "receipt" query parameter.
func ViewEvidenceHandler(evidenceRepo repository.EvidenceRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		receipt := r.URL.Query().Get("receipt")
		if receipt == "" {
			http.Error(w, "Receipt parameter is required", http.StatusBadRequest)
			return
		}

		evidence, err := evidenceRepo.GetByReceipt(receipt)
		if err != nil {
			logger.Error("Error querying evidence for %s: %v", receipt, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if evidence == nil {
			http.NotFound(w, r)
			return
		}

		if _, err := os.Stat(evidence.FilePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, evidence.FilePath)
	}
}
