package handler

import (
	"net/http"
	"sort"

	"kiosk/internal/cart"
	"kiosk/internal/logger"
	"kiosk/internal/repository"
)

// CartHandler returns the latest cart snapshot.
func CartHandler(board *cart.Board, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, logger, http.StatusOK, board.Latest())
	}
}

// ProductsHandler returns the product catalog sorted by name.
func ProductsHandler(productRepo repository.ProductRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		products, err := productRepo.GetAll()
		if err != nil {
			logger.Error("Error querying products from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })

		writeJSON(w, logger, http.StatusOK, products)
	}
}
