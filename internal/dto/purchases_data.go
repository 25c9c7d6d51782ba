package dto

import "kiosk/internal/model"

// PurchasesData is the payload of the operator purchases screen.
type PurchasesData struct {
	Purchases   []model.Purchase   `json:"purchases"`
	DailyTotals map[string]float64 `json:"dailyTotals"`
	Length      int                `json:"length"`
	Limit       int                `json:"pageSize"`
}
