package model

import "time"

// PurchaseLine is one cart entry priced at checkout time.
type PurchaseLine struct {
	Label     string  `json:"label"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

// Purchase represents a finalized purchase record.
type Purchase struct {
	ID            int64          `json:"id"`
	Receipt       string         `json:"receipt"`
	Lines         []PurchaseLine `json:"lines"`
	Total         float64        `json:"total"`
	PaymentMethod string         `json:"payment_method"`
	Timestamp     time.Time      `json:"timestamp"`
}

// Items returns the purchased quantities keyed by label.
func (p *Purchase) Items() map[string]int {
	items := make(map[string]int, len(p.Lines))
	for _, line := range p.Lines {
		items[line.Label] += line.Quantity
	}
	return items
}
