package cart

import (
	"math"
	"sort"
	"sync"

	"kiosk/internal/model"
)

// UnknownItemPrice is charged for labels missing from the price table.
const UnknownItemPrice = 0.00

// PriceTable maps an item label to its unit price. Lookup is total: unknown
// labels return UnknownItemPrice.
type PriceTable interface {
	Lookup(label string) float64
}

// Catalog is an in-memory PriceTable loaded from the product store.
type Catalog struct {
	mu     sync.RWMutex
	prices map[string]float64
}

// NewCatalog builds a catalog from a label to price map.
func NewCatalog(prices map[string]float64) *Catalog {
	c := &Catalog{prices: make(map[string]float64, len(prices))}
	for label, price := range prices {
		c.prices[label] = price
	}
	return c
}

// CatalogFromProducts builds a catalog from product records.
func CatalogFromProducts(products []model.Product) *Catalog {
	prices := make(map[string]float64, len(products))
	for _, p := range products {
		prices[p.Name] = p.Price
	}
	return NewCatalog(prices)
}

// Lookup implements PriceTable.
func (c *Catalog) Lookup(label string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if price, ok := c.prices[label]; ok {
		return price
	}
	return UnknownItemPrice
}

// Replace swaps the whole price list, e.g. after the catalog was edited.
func (c *Catalog) Replace(prices map[string]float64) {
	next := make(map[string]float64, len(prices))
	for label, price := range prices {
		next[label] = price
	}
	c.mu.Lock()
	c.prices = next
	c.mu.Unlock()
}

// Labels returns the known labels in alphabetical order.
func (c *Catalog) Labels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	labels := make([]string, 0, len(c.prices))
	for label := range c.prices {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Total returns Σ quantity × price, rounded to cents.
func Total(items map[string]int, prices PriceTable) float64 {
	var total float64
	for label, quantity := range items {
		total += float64(quantity) * prices.Lookup(label)
	}
	return RoundCents(total)
}

// RoundCents rounds an amount to two decimal places.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
