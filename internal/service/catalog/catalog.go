package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"kiosk/internal/cart"
	"kiosk/internal/logger"
	"kiosk/internal/model"
	"kiosk/internal/repository"
)

// csvHeader is the expected column order of a product list.
var csvHeader = []string{"name", "price", "weight", "barcode", "image_path"}

// ParseCSV reads products in the name,price,weight,barcode,image_path layout.
// A header row is detected and skipped; weight, barcode and image_path are optional.
func ParseCSV(r io.Reader) ([]model.Product, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var products []model.Product
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), csvHeader[0]) {
			continue
		}

		product, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		products = append(products, product)
	}
	return products, nil
}

func parseRecord(record []string) (model.Product, error) {
	field := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	if len(record) < 2 {
		return model.Product{}, fmt.Errorf("expected at least name and price, got %d field(s)", len(record))
	}

	name := field(0)
	if name == "" {
		return model.Product{}, fmt.Errorf("empty product name")
	}

	price, err := strconv.ParseFloat(field(1), 64)
	if err != nil || price < 0 {
		return model.Product{}, fmt.Errorf("invalid price %q for %s", field(1), name)
	}

	var weight float64
	if w := field(2); w != "" {
		if weight, err = strconv.ParseFloat(w, 64); err != nil {
			return model.Product{}, fmt.Errorf("invalid weight %q for %s", w, name)
		}
	}

	return model.Product{
		Name:      name,
		Price:     cart.RoundCents(price),
		Weight:    weight,
		Barcode:   field(3),
		ImagePath: field(4),
	}, nil
}

// Seed upserts every product and returns how many were written.
func Seed(repo repository.ProductRepository, products []model.Product) (int, error) {
	count := 0
	for i := range products {
		if _, err := repo.Upsert(&products[i]); err != nil {
			return count, fmt.Errorf("failed to upsert %s: %w", products[i].Name, err)
		}
		count++
	}
	return count, nil
}

// Load builds the price table from the product store, seeding the built-in
// catalog when the store is empty.
func Load(repo repository.ProductRepository, logger *logger.Logger) (*cart.Catalog, error) {
	products, err := repo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	if len(products) == 0 {
		products = model.DefaultProducts()
		if _, err := Seed(repo, products); err != nil {
			return nil, err
		}
		logger.Info("📦 Product table empty, seeded %d default products", len(products))
	}

	return cart.CatalogFromProducts(products), nil
}
