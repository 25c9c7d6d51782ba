package catalog

import (
	"path/filepath"
	"strings"
	"testing"

	"kiosk/internal/logger"
	"kiosk/internal/model"
	"kiosk/internal/repository/sqlite"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func newTestRepo(t *testing.T) *sqlite.ProductRepository {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlite.NewProductRepository(db)
}

func TestParseCSV(t *testing.T) {
	input := `name,price,weight,barcode,image_path
Apple,7.00,0.18,7891000,img/apple.png
Banana, 5.99
"Red Grape",12.499,0.5,,
`
	products, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}

	expected := []model.Product{
		{Name: "Apple", Price: 7.00, Weight: 0.18, Barcode: "7891000", ImagePath: "img/apple.png"},
		{Name: "Banana", Price: 5.99},
		{Name: "Red Grape", Price: 12.50, Weight: 0.5},
	}
	if diff := cmp.Diff(expected, products); diff != "" {
		t.Errorf("Products mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCSV_WithoutHeader(t *testing.T) {
	products, err := ParseCSV(strings.NewReader("Kiwi,2.75\n"))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Kiwi" {
		t.Errorf("Unexpected products %+v", products)
	}
}

func TestParseCSV_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing price", "Apple\n"},
		{"bad price", "Apple,cheap\n"},
		{"negative price", "Apple,-1\n"},
		{"bad weight", "Apple,7,heavy\n"},
		{"empty name", " ,7\n"},
	}

	for _, tt := range tests {
		if _, err := ParseCSV(strings.NewReader(tt.input)); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestLoad_SeedsDefaultsWhenEmpty(t *testing.T) {
	repo := newTestRepo(t)

	prices, err := Load(repo, logger.NewDiscard())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if prices.Lookup("Apple") != 7.00 || prices.Lookup("Banana") != 5.99 {
		t.Errorf("Unexpected default prices: Apple=%v Banana=%v", prices.Lookup("Apple"), prices.Lookup("Banana"))
	}
	stored, _ := repo.GetAll()
	if len(stored) != len(model.DefaultProducts()) {
		t.Errorf("Expected %d seeded products, got %d", len(model.DefaultProducts()), len(stored))
	}
}

func TestLoad_UsesStoredProducts(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := Seed(repo, []model.Product{{Name: "Apple", Price: 9.99}}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	prices, err := Load(repo, logger.NewDiscard())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if diff := cmp.Diff([]string{"Apple"}, prices.Labels(), cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("Labels mismatch (-want +got):\n%s", diff)
	}
	if prices.Lookup("Apple") != 9.99 {
		t.Errorf("Expected stored price 9.99, got %v", prices.Lookup("Apple"))
	}
}
