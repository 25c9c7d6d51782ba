package model

// Product represents a catalog entry the detector can recognize.
type Product struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Weight    float64 `json:"weight"`
	Barcode   string  `json:"barcode,omitempty"`
	ImagePath string  `json:"image_path,omitempty"`
}

// DefaultProducts is the built-in fruit catalog used when no product list is provided.
func DefaultProducts() []Product {
	return []Product{
		{Name: "Apple", Price: 7.00, Weight: 0.18},
		{Name: "Banana", Price: 5.99, Weight: 0.12},
		{Name: "Orange", Price: 4.50, Weight: 0.20},
		{Name: "Lemon", Price: 3.20, Weight: 0.10},
		{Name: "Pear", Price: 6.40, Weight: 0.17},
		{Name: "Mango", Price: 8.90, Weight: 0.30},
		{Name: "Kiwi", Price: 2.75, Weight: 0.07},
	}
}
