package sqlite

import (
	"database/sql"
	"fmt"

	"kiosk/internal/model"
)

// ProductRepository implements repository.ProductRepository for SQLite.
type ProductRepository struct {
	db *DB
}

// NewProductRepository creates a new SQLite product repository.
func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Upsert inserts a product or updates the existing one with the same name.
func (r *ProductRepository) Upsert(p *model.Product) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	var id int64
	err := r.db.Conn().QueryRow(`
		INSERT INTO products (name, price, weight, barcode, image_path)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			price = excluded.price,
			weight = excluded.weight,
			barcode = excluded.barcode,
			image_path = excluded.image_path
		RETURNING id
	`, p.Name, p.Price, p.Weight, p.Barcode, p.ImagePath).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert product: %w", err)
	}

	p.ID = id
	return id, nil
}

// GetAll retrieves the whole catalog ordered by name.
func (r *ProductRepository) GetAll() ([]model.Product, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, name, price, weight, COALESCE(barcode, ''), COALESCE(image_path, '')
		FROM products ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Weight, &p.Barcode, &p.ImagePath); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// GetByName retrieves a product by its detector label. Returns nil if missing.
func (r *ProductRepository) GetByName(name string) (*model.Product, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var p model.Product
	err := r.db.Conn().QueryRow(`
		SELECT id, name, price, weight, COALESCE(barcode, ''), COALESCE(image_path, '')
		FROM products WHERE name = ?
	`, name).Scan(&p.ID, &p.Name, &p.Price, &p.Weight, &p.Barcode, &p.ImagePath)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// Delete removes a product from the catalog.
func (r *ProductRepository) Delete(name string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM products WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}
