package repository

import (
	"context"

	"kiosk/internal/model"
)

// ProductRepository defines the interface for catalog operations.
type ProductRepository interface {
	// Create / update operations
	Upsert(p *model.Product) (int64, error)

	// Read operations
	GetAll() ([]model.Product, error)
	GetByName(name string) (*model.Product, error)

	// Delete operations
	Delete(name string) error
}

// PurchaseRepository defines the interface for finalized purchases.
type PurchaseRepository interface {
	// Create operations
	Save(ctx context.Context, purchase *model.Purchase) (string, error)

	// Read operations
	GetByReceipt(receipt string) (*model.Purchase, error)
	GetRecent(limit int) ([]model.Purchase, error)
	GetDailyTotals(days int) (map[string]float64, error)
}

// EvidenceRepository defines the interface for stored checkout frames.
type EvidenceRepository interface {
	// Create operations
	Insert(ev *model.Evidence) (int64, error)
	InsertDetections(detections []model.EvidenceDetection) error

	// Read operations
	GetByReceipt(receipt string) (*model.Evidence, error)
	GetDetections(evidenceID int64) ([]model.EvidenceDetection, error)
}
