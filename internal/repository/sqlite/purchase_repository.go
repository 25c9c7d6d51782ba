package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kiosk/internal/model"

	"github.com/google/uuid"
)

// PurchaseRepository implements repository.PurchaseRepository for SQLite.
type PurchaseRepository struct {
	db *DB
}

// NewPurchaseRepository creates a new SQLite purchase repository.
func NewPurchaseRepository(db *DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Save stores the purchase with its lines in one transaction and returns the
// new receipt id. The purchase itself is not modified.
func (r *PurchaseRepository) Save(ctx context.Context, purchase *model.Purchase) (string, error) {
	r.db.Lock()
	defer r.db.Unlock()

	receipt := uuid.NewString()

	tx, err := r.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO purchases (receipt, timestamp, total_amount, payment_method)
		VALUES (?, ?, ?, ?)
	`, receipt, purchase.Timestamp.UTC(), purchase.Total, purchase.PaymentMethod)
	if err != nil {
		return "", fmt.Errorf("failed to insert purchase: %w", err)
	}

	purchaseID, err := result.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("failed to read purchase id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO purchase_items (purchase_id, label, quantity, unit_price, subtotal)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, line := range purchase.Lines {
		if _, err := stmt.ExecContext(ctx, purchaseID, line.Label, line.Quantity, line.UnitPrice, line.Subtotal); err != nil {
			return "", fmt.Errorf("failed to insert purchase item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit purchase: %w", err)
	}

	return receipt, nil
}

// GetByReceipt retrieves a purchase with its lines. Returns nil if missing.
func (r *PurchaseRepository) GetByReceipt(receipt string) (*model.Purchase, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var p model.Purchase
	err := r.db.Conn().QueryRow(`
		SELECT id, receipt, timestamp, total_amount, payment_method
		FROM purchases WHERE receipt = ?
	`, receipt).Scan(&p.ID, &p.Receipt, &p.Timestamp, &p.Total, &p.PaymentMethod)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}

	if p.Lines, err = r.getLines(p.ID); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetRecent returns the latest purchases, newest first.
func (r *PurchaseRepository) GetRecent(limit int) ([]model.Purchase, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, receipt, timestamp, total_amount, payment_method
		FROM purchases ORDER BY timestamp DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchases: %w", err)
	}

	var purchases []model.Purchase
	for rows.Next() {
		var p model.Purchase
		if err := rows.Scan(&p.ID, &p.Receipt, &p.Timestamp, &p.Total, &p.PaymentMethod); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchases: %w", err)
	}

	// Single connection: lines can only be loaded once the outer rows are closed.
	for i := range purchases {
		if purchases[i].Lines, err = r.getLines(purchases[i].ID); err != nil {
			return nil, err
		}
	}
	return purchases, nil
}

// GetDailyTotals sums purchase totals per day over the last N days.
func (r *PurchaseRepository) GetDailyTotals(days int) (map[string]float64, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := r.db.Conn().Query(`
		SELECT DATE(timestamp), SUM(total_amount)
		FROM purchases WHERE timestamp >= ?
		GROUP BY DATE(timestamp)
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var day string
		var total float64
		if err := rows.Scan(&day, &total); err != nil {
			return nil, fmt.Errorf("failed to scan daily total: %w", err)
		}
		totals[day] = total
	}
	return totals, rows.Err()
}

func (r *PurchaseRepository) getLines(purchaseID int64) ([]model.PurchaseLine, error) {
	rows, err := r.db.Conn().Query(`
		SELECT label, quantity, unit_price, subtotal
		FROM purchase_items WHERE purchase_id = ? ORDER BY label
	`, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase items: %w", err)
	}
	defer rows.Close()

	var lines []model.PurchaseLine
	for rows.Next() {
		var line model.PurchaseLine
		if err := rows.Scan(&line.Label, &line.Quantity, &line.UnitPrice, &line.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan purchase item: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
