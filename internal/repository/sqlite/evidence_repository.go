package sqlite

import (
	"database/sql"
	"fmt"

	"kiosk/internal/model"
)

// EvidenceRepository implements repository.EvidenceRepository for SQLite.
type EvidenceRepository struct {
	db *DB
}

// NewEvidenceRepository creates a new SQLite evidence repository.
func NewEvidenceRepository(db *DB) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

// Insert adds a new evidence record to the database.
func (r *EvidenceRepository) Insert(ev *model.Evidence) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO evidence (receipt, filename, filepath, filesize, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, ev.Receipt, ev.Filename, ev.FilePath, ev.FileSize, ev.Timestamp.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert evidence: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read evidence id: %w", err)
	}
	ev.ID = id
	return id, nil
}

// InsertDetections adds the detections of an evidence frame in a single transaction.
func (r *EvidenceRepository) InsertDetections(detections []model.EvidenceDetection) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO evidence_detections (evidence_id, label, x1, y1, x2, y2, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, det := range detections {
		if _, err := stmt.Exec(det.EvidenceID, det.Label, det.Box.X1, det.Box.Y1, det.Box.X2, det.Box.Y2, det.Confidence); err != nil {
			return fmt.Errorf("failed to insert evidence detection: %w", err)
		}
	}

	return tx.Commit()
}

// GetByReceipt retrieves the newest evidence frame for a receipt. Returns nil if missing.
func (r *EvidenceRepository) GetByReceipt(receipt string) (*model.Evidence, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var ev model.Evidence
	err := r.db.Conn().QueryRow(`
		SELECT id, receipt, filename, filepath, filesize, timestamp
		FROM evidence WHERE receipt = ? ORDER BY id DESC LIMIT 1
	`, receipt).Scan(&ev.ID, &ev.Receipt, &ev.Filename, &ev.FilePath, &ev.FileSize, &ev.Timestamp)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evidence: %w", err)
	}
	return &ev, nil
}

// GetDetections retrieves all detections stored for an evidence frame.
func (r *EvidenceRepository) GetDetections(evidenceID int64) ([]model.EvidenceDetection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, evidence_id, label, x1, y1, x2, y2, confidence
		FROM evidence_detections WHERE evidence_id = ?
	`, evidenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query evidence detections: %w", err)
	}
	defer rows.Close()

	var detections []model.EvidenceDetection
	for rows.Next() {
		var det model.EvidenceDetection
		if err := rows.Scan(&det.ID, &det.EvidenceID, &det.Label, &det.Box.X1, &det.Box.Y1, &det.Box.X2, &det.Box.Y2, &det.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan evidence detection: %w", err)
		}
		detections = append(detections, det)
	}

	return detections, rows.Err()
}
