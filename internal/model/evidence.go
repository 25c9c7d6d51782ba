package model

import "time"

// Evidence represents an annotated frame stored for a purchase.
type Evidence struct {
	ID        int64     `json:"id"`
	Receipt   string    `json:"receipt"`
	Filename  string    `json:"filename"`
	FilePath  string    `json:"filepath"`
	FileSize  int64     `json:"filesize"`
	Timestamp time.Time `json:"timestamp"`
}

// EvidenceDetection is a detection visible on a stored evidence frame.
type EvidenceDetection struct {
	ID         int64       `json:"id"`
	EvidenceID int64       `json:"evidence_id"`
	Label      string      `json:"label"`
	Box        BoundingBox `json:"box"`
	Confidence float64     `json:"confidence"`
}
