package dto

import (
	"time"

	"kiosk/internal/model"
)

// BufferedImage holds an evidence frame and its detections before flushing to disk.
type BufferedImage struct {
	Timestamp  time.Time
	Receipt    string
	Detections []model.Detection
	Data       []byte
}
