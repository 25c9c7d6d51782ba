package model

import "time"

// BoundingBox is a pixel rectangle given by its top-left and bottom-right corners.
type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Detection represents one object found on one frame.
type Detection struct {
	Label      string      `json:"label"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}

// Batch holds all detections of a single inference call together with the
// frame annotated for display.
type Batch struct {
	Detections []Detection
	Annotated  Frame
	FrameAt    time.Time
}
