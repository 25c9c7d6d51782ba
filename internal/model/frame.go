package model

import "time"

// Frame is a single JPEG-encoded camera image. Data must not be modified after capture.
type Frame struct {
	Data       []byte    `json:"-"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CapturedAt time.Time `json:"captured_at"`
}

// Empty reports whether the frame carries no image data.
func (f Frame) Empty() bool {
	return len(f.Data) == 0
}

// Frame kinds sent to the display.
const (
	FrameKindLive      = "frame"
	FrameKindAnnotated = "annotated"
)
