package dto

import (
	"time"

	"kiosk/internal/cart"
)

// Message types sent over the kiosk websocket.
const (
	MessageCart = "cart"
)

// FrameMessage carries one base64 JPEG frame to the kiosk display.
type FrameMessage struct {
	Type       string    `json:"type"` // model.FrameKindLive or model.FrameKindAnnotated
	Image      string    `json:"image"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CapturedAt time.Time `json:"captured_at"`
}

// CartMessage carries the latest cart snapshot to the kiosk display.
type CartMessage struct {
	Type string `json:"type"`
	cart.Snapshot
}
