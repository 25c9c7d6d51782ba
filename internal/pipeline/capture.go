package pipeline

import (
	"context"
	"time"

	"kiosk/internal/logger"
	"kiosk/internal/model"

	"github.com/benbjohnson/clock"
)

// Capture pulls frames from the source on a fixed tick and offers them to the
// detection worker. It never waits on inference: a frame that finds the
// hand-off slot occupied is dropped.
type Capture struct {
	source   FrameSource
	frames   *Slot[model.Frame]
	display  Display
	interval time.Duration
	clock    clock.Clock
	logger   *logger.Logger
}

// NewCapture creates a capture scheduler. display may be nil.
func NewCapture(source FrameSource, frames *Slot[model.Frame], display Display, interval time.Duration, clk clock.Clock, logger *logger.Logger) *Capture {
	return &Capture{
		source:   source,
		frames:   frames,
		display:  display,
		interval: interval,
		clock:    clk,
		logger:   logger,
	}
}

// Run ticks until ctx is cancelled.
func (c *Capture) Run(ctx context.Context) {
	ticker := c.clock.Ticker(c.interval)
	defer ticker.Stop()

	c.logger.Info("📷 Capture started (every %s)", c.interval)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("📷 Capture stopped")
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Tick reads one frame, offers it to the worker and shows it on the display.
func (c *Capture) Tick() {
	frame, err := c.source.ReadFrame()
	if err != nil {
		c.logger.Warning("Frame read failed, skipping tick: %v", err)
		return
	}

	c.frames.TryPush(frame)

	if c.display != nil {
		c.display.ShowFrame(model.FrameKindLive, frame)
	}
}
