package pipeline

import (
	"context"
	"time"

	"kiosk/internal/logger"
	"kiosk/internal/model"
)

// MaxPollTimeout bounds how long the worker waits for a frame before
// re-checking for cancellation.
const MaxPollTimeout = 500 * time.Millisecond

// Worker runs inference on frames handed off by Capture and publishes the
// results for the cart reconciler.
type Worker struct {
	detector    Detector
	frames      *Slot[model.Frame]
	batches     *Slot[model.Batch]
	pollTimeout time.Duration
	logger      *logger.Logger
}

// NewWorker creates the detection worker. pollTimeout is also the longest
// time the worker takes to notice cancellation while idle; values outside
// (0, MaxPollTimeout] are clamped to MaxPollTimeout.
func NewWorker(detector Detector, frames *Slot[model.Frame], batches *Slot[model.Batch], pollTimeout time.Duration, logger *logger.Logger) *Worker {
	if pollTimeout <= 0 || pollTimeout > MaxPollTimeout {
		pollTimeout = MaxPollTimeout
	}
	return &Worker{
		detector:    detector,
		frames:      frames,
		batches:     batches,
		pollTimeout: pollTimeout,
		logger:      logger,
	}
}

// Run loops until ctx is cancelled. Cancellation is observed between
// detections only; a running Detect call always completes.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("🔧 Detection worker started")

	for {
		if ctx.Err() != nil {
			w.logger.Info("🔧 Detection worker stopped")
			return
		}

		frame, ok := w.frames.Receive(w.pollTimeout)
		if !ok {
			continue
		}

		w.Process(frame)
	}
}

// Process runs the detector on one frame and offers the batch downstream.
func (w *Worker) Process(frame model.Frame) {
	batch := w.detect(frame)

	if !w.batches.TryPush(batch) {
		w.logger.Warning("⚠️  Batch slot full - dropping detections for frame %s", frame.CapturedAt.Format(time.RFC3339Nano))
	}
}

// detect never fails: detector errors and panics yield an empty batch
// annotated with the raw frame.
func (w *Worker) detect(frame model.Frame) (batch model.Batch) {
	batch = model.Batch{Annotated: frame, FrameAt: frame.CapturedAt}

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Detector panicked: %v", r)
			batch = model.Batch{Annotated: frame, FrameAt: frame.CapturedAt}
		}
	}()

	detections, annotated, err := w.detector.Detect(frame)
	if err != nil {
		w.logger.Error("Object detection failed: %v", err)
		return batch
	}

	batch.Detections = detections
	if !annotated.Empty() {
		batch.Annotated = annotated
	}
	return batch
}

// DetectFrame runs detector once on frame with the worker's failure
// handling. It serves one-shot runs on still images.
func DetectFrame(detector Detector, frame model.Frame, logger *logger.Logger) model.Batch {
	w := &Worker{detector: detector, logger: logger}
	return w.detect(frame)
}
