package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"kiosk/internal/logger"
	"kiosk/internal/model"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
)

// FrameSource supplies camera frames. Read errors are transient.
type FrameSource interface {
	ReadFrame() (model.Frame, error)
	Close() error
}

// Detector turns a frame into detections plus an annotated copy of the frame.
// It is synchronous and may be slow.
type Detector interface {
	Detect(frame model.Frame) ([]model.Detection, model.Frame, error)
	Close() error
}

// Display receives frames for the kiosk screen.
type Display interface {
	ShowFrame(kind string, frame model.Frame)
}

// Runner is a long-running stage started alongside capture and detection.
type Runner interface {
	Run(ctx context.Context)
}

// Options tune the pipeline cadence.
type Options struct {
	CaptureInterval time.Duration
	PollTimeout     time.Duration
	Clock           clock.Clock
}

var (
	ErrAlreadyStarted = errors.New("pipeline already started")
	ErrStopped        = errors.New("pipeline stopped")
)

// Pipeline owns the frame source, the detector and the two hand-off slots
// connecting capture, detection and cart reconciliation.
type Pipeline struct {
	source   FrameSource
	detector Detector
	frames   *Slot[model.Frame]
	batches  *Slot[model.Batch]
	capture  *Capture
	worker   *Worker
	logger   *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	closed  bool
}

// New wires a pipeline. The pipeline takes ownership of source and detector
// and closes both in Stop.
func New(opts Options, source FrameSource, detector Detector, display Display, logger *logger.Logger) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	frames := NewSlot[model.Frame]()
	batches := NewSlot[model.Batch]()

	return &Pipeline{
		source:   source,
		detector: detector,
		frames:   frames,
		batches:  batches,
		capture:  NewCapture(source, frames, display, opts.CaptureInterval, opts.Clock, logger),
		worker:   NewWorker(detector, frames, batches, opts.PollTimeout, logger),
		logger:   logger,
	}
}

// Batches is the outbound hand-off consumed by the cart reconciler.
func (p *Pipeline) Batches() *Slot[model.Batch] {
	return p.batches
}

// Start launches capture, detection and every extra runner in their own goroutines.
func (p *Pipeline) Start(ctx context.Context, runners ...Runner) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrStopped
	}
	if p.started {
		return ErrAlreadyStarted
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	stages := append([]Runner{p.capture, p.worker}, runners...)
	for _, stage := range stages {
		p.wg.Add(1)
		go func(r Runner) {
			defer p.wg.Done()
			r.Run(ctx)
		}(stage)
	}

	p.logger.Info("🎬 Pipeline started")
	return nil
}

// Stop cancels all stages, waits for them and releases the detector and the
// frame source. A detection in flight finishes before Stop returns.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	err := multierr.Combine(p.detector.Close(), p.source.Close())
	p.logger.Info("🛑 Pipeline stopped (frames dropped: %d, batches dropped: %d)",
		p.frames.Dropped(), p.batches.Dropped())
	return err
}
