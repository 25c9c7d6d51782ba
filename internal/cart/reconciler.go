package cart

import (
	"context"
	"fmt"
	"time"

	"kiosk/internal/logger"
	"kiosk/internal/model"

	"github.com/benbjohnson/clock"
)

// DefaultHistoryTimeout is how long an item stays in the cart without being detected.
const DefaultHistoryTimeout = time.Second

// Status messages.
const (
	StatusNothingDetected = "Nothing detected"
	statusDetected        = "Detected: %s (%.0f%%)"
	statusLastSeen        = "Last seen: %s"
)

// BatchSource is the non-blocking outbound side of the detection hand-off.
type BatchSource interface {
	TryReceive() (model.Batch, bool)
}

// FrameDisplay receives annotated frames for the kiosk screen.
type FrameDisplay interface {
	ShowFrame(kind string, frame model.Frame)
}

// Options tune the reconciler.
type Options struct {
	Interval       time.Duration
	HistoryTimeout time.Duration
	Clock          clock.Clock
}

// Reconciler turns noisy per-frame detections into a stable cart.
//
// Every label seen in a batch has its last-seen time refreshed; labels not
// seen for longer than the history timeout are evicted. A label still in
// history but missing from the current batch is counted once, so a single
// missed frame does not empty the cart. The history is owned by the
// goroutine calling Tick.
type Reconciler struct {
	batches  BatchSource
	prices   PriceTable
	sinks    []Sink
	display  FrameDisplay
	interval time.Duration
	timeout  time.Duration
	clock    clock.Clock
	logger   *logger.Logger

	history  map[string]time.Time
	evidence model.Batch
	seq      uint64
}

// NewReconciler creates a reconciler publishing to sinks. display may be nil.
func NewReconciler(opts Options, batches BatchSource, prices PriceTable, display FrameDisplay, logger *logger.Logger, sinks ...Sink) *Reconciler {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.HistoryTimeout <= 0 {
		opts.HistoryTimeout = DefaultHistoryTimeout
	}
	return &Reconciler{
		batches:  batches,
		prices:   prices,
		sinks:    sinks,
		display:  display,
		interval: opts.Interval,
		timeout:  opts.HistoryTimeout,
		clock:    opts.Clock,
		logger:   logger,
		history:  make(map[string]time.Time),
	}
}

// Run ticks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := r.clock.Ticker(r.interval)
	defer ticker.Stop()

	r.logger.Info("🛒 Cart reconciler started (every %s, timeout %s)", r.interval, r.timeout)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("🛒 Cart reconciler stopped")
			return
		case <-ticker.C:
			r.Tick()
		}
	}
}

// Tick performs one reconciliation step and publishes the resulting snapshot.
func (r *Reconciler) Tick() Snapshot {
	now := r.clock.Now()

	batch, ok := r.batches.TryReceive()
	if !ok {
		batch = model.Batch{}
	}

	counts := make(map[string]int, len(batch.Detections))
	for _, det := range batch.Detections {
		r.history[det.Label] = now
		counts[det.Label]++
	}

	for label, seen := range r.history {
		if now.Sub(seen) > r.timeout {
			delete(r.history, label)
			r.logger.Info("Removed %s from cart (not seen for %s)", label, now.Sub(seen).Round(time.Millisecond))
		}
	}

	items := make(map[string]int, len(r.history))
	for label := range r.history {
		if n := counts[label]; n > 0 {
			items[label] = n
		} else {
			items[label] = 1
		}
	}

	if len(batch.Detections) > 0 {
		r.evidence = batch
	} else if len(r.history) == 0 {
		r.evidence = model.Batch{}
	}

	r.seq++
	snapshot := Snapshot{
		Items:      items,
		Lines:      buildLines(items, r.prices),
		Total:      Total(items, r.prices),
		Status:     r.status(batch.Detections),
		Seq:        r.seq,
		At:         now,
		Annotated:  r.evidence.Annotated,
		Detections: r.evidence.Detections,
	}

	if ok && r.display != nil && !batch.Annotated.Empty() {
		r.display.ShowFrame(model.FrameKindAnnotated, batch.Annotated)
	}
	for _, sink := range r.sinks {
		sink.Publish(snapshot)
	}
	return snapshot
}

// History returns a copy of the last-seen times. Like Tick, it must not be
// called while Run is active on another goroutine.
func (r *Reconciler) History() map[string]time.Time {
	history := make(map[string]time.Time, len(r.history))
	for label, seen := range r.history {
		history[label] = seen
	}
	return history
}

func (r *Reconciler) status(detections []model.Detection) string {
	if len(detections) > 0 {
		best := detections[0]
		for _, det := range detections[1:] {
			if det.Confidence > best.Confidence {
				best = det
			}
		}
		return fmt.Sprintf(statusDetected, best.Label, best.Confidence*100)
	}

	var lastLabel string
	var lastSeen time.Time
	for label, seen := range r.history {
		if lastLabel == "" || seen.After(lastSeen) || (seen.Equal(lastSeen) && label < lastLabel) {
			lastLabel, lastSeen = label, seen
		}
	}
	if lastLabel != "" {
		return fmt.Sprintf(statusLastSeen, lastLabel)
	}
	return StatusNothingDetected
}
