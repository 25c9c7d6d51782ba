package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kiosk/internal/cart"
	"kiosk/internal/logger"
	"kiosk/internal/model"

	"github.com/benbjohnson/clock"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrDetectorUnavailable  = errors.New("detector unavailable")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	ErrNotStarted           = errors.New("checkout not started")
	ErrNoPaymentMethod      = errors.New("payment method not selected")
	ErrAlreadyConfirmed     = errors.New("purchase already confirmed")
	ErrPersistence          = errors.New("purchase could not be saved")
)

// State of the checkout flow.
type State string

const (
	StateIdle      State = "idle"
	StateSelecting State = "selecting"
	StateConfirmed State = "confirmed"
)

// SnapshotSource provides the current cart.
type SnapshotSource interface {
	Latest() cart.Snapshot
}

// Store persists a finalized purchase and returns its receipt id.
type Store interface {
	Save(ctx context.Context, purchase *model.Purchase) (string, error)
}

// EvidenceRecorder keeps the annotated frame of a confirmed purchase.
type EvidenceRecorder interface {
	Record(receipt string, frame model.Frame, detections []model.Detection)
}

// Status is the externally visible state of the flow.
type Status struct {
	State     State          `json:"state"`
	Items     map[string]int `json:"items,omitempty"`
	Lines     []cart.Line    `json:"lines,omitempty"`
	Total     float64        `json:"total"`
	Method    string         `json:"method,omitempty"`
	Methods   []string       `json:"methods"`
	Receipt   string         `json:"receipt,omitempty"`
	LastError string         `json:"last_error,omitempty"`
}

// Flow freezes the cart on operator request and turns it into a purchase
// once a payment method is confirmed. It is safe for concurrent use.
type Flow struct {
	source   SnapshotSource
	store    Store
	evidence EvidenceRecorder
	methods  []string
	clock    clock.Clock
	logger   *logger.Logger

	mu        sync.Mutex
	state     State
	snapshot  cart.Snapshot
	method    string
	receipt   string
	lastError string
}

// NewFlow creates a checkout flow. evidence may be nil.
func NewFlow(source SnapshotSource, store Store, evidence EvidenceRecorder, methods []string, clk clock.Clock, logger *logger.Logger) *Flow {
	if clk == nil {
		clk = clock.New()
	}
	return &Flow{
		source:   source,
		store:    store,
		evidence: evidence,
		methods:  append([]string(nil), methods...),
		clock:    clk,
		logger:   logger,
		state:    StateIdle,
	}
}

// Start freezes the current cart and moves to payment selection. Starting
// again while selecting refreshes the frozen cart.
func (f *Flow) Start() (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := f.source.Latest()
	if snapshot.Error != "" {
		return f.statusLocked(), fmt.Errorf("%w: %s", ErrDetectorUnavailable, snapshot.Error)
	}
	if snapshot.Empty() {
		return f.statusLocked(), ErrEmptyCart
	}

	f.state = StateSelecting
	f.snapshot = snapshot
	f.method = ""
	f.receipt = ""
	f.lastError = ""
	f.logger.Info("🧾 Checkout started: %d item(s), total %.2f", len(snapshot.Items), snapshot.Total)
	return f.statusLocked(), nil
}

// SelectMethod chooses the payment method for the frozen cart.
func (f *Flow) SelectMethod(method string) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateSelecting {
		return f.statusLocked(), ErrNotStarted
	}
	if !f.knownMethod(method) {
		return f.statusLocked(), fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, method)
	}

	f.method = method
	return f.statusLocked(), nil
}

// Confirm records the purchase. On a persistence failure the flow returns to
// payment selection with the frozen cart intact.
func (f *Flow) Confirm(ctx context.Context) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case f.state == StateConfirmed:
		return f.statusLocked(), ErrAlreadyConfirmed
	case f.state != StateSelecting:
		return f.statusLocked(), ErrNotStarted
	case f.method == "":
		return f.statusLocked(), ErrNoPaymentMethod
	}

	purchase := f.buildPurchase()
	receipt, err := f.store.Save(ctx, purchase)
	if err != nil {
		f.logger.Error("Failed to save purchase (%s, %.2f): %v", purchase.PaymentMethod, purchase.Total, err)
		f.method = ""
		f.lastError = err.Error()
		return f.statusLocked(), fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	f.state = StateConfirmed
	f.receipt = receipt
	f.lastError = ""
	f.logger.Info("✅ Purchase %s saved: %.2f via %s", receipt, purchase.Total, purchase.PaymentMethod)

	if f.evidence != nil && !f.snapshot.Annotated.Empty() {
		f.evidence.Record(receipt, f.snapshot.Annotated, f.snapshot.Detections)
	}
	return f.statusLocked(), nil
}

// Cancel drops the frozen cart and returns to idle.
func (f *Flow) Cancel() Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = StateIdle
	f.snapshot = cart.Snapshot{}
	f.method = ""
	f.receipt = ""
	f.lastError = ""
	return f.statusLocked()
}

// Status returns the current state of the flow.
func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusLocked()
}

func (f *Flow) buildPurchase() *model.Purchase {
	lines := make([]model.PurchaseLine, 0, len(f.snapshot.Lines))
	for _, line := range f.snapshot.Lines {
		lines = append(lines, model.PurchaseLine{
			Label:     line.Label,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
		})
	}
	return &model.Purchase{
		Lines:         lines,
		Total:         f.snapshot.Total,
		PaymentMethod: f.method,
		Timestamp:     f.clock.Now(),
	}
}

func (f *Flow) knownMethod(method string) bool {
	for _, m := range f.methods {
		if m == method {
			return true
		}
	}
	return false
}

func (f *Flow) statusLocked() Status {
	status := Status{
		State:     f.state,
		Method:    f.method,
		Methods:   f.methods,
		Receipt:   f.receipt,
		LastError: f.lastError,
	}
	if f.state != StateIdle {
		status.Items = f.snapshot.Items
		status.Lines = f.snapshot.Lines
		status.Total = f.snapshot.Total
	}
	return status
}

// confirmTimeout bounds a single Save call issued from an HTTP request.
const confirmTimeout = 5 * time.Second

// ConfirmWithTimeout is Confirm with the default persistence deadline.
func (f *Flow) ConfirmWithTimeout(ctx context.Context) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()
	return f.Confirm(ctx)
}
