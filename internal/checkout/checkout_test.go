package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"kiosk/internal/cart"
	"kiosk/internal/logger"
	"kiosk/internal/model"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"
)

type fakeStore struct {
	saved []*model.Purchase
	err   error
}

func (s *fakeStore) Save(ctx context.Context, purchase *model.Purchase) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saved = append(s.saved, purchase)
	return "receipt-1", nil
}

type fakeEvidence struct {
	receipts []string
}

func (e *fakeEvidence) Record(receipt string, frame model.Frame, detections []model.Detection) {
	e.receipts = append(e.receipts, receipt)
}

func appleAndBanana() cart.Snapshot {
	return cart.Snapshot{
		Items: map[string]int{"Apple": 2, "Banana": 1},
		Lines: []cart.Line{
			{Label: "Apple", Quantity: 2, UnitPrice: 7.00, Subtotal: 14.00},
			{Label: "Banana", Quantity: 1, UnitPrice: 5.99, Subtotal: 5.99},
		},
		Total:      19.99,
		Annotated:  model.Frame{Data: []byte("jpeg")},
		Detections: []model.Detection{{Label: "Apple", Confidence: 0.9}},
	}
}

func newTestFlow(snapshot cart.Snapshot, store Store) (*Flow, *cart.Board, *fakeEvidence) {
	board := cart.NewBoard()
	board.Publish(snapshot)
	evidence := &fakeEvidence{}
	mock := clock.NewMock()
	mock.Set(time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC))
	flow := NewFlow(board, store, evidence, []string{"credit_card", "pix"}, mock, logger.NewDiscard())
	return flow, board, evidence
}

func TestFlow_HappyPath(t *testing.T) {
	store := &fakeStore{}
	flow, _, evidence := newTestFlow(appleAndBanana(), store)

	if _, err := flow.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := flow.SelectMethod("pix"); err != nil {
		t.Fatalf("SelectMethod failed: %v", err)
	}
	status, err := flow.Confirm(context.Background())
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	if status.State != StateConfirmed || status.Receipt != "receipt-1" {
		t.Errorf("Unexpected status %+v", status)
	}
	if len(store.saved) != 1 {
		t.Fatalf("Expected 1 saved purchase, got %d", len(store.saved))
	}
	purchase := store.saved[0]
	if purchase.Total != 19.99 || purchase.PaymentMethod != "pix" {
		t.Errorf("Unexpected purchase %+v", purchase)
	}
	if diff := cmp.Diff(map[string]int{"Apple": 2, "Banana": 1}, purchase.Items()); diff != "" {
		t.Errorf("Purchase items mismatch (-want +got):\n%s", diff)
	}
	if !purchase.Timestamp.Equal(time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)) {
		t.Errorf("Unexpected timestamp %v", purchase.Timestamp)
	}
	if len(evidence.receipts) != 1 || evidence.receipts[0] != "receipt-1" {
		t.Errorf("Expected evidence for receipt-1, got %v", evidence.receipts)
	}

	if _, err := flow.Confirm(context.Background()); !errors.Is(err, ErrAlreadyConfirmed) {
		t.Errorf("Expected ErrAlreadyConfirmed, got %v", err)
	}
}

func TestFlow_SnapshotIsFrozen(t *testing.T) {
	store := &fakeStore{}
	flow, board, _ := newTestFlow(appleAndBanana(), store)

	if _, err := flow.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// The reconciler keeps publishing while the customer pays.
	board.Publish(cart.Snapshot{Items: map[string]int{}, Total: 0})

	flow.SelectMethod("credit_card")
	if _, err := flow.Confirm(context.Background()); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if store.saved[0].Total != 19.99 {
		t.Errorf("Expected the frozen total 19.99, got %v", store.saved[0].Total)
	}
}

func TestFlow_PersistenceFailureKeepsSnapshot(t *testing.T) {
	store := &fakeStore{err: errors.New("database is locked")}
	flow, _, evidence := newTestFlow(appleAndBanana(), store)

	flow.Start()
	flow.SelectMethod("credit_card")
	status, err := flow.Confirm(context.Background())

	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("Expected ErrPersistence, got %v", err)
	}
	if status.State != StateSelecting {
		t.Errorf("Expected return to payment selection, got %s", status.State)
	}
	if status.Method != "" {
		t.Errorf("Payment method should be cleared, got %q", status.Method)
	}
	if status.Total != 19.99 || status.Items["Apple"] != 2 {
		t.Errorf("Frozen cart should be preserved, got %+v", status)
	}
	if status.LastError == "" {
		t.Error("Expected the failure to be reported")
	}
	if len(evidence.receipts) != 0 {
		t.Error("No evidence should be recorded for a failed purchase")
	}

	// Retry succeeds once the store recovers, without re-scanning.
	store.err = nil
	flow.SelectMethod("pix")
	if _, err := flow.Confirm(context.Background()); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if store.saved[0].Total != 19.99 {
		t.Errorf("Expected retried total 19.99, got %v", store.saved[0].Total)
	}
}

func TestFlow_StartErrors(t *testing.T) {
	flow, _, _ := newTestFlow(cart.Snapshot{Items: map[string]int{}}, &fakeStore{})
	if _, err := flow.Start(); !errors.Is(err, ErrEmptyCart) {
		t.Errorf("Expected ErrEmptyCart, got %v", err)
	}

	unavailable := cart.Unavailable(errors.New("model missing"), time.Now())
	flow, _, _ = newTestFlow(unavailable, &fakeStore{})
	if _, err := flow.Start(); !errors.Is(err, ErrDetectorUnavailable) {
		t.Errorf("Expected ErrDetectorUnavailable, got %v", err)
	}
	if flow.Status().State != StateIdle {
		t.Errorf("Expected idle after failed start, got %s", flow.Status().State)
	}
}

func TestFlow_InvalidTransitions(t *testing.T) {
	flow, _, _ := newTestFlow(appleAndBanana(), &fakeStore{})

	if _, err := flow.SelectMethod("pix"); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Expected ErrNotStarted, got %v", err)
	}
	if _, err := flow.Confirm(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Expected ErrNotStarted, got %v", err)
	}

	flow.Start()
	if _, err := flow.SelectMethod("bitcoin"); !errors.Is(err, ErrUnknownPaymentMethod) {
		t.Errorf("Expected ErrUnknownPaymentMethod, got %v", err)
	}
	if _, err := flow.Confirm(context.Background()); !errors.Is(err, ErrNoPaymentMethod) {
		t.Errorf("Expected ErrNoPaymentMethod, got %v", err)
	}
}

func TestFlow_Cancel(t *testing.T) {
	flow, _, _ := newTestFlow(appleAndBanana(), &fakeStore{})
	flow.Start()
	flow.SelectMethod("pix")

	status := flow.Cancel()

	if status.State != StateIdle || status.Method != "" || status.Items != nil {
		t.Errorf("Expected clean idle status, got %+v", status)
	}
	if len(status.Methods) != 2 {
		t.Errorf("Expected configured methods in status, got %v", status.Methods)
	}
}

func TestFlow_ConfirmWithTimeout(t *testing.T) {
	store := &fakeStore{}
	flow, _, _ := newTestFlow(appleAndBanana(), store)
	flow.Start()
	flow.SelectMethod("pix")

	if _, err := flow.ConfirmWithTimeout(context.Background()); err != nil {
		t.Fatalf("ConfirmWithTimeout failed: %v", err)
	}
	if len(store.saved) != 1 {
		t.Error("Expected purchase to be saved")
	}
}
