package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kiosk/internal/cart"
	"kiosk/internal/checkout"
	"kiosk/internal/config"
	"kiosk/internal/logger"
	"kiosk/internal/model"
	"kiosk/internal/repository/sqlite"

	"github.com/google/go-cmp/cmp"
)

type testEnv struct {
	board     *cart.Board
	flow      *checkout.Flow
	products  *sqlite.ProductRepository
	purchases *sqlite.PurchaseRepository
	evidence  *sqlite.EvidenceRepository
	logger    *logger.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "kiosk.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logger.NewDiscard()
	board := cart.NewBoard()
	purchases := sqlite.NewPurchaseRepository(db)
	return &testEnv{
		board:     board,
		flow:      checkout.NewFlow(board, purchases, nil, []string{"credit_card", "pix"}, nil, log),
		products:  sqlite.NewProductRepository(db),
		purchases: purchases,
		evidence:  sqlite.NewEvidenceRepository(db),
		logger:    log,
	}
}

func (e *testEnv) publishCart() {
	e.board.Publish(cart.Snapshot{
		Items: map[string]int{"Apple": 2, "Banana": 1},
		Lines: []cart.Line{
			{Label: "Apple", Quantity: 2, UnitPrice: 7.00, Subtotal: 14.00},
			{Label: "Banana", Quantity: 1, UnitPrice: 5.99, Subtotal: 5.99},
		},
		Total:  19.99,
		Status: "Detected: Apple (90%)",
	})
}

func post(t *testing.T, h http.HandlerFunc, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
}

// ========================================
// Helper Tests
// ========================================

func TestAtoiDefault(t *testing.T) {
	tests := []struct {
		input    string
		def      int
		expected int
	}{
		{"10", 5, 10},
		{"", 5, 5},
		{"abc", 10, 10},
		{"-1", 5, 5},
		{"0", 5, 5},
	}

	for _, tt := range tests {
		if result := atoiDefault(tt.input, tt.def); result != tt.expected {
			t.Errorf("atoiDefault(%q, %d) = %d, expected %d", tt.input, tt.def, result, tt.expected)
		}
	}
}

// ========================================
// Cart Tests
// ========================================

func TestCartHandler_ReturnsLatestSnapshot(t *testing.T) {
	env := newTestEnv(t)
	env.publishCart()

	rec := httptest.NewRecorder()
	CartHandler(env.board, env.logger)(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var snapshot cart.Snapshot
	decode(t, rec, &snapshot)
	if diff := cmp.Diff(map[string]int{"Apple": 2, "Banana": 1}, snapshot.Items); diff != "" {
		t.Errorf("Items mismatch (-want +got):\n%s", diff)
	}
	if snapshot.Total != 19.99 {
		t.Errorf("Expected total 19.99, got %v", snapshot.Total)
	}
}

func TestCartHandler_RejectsPost(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	CartHandler(env.board, env.logger)(rec, httptest.NewRequest(http.MethodPost, "/api/cart", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestProductsHandler_SortedByName(t *testing.T) {
	env := newTestEnv(t)
	for _, p := range []model.Product{{Name: "Orange", Price: 4.5}, {Name: "Apple", Price: 7}} {
		p := p
		if _, err := env.products.Upsert(&p); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	ProductsHandler(env.products, env.logger)(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	var products []model.Product
	decode(t, rec, &products)
	if len(products) != 2 || products[0].Name != "Apple" || products[1].Name != "Orange" {
		t.Errorf("Unexpected products %+v", products)
	}
}

// ========================================
// Checkout Tests
// ========================================

func TestCheckout_FullFlow(t *testing.T) {
	env := newTestEnv(t)
	env.publishCart()

	rec := post(t, CheckoutStartHandler(env.flow, env.logger), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Start: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = post(t, CheckoutMethodHandler(env.flow, env.logger), url.Values{"method": {"pix"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("Method: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = post(t, CheckoutConfirmHandler(env.flow, env.logger), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Confirm: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var status checkout.Status
	decode(t, rec, &status)
	if status.State != checkout.StateConfirmed || status.Receipt == "" {
		t.Fatalf("Expected confirmed with receipt, got %+v", status)
	}

	saved, err := env.purchases.GetByReceipt(status.Receipt)
	if err != nil || saved == nil {
		t.Fatalf("Purchase not stored: %v", err)
	}
	if saved.Total != 19.99 || saved.PaymentMethod != "pix" {
		t.Errorf("Unexpected stored purchase %+v", saved)
	}
	if diff := cmp.Diff(map[string]int{"Apple": 2, "Banana": 1}, saved.Items()); diff != "" {
		t.Errorf("Stored items mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckout_ErrorStatusCodes(t *testing.T) {
	env := newTestEnv(t)

	rec := post(t, CheckoutStartHandler(env.flow, env.logger), nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("Empty cart: expected 409, got %d", rec.Code)
	}

	rec = post(t, CheckoutConfirmHandler(env.flow, env.logger), nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("Confirm before start: expected 409, got %d", rec.Code)
	}

	env.publishCart()
	post(t, CheckoutStartHandler(env.flow, env.logger), nil)

	rec = post(t, CheckoutMethodHandler(env.flow, env.logger), url.Values{"method": {"bitcoin"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Unknown method: expected 400, got %d", rec.Code)
	}
	var body checkoutError
	decode(t, rec, &body)
	if body.Error == "" || body.Status.State != checkout.StateSelecting {
		t.Errorf("Expected error body with selecting state, got %+v", body)
	}
}

func TestCheckout_DetectorUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.board.Publish(cart.Unavailable(os.ErrNotExist, time.Now()))

	rec := post(t, CheckoutStartHandler(env.flow, env.logger), nil)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}

func TestCheckout_CancelReturnsIdle(t *testing.T) {
	env := newTestEnv(t)
	env.publishCart()
	post(t, CheckoutStartHandler(env.flow, env.logger), nil)

	rec := post(t, CheckoutCancelHandler(env.flow, env.logger), nil)

	var status checkout.Status
	decode(t, rec, &status)
	if status.State != checkout.StateIdle {
		t.Errorf("Expected idle after cancel, got %s", status.State)
	}
}

func TestCheckout_ActionsRequirePost(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	CheckoutStartHandler(env.flow, env.logger)(rec, httptest.NewRequest(http.MethodGet, "/api/checkout/start", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

// ========================================
// Purchases Tests
// ========================================

func TestGetPurchasesHandler(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		_, err := env.purchases.Save(context.Background(), &model.Purchase{
			Lines:         []model.PurchaseLine{{Label: "Apple", Quantity: 1, UnitPrice: 7, Subtotal: 7}},
			Total:         7,
			PaymentMethod: "cash",
			Timestamp:     time.Now().Add(-time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	GetPurchasesHandler(env.purchases, env.logger)(rec, httptest.NewRequest(http.MethodGet, "/api/purchases?limit=2", nil))

	var data struct {
		Purchases   []model.Purchase   `json:"purchases"`
		DailyTotals map[string]float64 `json:"dailyTotals"`
		Limit       int                `json:"pageSize"`
	}
	decode(t, rec, &data)
	if len(data.Purchases) != 2 || data.Limit != 2 {
		t.Errorf("Expected 2 purchases with limit 2, got %d / %d", len(data.Purchases), data.Limit)
	}
	var sum float64
	for _, v := range data.DailyTotals {
		sum += v
	}
	if cart.RoundCents(sum) != 21 {
		t.Errorf("Expected daily totals summing to 21, got %v", data.DailyTotals)
	}
}

func TestViewEvidenceHandler(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "evidence.jpg")
	if err := os.WriteFile(path, []byte("jpeg"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := env.evidence.Insert(&model.Evidence{Receipt: "r-1", Filename: "evidence.jpg", FilePath: path, FileSize: 4, Timestamp: time.Now()}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	h := ViewEvidenceHandler(env.evidence, env.logger)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/purchases/evidence?receipt=r-1", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "jpeg" {
		t.Errorf("Expected evidence image, got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/purchases/evidence?receipt=missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Unknown receipt: expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/purchases/evidence", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Missing receipt: expected 400, got %d", rec.Code)
	}
}

// ========================================
// Auth & Logs Tests
// ========================================

func TestLoginHandler(t *testing.T) {
	cfg := &config.Config{Password: "secret"}
	h := LoginHandler(cfg, logger.NewDiscard())

	rec := post(t, h, url.Values{"password": {"wrong"}})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Wrong password: expected 401, got %d", rec.Code)
	}

	rec = post(t, h, url.Values{"password": {"secret"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("Expected redirect, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != AuthCookieName || cookies[0].Value != "true" {
		t.Errorf("Expected auth cookie, got %v", cookies)
	}
}

func TestLogoutHandler_ClearsCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	LogoutHandler(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("Expected expired cookie, got %v", cookies)
	}
}

func TestShowLogsHandler(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{LogDirectory: dir}

	rec := httptest.NewRecorder()
	ShowInfoLogsHandler(cfg)(rec, httptest.NewRequest(http.MethodGet, "/logs/info", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Missing log: expected 404, got %d", rec.Code)
	}

	if err := os.WriteFile(filepath.Join(dir, "info.log"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	rec = httptest.NewRecorder()
	ShowInfoLogsHandler(cfg)(rec, httptest.NewRequest(http.MethodGet, "/logs/info", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "hello" {
		t.Errorf("Expected log contents, got %d %q", rec.Code, rec.Body.String())
	}
}
