package handler

import (
	"context"
	"errors"
	"net/http"

	"kiosk/internal/checkout"
	"kiosk/internal/logger"
)

type checkoutError struct {
	Error  string          `json:"error"`
	Status checkout.Status `json:"status"`
}

// CheckoutStatusHandler handles GET /api/checkout.
func CheckoutStatusHandler(flow *checkout.Flow, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, logger, http.StatusOK, flow.Status())
	}
}

// CheckoutStartHandler freezes the current cart for payment.
func CheckoutStartHandler(flow *checkout.Flow, logger *logger.Logger) http.HandlerFunc {
	return checkoutAction(flow, logger, func(r *http.Request) (checkout.Status, error) {
		return flow.Start()
	})
}

// CheckoutMethodHandler selects the payment method given in the "method" form value.
func CheckoutMethodHandler(flow *checkout.Flow, logger *logger.Logger) http.HandlerFunc {
	return checkoutAction(flow, logger, func(r *http.Request) (checkout.Status, error) {
		return flow.SelectMethod(r.FormValue("method"))
	})
}

// CheckoutConfirmHandler persists the purchase and returns the receipt.
func CheckoutConfirmHandler(flow *checkout.Flow, logger *logger.Logger) http.HandlerFunc {
	return checkoutAction(flow, logger, func(r *http.Request) (checkout.Status, error) {
		return flow.ConfirmWithTimeout(context.WithoutCancel(r.Context()))
	})
}

// CheckoutCancelHandler drops the frozen cart and returns to idle.
func CheckoutCancelHandler(flow *checkout.Flow, logger *logger.Logger) http.HandlerFunc {
	return checkoutAction(flow, logger, func(r *http.Request) (checkout.Status, error) {
		return flow.Cancel(), nil
	})
}

func checkoutAction(flow *checkout.Flow, logger *logger.Logger, action func(r *http.Request) (checkout.Status, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		status, err := action(r)
		if err != nil {
			code := checkoutErrorStatus(err)
			if code == http.StatusInternalServerError {
				logger.Error("Checkout failed: %v", err)
			} else {
				logger.Warning("Checkout rejected: %v", err)
			}
			writeJSON(w, logger, code, checkoutError{Error: err.Error(), Status: status})
			return
		}

		writeJSON(w, logger, http.StatusOK, status)
	}
}

// checkoutErrorStatus maps flow errors onto HTTP status codes.
func checkoutErrorStatus(err error) int {
	switch {
	case errors.Is(err, checkout.ErrUnknownPaymentMethod):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrDetectorUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, checkout.ErrPersistence):
		return http.StatusInternalServerError
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrNotStarted),
		errors.Is(err, checkout.ErrNoPaymentMethod),
		errors.Is(err, checkout.ErrAlreadyConfirmed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
