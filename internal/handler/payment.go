package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/life-journal/internal/apperror"
	"github.com/sakif/life-journal/internal/payment"
	"github.com/sakif/life-journal/internal/service"
)

// maxWebhookBytes matches the payload ceiling Stripe documents for events.
const maxWebhookBytes = 64 << 10

// PaymentHandler serves checkout creation and both reconciliation paths.
type PaymentHandler struct {
	payments *service.PaymentService
	logger   *slog.Logger
}

func NewPaymentHandler(payments *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

type checkoutResponse struct {
	URL string `json:"url"`
}

// HTTP: POST /payment-checkout-session
// HEADER: Idempotency-Key (optional, forwarded to the processor)
// REQUEST BODY: {"name": "...", "price": 15, "quantity": 1, "email": "..."}
// RESPONSE: {"url": "https://checkout.stripe.com/..."}
func (h *PaymentHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var item payment.CartItem
	if err := readJSON(w, r, &item); err != nil {
		writeError(w, err)
		return
	}
	item.IdempotencyKey = r.Header.Get("Idempotency-Key")

	url, err := h.payments.CreateCheckout(r.Context(), item)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{URL: url})
}

// HandleSuccess is called by the web client after the checkout redirect.
// The session id comes from the client; only the processor's answer about
// that session decides whether anything changes.
//
// HTTP: PATCH /payment/success?session_id=
func (h *PaymentHandler) HandleSuccess(w http.ResponseWriter, r *http.Request) {
	res, err := h.payments.ConfirmSession(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleWebhook receives processor events. The body must be read raw: the
// signature covers the exact bytes sent, so it is never decoded first.
//
// HTTP: POST /webhook
// HEADER: Stripe-Signature: t=...,v1=...
func (h *PaymentHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, apperror.ValidationFailed("body", "webhook payload too large"))
			return
		}
		writeError(w, err)
		return
	}

	if _, err := h.payments.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
