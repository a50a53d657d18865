package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/sakif/life-journal/internal/apperror"
)

const metadataEmail = "email"

// StripeConfig carries the settings NewStripe needs.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	// ClientURL is the web client's origin; checkout redirects back to it.
	ClientURL string
}

// Stripe implements Processor with Stripe Checkout.
type Stripe struct {
	api           *client.API
	webhookSecret string
	currency      string
	clientURL     string
}

var _ Processor = (*Stripe)(nil)

// NewStripe returns ErrDisabled when cfg.SecretKey is empty so callers can
// run the API with payments switched off.
func NewStripe(cfg StripeConfig) (*Stripe, error) {
	if cfg.SecretKey == "" {
		return nil, ErrDisabled
	}
	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	return &Stripe{
		api:           client.New(cfg.SecretKey, nil),
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
		clientURL:     strings.TrimRight(cfg.ClientURL, "/"),
	}, nil
}

// toMinorUnits converts 9.99 into 999. Rounding absorbs float error such as
// 19.99*100 == 1998.9999999999998.
func toMinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

// checkoutParams builds a one-line-item payment-mode session.
func (s *Stripe) checkoutParams(ctx context.Context, item CartItem) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(item.Email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(item.Name),
					},
					UnitAmount: stripe.Int64(toMinorUnits(item.Price)),
				},
				Quantity: stripe.Int64(item.Quantity),
			},
		},
		// Stripe substitutes {CHECKOUT_SESSION_ID} before redirecting.
		SuccessURL: stripe.String(s.clientURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.clientURL + "/payment/cancelled"),
	}
	params.Context = ctx
	params.AddMetadata(metadataEmail, item.Email)
	if item.IdempotencyKey != "" {
		params.SetIdempotencyKey(item.IdempotencyKey)
	}
	return params
}

func (s *Stripe) CreateCheckoutSession(ctx context.Context, item CartItem) (*Session, error) {
	cs, err := s.api.CheckoutSessions.New(s.checkoutParams(ctx, item))
	if err != nil {
		return nil, fmt.Errorf("payment: creating checkout session: %w", err)
	}
	return toSession(cs), nil
}

func (s *Stripe) GetSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	cs, err := s.api.CheckoutSessions.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, apperror.NotFound("payment session", id)
		}
		return nil, fmt.Errorf("payment: retrieving checkout session %s: %w", id, err)
	}
	return toSession(cs), nil
}

// ParseWebhook checks the Stripe-Signature header (HMAC-SHA256 over the raw
// body with a timestamp tolerance) and decodes the event. The API version
// check is skipped so a dashboard upgrade doesn't start rejecting deliveries.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (*Event, error) {
	if s.webhookSecret == "" {
		return nil, apperror.Unavailable("webhook secret not configured")
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, apperror.ValidationFailed("Stripe-Signature", "webhook signature verification failed")
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if out.Type == EventCheckoutCompleted && ev.Data != nil {
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
			return nil, apperror.ValidationFailed("data", "malformed checkout session in webhook event")
		}
		out.Session = toSession(&cs)
	}
	return out, nil
}

// toSession prefers the metadata email the API stamped at creation time and
// falls back to what the buyer typed into the Stripe form.
func toSession(cs *stripe.CheckoutSession) *Session {
	email := cs.Metadata[metadataEmail]
	if email == "" && cs.CustomerDetails != nil {
		email = cs.CustomerDetails.Email
	}
	if email == "" {
		email = cs.CustomerEmail
	}

	return &Session{
		ID:    cs.ID,
		URL:   cs.URL,
		Email: email,
		Paid:  cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}
}
