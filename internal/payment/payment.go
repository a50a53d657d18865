// Package payment is the bridge to the external payment processor. The rest of
// the API sees only the Processor interface: create a checkout session, look
// one up, and turn a signed webhook delivery into an Event.
//
// The buyer's email rides along in the session metadata, so a completed
// session can be matched back to a user without a local orders table.
package payment

import (
	"context"
	"errors"
)

// EventCheckoutCompleted is the only webhook event type the API acts on.
const EventCheckoutCompleted = "checkout.session.completed"

// ErrDisabled is returned by NewStripe when no secret key is configured.
var ErrDisabled = errors.New("payment: processor not configured")

// CartItem is what the client puts in the checkout request. Price is in major
// currency units (dollars for usd) and may carry cents, e.g. 9.99.
//
// IdempotencyKey comes from the request's Idempotency-Key header, not the
// body. A client that retries a checkout with the same key gets the session
// the first attempt created instead of a second one.
type CartItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
	Email    string  `json:"email"`

	IdempotencyKey string `json:"-"`
}

// MaxIdempotencyKeyLength is the longest key Stripe accepts.
const MaxIdempotencyKeyLength = 255

// Session is the processor-neutral view of a checkout session.
type Session struct {
	ID    string `json:"id"`
	URL   string `json:"url,omitempty"`
	Email string `json:"email,omitempty"`
	Paid  bool   `json:"paid"`
}

// Event is a verified webhook delivery. Session is nil for event types that
// don't carry a checkout session.
type Event struct {
	ID      string
	Type    string
	Session *Session
}

type Processor interface {
	CreateCheckoutSession(ctx context.Context, item CartItem) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	// ParseWebhook verifies signature against payload before decoding it.
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
