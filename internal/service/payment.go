package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/life-journal/internal/apperror"
	"github.com/sakif/life-journal/internal/payment"
	"github.com/sakif/life-journal/internal/repository"
)

// PaymentService bridges checkout sessions to user premium status.
//
// There are two reconciliation paths. ConfirmSession is called by the web
// client after the redirect and trusts the session id it is given; the
// session is still fetched from the processor, so only a genuinely paid
// session upgrades anyone. HandleWebhook is the authoritative path and
// verifies the processor's signature first. Both apply the same idempotent
// MarkPaid.
type PaymentService struct {
	processor payment.Processor
	users     repository.UserRepository
	logger    *slog.Logger
}

// NewPaymentService accepts a nil processor; every operation then fails
// with apperror.ErrUnavailable.
func NewPaymentService(processor payment.Processor, users repository.UserRepository, logger *slog.Logger) *PaymentService {
	return &PaymentService{processor: processor, users: users, logger: logger}
}

// ConfirmResult reports the outcome of a reconciliation.
type ConfirmResult struct {
	SessionID string `json:"sessionId"`
	Email     string `json:"email,omitempty"`
	Paid      bool   `json:"paid"`
	// Updated is true when a user record matched the session email.
	Updated bool `json:"updated"`
}

func (s *PaymentService) enabled() error {
	if s.processor == nil {
		return apperror.Unavailable("payments are not configured")
	}
	return nil
}

// CreateCheckout opens a checkout session and returns its redirect URL.
func (s *PaymentService) CreateCheckout(ctx context.Context, item payment.CartItem) (string, error) {
	if err := s.enabled(); err != nil {
		return "", err
	}

	item.Name = strings.TrimSpace(item.Name)
	item.Email = strings.TrimSpace(item.Email)
	item.IdempotencyKey = strings.TrimSpace(item.IdempotencyKey)
	if item.Quantity == 0 {
		item.Quantity = 1
	}

	switch {
	case item.Name == "":
		return "", apperror.ValidationFailed("name", "item name is required")
	case item.Price <= 0:
		return "", apperror.ValidationFailed("price", "price must be greater than zero")
	case item.Quantity < 0:
		return "", apperror.ValidationFailed("quantity", "quantity must be positive")
	case item.Email == "":
		return "", apperror.ValidationFailed("email", "buyer email is required")
	case len(item.IdempotencyKey) > payment.MaxIdempotencyKeyLength:
		return "", apperror.ValidationFailed("Idempotency-Key",
			fmt.Sprintf("idempotency key must be %d characters or less", payment.MaxIdempotencyKeyLength))
	}

	session, err := s.processor.CreateCheckoutSession(ctx, item)
	if err != nil {
		s.logger.Error("failed to create checkout session",
			slog.String("email", item.Email),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("creating checkout session: %w", err)
	}

	s.logger.Info("checkout session created",
		slog.String("session", session.ID),
		slog.String("email", item.Email),
	)
	return session.URL, nil
}

// ConfirmSession reconciles a session the client says it completed.
func (s *PaymentService) ConfirmSession(ctx context.Context, sessionID string) (*ConfirmResult, error) {
	if err := s.enabled(); err != nil {
		return nil, err
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperror.ValidationFailed("session_id", "session_id is required")
	}

	session, err := s.processor.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, session)
}

// HandleWebhook verifies and applies a processor event. Events other than a
// completed checkout are acknowledged and ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*ConfirmResult, error) {
	if err := s.enabled(); err != nil {
		return nil, err
	}

	event, err := s.processor.ParseWebhook(payload, signature)
	if err != nil {
		s.logger.Warn("rejected webhook delivery", slog.String("error", err.Error()))
		return nil, err
	}

	if event.Type != payment.EventCheckoutCompleted || event.Session == nil {
		s.logger.Debug("ignoring webhook event",
			slog.String("id", event.ID),
			slog.String("type", event.Type),
		)
		return nil, nil
	}
	return s.reconcile(ctx, event.Session)
}

func (s *PaymentService) reconcile(ctx context.Context, session *payment.Session) (*ConfirmResult, error) {
	result := &ConfirmResult{SessionID: session.ID, Email: session.Email, Paid: session.Paid}
	if !session.Paid {
		return result, nil
	}
	if session.Email == "" {
		return nil, apperror.ValidationFailed("email", "paid session carries no buyer email")
	}

	matched, err := s.users.MarkPaid(ctx, session.Email)
	if err != nil {
		s.logger.Error("failed to activate premium",
			slog.String("email", session.Email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("marking %s paid: %w", session.Email, err)
	}
	result.Updated = matched

	if matched {
		s.logger.Info("user premium activated",
			slog.String("email", session.Email),
			slog.String("session", session.ID),
		)
	} else {
		s.logger.Warn("paid session for unknown user",
			slog.String("email", session.Email),
			slog.String("session", session.ID),
		)
	}
	return result, nil
}
