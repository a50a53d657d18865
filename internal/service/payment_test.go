package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/life-journal/internal/apperror"
	"github.com/sakif/life-journal/internal/model"
	"github.com/sakif/life-journal/internal/payment"
	"github.com/sakif/life-journal/internal/repository/sqlite"
)

// =========================================================================
// FAKE PROCESSOR
// =========================================================================

// fakeProcessor is an in-memory payment.Processor. Sessions are looked up by
// id; webhook deliveries are accepted only with signature "valid".
type fakeProcessor struct {
	sessions map[string]*payment.Session
	created  []payment.CartItem
	event    *payment.Event
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{sessions: make(map[string]*payment.Session)}
}

func (f *fakeProcessor) CreateCheckoutSession(_ context.Context, item payment.CartItem) (*payment.Session, error) {
	f.created = append(f.created, item)
	s := &payment.Session{ID: "cs_new", URL: "https://checkout.example/cs_new", Email: item.Email}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeProcessor) GetSession(_ context.Context, id string) (*payment.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperror.NotFound("payment session", id)
	}
	return s, nil
}

func (f *fakeProcessor) ParseWebhook(_ []byte, signature string) (*payment.Event, error) {
	if signature != "valid" {
		return nil, apperror.ValidationFailed("Stripe-Signature", "webhook signature verification failed")
	}
	return f.event, nil
}

func newTestPaymentService(t *testing.T) (*PaymentService, *fakeProcessor, *sqlite.DB) {
	t.Helper()
	db := newTestStore(t)
	seedUser(t, db, "ana@x.io", "Ana", model.RoleFree)
	proc := newFakeProcessor()
	return NewPaymentService(proc, db.Users(), testLogger()), proc, db
}

func roleOf(t *testing.T, db *sqlite.DB, email string) (string, string) {
	t.Helper()
	u, err := db.Users().GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	return u.Role, u.PaymentStatus
}

// =========================================================================
// CHECKOUT
// =========================================================================

func TestCreateCheckout(t *testing.T) {
	svc, proc, _ := newTestPaymentService(t)

	url, err := svc.CreateCheckout(context.Background(), payment.CartItem{Name: "Premium", Price: 15, Email: "ana@x.io"})
	if err != nil {
		t.Fatalf("CreateCheckout() error = %v", err)
	}
	if url != "https://checkout.example/cs_new" {
		t.Errorf("url = %q", url)
	}
	if len(proc.created) != 1 || proc.created[0].Quantity != 1 {
		t.Errorf("processor got %+v, want one item with quantity defaulted to 1", proc.created)
	}
}

func TestCreateCheckout_Validation(t *testing.T) {
	svc, _, _ := newTestPaymentService(t)

	for name, item := range map[string]payment.CartItem{
		"no name":           {Price: 15, Email: "ana@x.io"},
		"zero price":        {Name: "Premium", Email: "ana@x.io"},
		"negative quantity": {Name: "Premium", Price: 15, Quantity: -2, Email: "ana@x.io"},
		"no email":          {Name: "Premium", Price: 15},
		"idempotency key too long": {Name: "Premium", Price: 15, Email: "ana@x.io",
			IdempotencyKey: strings.Repeat("k", payment.MaxIdempotencyKeyLength+1)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateCheckout(context.Background(), item)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("CreateCheckout() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestPayments_DisabledWithoutProcessor(t *testing.T) {
	db := newTestStore(t)
	svc := NewPaymentService(nil, db.Users(), testLogger())

	if _, err := svc.CreateCheckout(context.Background(), payment.CartItem{}); !errors.Is(err, apperror.ErrUnavailable) {
		t.Errorf("CreateCheckout() error = %v, want ErrUnavailable", err)
	}
	if _, err := svc.ConfirmSession(context.Background(), "cs_1"); !errors.Is(err, apperror.ErrUnavailable) {
		t.Errorf("ConfirmSession() error = %v, want ErrUnavailable", err)
	}
	if _, err := svc.HandleWebhook(context.Background(), nil, "valid"); !errors.Is(err, apperror.ErrUnavailable) {
		t.Errorf("HandleWebhook() error = %v, want ErrUnavailable", err)
	}
}

// =========================================================================
// RECONCILIATION
// =========================================================================

func TestConfirmSession_IsIdempotent(t *testing.T) {
	svc, proc, db := newTestPaymentService(t)
	proc.sessions["cs_paid"] = &payment.Session{ID: "cs_paid", Email: "ana@x.io", Paid: true}

	for i := 1; i <= 2; i++ {
		res, err := svc.ConfirmSession(context.Background(), "cs_paid")
		if err != nil {
			t.Fatalf("ConfirmSession() #%d error = %v", i, err)
		}
		if !res.Paid || !res.Updated {
			t.Errorf("ConfirmSession() #%d = %+v, want paid and updated", i, res)
		}
		role, status := roleOf(t, db, "ana@x.io")
		if role != model.RolePremium || status != model.PaymentPaid {
			t.Errorf("after #%d: role=%q status=%q, want Premium/Paid", i, role, status)
		}
	}
}

func TestConfirmSession_UnpaidChangesNothing(t *testing.T) {
	svc, proc, db := newTestPaymentService(t)
	proc.sessions["cs_open"] = &payment.Session{ID: "cs_open", Email: "ana@x.io"}

	res, err := svc.ConfirmSession(context.Background(), "cs_open")
	if err != nil {
		t.Fatalf("ConfirmSession() error = %v", err)
	}
	if res.Paid || res.Updated {
		t.Errorf("ConfirmSession() = %+v, want unpaid and not updated", res)
	}
	if role, _ := roleOf(t, db, "ana@x.io"); role != model.RoleFree {
		t.Errorf("role = %q, want unchanged %q", role, model.RoleFree)
	}
}

func TestConfirmSession_Errors(t *testing.T) {
	svc, _, _ := newTestPaymentService(t)

	if _, err := svc.ConfirmSession(context.Background(), ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("ConfirmSession(\"\") error = %v, want ErrValidation", err)
	}
	if _, err := svc.ConfirmSession(context.Background(), "cs_missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ConfirmSession(missing) error = %v, want ErrNotFound", err)
	}
}

func TestHandleWebhook(t *testing.T) {
	svc, proc, db := newTestPaymentService(t)
	proc.event = &payment.Event{
		ID:      "evt_1",
		Type:    payment.EventCheckoutCompleted,
		Session: &payment.Session{ID: "cs_1", Email: "ana@x.io", Paid: true},
	}

	if _, err := svc.HandleWebhook(context.Background(), []byte("{}"), "forged"); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("HandleWebhook(forged) error = %v, want ErrValidation", err)
	}
	if role, _ := roleOf(t, db, "ana@x.io"); role != model.RoleFree {
		t.Fatalf("forged webhook changed role to %q", role)
	}

	res, err := svc.HandleWebhook(context.Background(), []byte("{}"), "valid")
	if err != nil {
		t.Fatalf("HandleWebhook() error = %v", err)
	}
	if res == nil || !res.Updated {
		t.Errorf("HandleWebhook() = %+v, want updated", res)
	}
	if role, status := roleOf(t, db, "ana@x.io"); role != model.RolePremium || status != model.PaymentPaid {
		t.Errorf("role=%q status=%q, want Premium/Paid", role, status)
	}
}

func TestHandleWebhook_IgnoresOtherEvents(t *testing.T) {
	svc, proc, db := newTestPaymentService(t)
	proc.event = &payment.Event{ID: "evt_2", Type: "customer.created"}

	res, err := svc.HandleWebhook(context.Background(), []byte("{}"), "valid")
	if err != nil {
		t.Fatalf("HandleWebhook() error = %v", err)
	}
	if res != nil {
		t.Errorf("HandleWebhook() = %+v, want nil for ignored event", res)
	}
	if role, _ := roleOf(t, db, "ana@x.io"); role != model.RoleFree {
		t.Errorf("role = %q, want unchanged", role)
	}
}
