package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"emiho-marketplace/internal/config"
	"emiho-marketplace/internal/models"
	"emiho-marketplace/internal/testutil"

	"github.com/stripe/stripe-go/v81/webhook"
)

const testWebhookSecret = "whsec_test_secret"

var errStoreDown = errors.New("database is down")

func testConfig() *config.Config {
	return &config.Config{
		Currency: "usd",
		AppURL:   "https://market.example.com",
	}
}

// MockGateway is a PaymentGateway whose behaviour is set per test
type MockGateway struct {
	CreateCheckoutSessionFunc func(ctx context.Context, input CheckoutSessionInput) (*GatewaySession, error)
	GetCheckoutSessionFunc    func(ctx context.Context, sessionID string) (*GatewaySession, error)
	CreatePayoutAccountFunc   func(ctx context.Context, email string) (string, error)
	CreateOnboardingLinkFunc  func(ctx context.Context, accountID string) (string, error)
	CreateLoginLinkFunc       func(ctx context.Context, accountID string) (string, error)

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockGateway) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

// Calls returns how often the named method was invoked
func (m *MockGateway) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*GatewaySession, error) {
	m.record("CreateCheckoutSession")
	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, input)
	}
	return &GatewaySession{ID: "cs_test_default", URL: "https://checkout.stripe.com/c/pay/cs_test_default"}, nil
}

func (m *MockGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*GatewaySession, error) {
	m.record("GetCheckoutSession")
	if m.GetCheckoutSessionFunc != nil {
		return m.GetCheckoutSessionFunc(ctx, sessionID)
	}
	return nil, errors.New("no such checkout session")
}

func (m *MockGateway) CreatePayoutAccount(ctx context.Context, email string) (string, error) {
	m.record("CreatePayoutAccount")
	if m.CreatePayoutAccountFunc != nil {
		return m.CreatePayoutAccountFunc(ctx, email)
	}
	return "acct_new123", nil
}

func (m *MockGateway) CreateOnboardingLink(ctx context.Context, accountID string) (string, error) {
	m.record("CreateOnboardingLink")
	if m.CreateOnboardingLinkFunc != nil {
		return m.CreateOnboardingLinkFunc(ctx, accountID)
	}
	return "https://connect.stripe.com/setup/e/" + accountID, nil
}

func (m *MockGateway) CreateLoginLink(ctx context.Context, accountID string) (string, error) {
	m.record("CreateLoginLink")
	if m.CreateLoginLinkFunc != nil {
		return m.CreateLoginLinkFunc(ctx, accountID)
	}
	return "https://connect.stripe.com/express/" + accountID, nil
}

// MockNotifier collects receipts on a channel
type MockNotifier struct {
	Receipts chan Receipt
}

func newMockNotifier() *MockNotifier {
	return &MockNotifier{Receipts: make(chan Receipt, 8)}
}

func (m *MockNotifier) SendReceipt(_ context.Context, receipt Receipt) error {
	m.Receipts <- receipt
	return nil
}

// failingStore breaks transaction writes while keeping reads working
type failingStore struct {
	Store
}

func (f *failingStore) InsertTransactionIfAbsent(context.Context, *models.Transaction) (bool, error) {
	return false, errStoreDown
}

// paidSession is the processor's view of a settled checkout for fx
func paidSession(fx *testutil.Fixture, sessionID, reference string) *GatewaySession {
	return &GatewaySession{
		ID:               sessionID,
		PaymentStatus:    PaymentStatusPaid,
		PaymentReference: reference,
		AmountTotal:      1000,
		Currency:         "usd",
		CustomerEmail:    fx.Buyer.Email,
		Metadata: map[string]string{
			models.MetadataProductID:  fx.Product.ID.String(),
			models.MetadataSellerID:   fx.Seller.ID.String(),
			models.MetadataBuyerEmail: fx.Buyer.Email,
		},
	}
}

// completedEvent is a verified checkout.session.completed event for fx
func completedEvent(fx *testutil.Fixture, eventID, reference string) *models.PaymentEvent {
	s := paidSession(fx, "cs_test_"+eventID, reference)
	return &models.PaymentEvent{
		ID:               eventID,
		Type:             eventCheckoutCompleted,
		Kind:             models.EventPaymentCompleted,
		SessionID:        s.ID,
		PaymentReference: reference,
		AmountTotal:      s.AmountTotal,
		Currency:         s.Currency,
		PaymentStatus:    s.PaymentStatus,
		Metadata:         s.Metadata,
	}
}

// signedEvent builds a raw event body and a valid signature header for it
func signedEvent(t *testing.T, eventID, eventType string, session map[string]interface{}) ([]byte, string) {
	t.Helper()

	payload, err := json.Marshal(map[string]interface{}{
		"id":          eventID,
		"object":      "event",
		"type":        eventType,
		"api_version": "2024-06-20",
		"data":        map[string]interface{}{"object": session},
	})
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  testWebhookSecret,
	})
	return payload, signed.Header
}

func assertKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("error kind = %q, want %q (err: %v)", got, want, err)
	}
}
