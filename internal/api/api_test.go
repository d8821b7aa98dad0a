package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"emiho-marketplace/internal/config"
	"emiho-marketplace/internal/database"
	"emiho-marketplace/internal/middleware"
	"emiho-marketplace/internal/models"
	"emiho-marketplace/internal/services"
	"emiho-marketplace/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stripe/stripe-go/v81/webhook"
)

const (
	testWebhookSecret  = "whsec_api_test"
	testIdentitySecret = "identity-api-test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockGateway is a PaymentGateway for handler tests
type MockGateway struct {
	Sessions      map[string]*services.GatewaySession
	CheckoutCalls int
}

func (m *MockGateway) CreateCheckoutSession(_ context.Context, input services.CheckoutSessionInput) (*services.GatewaySession, error) {
	m.CheckoutCalls++
	return &services.GatewaySession{ID: "cs_test_api", URL: "https://checkout.stripe.com/c/pay/cs_test_api"}, nil
}

func (m *MockGateway) GetCheckoutSession(_ context.Context, id string) (*services.GatewaySession, error) {
	if s, ok := m.Sessions[id]; ok {
		return s, nil
	}
	return nil, errors.New("no such checkout session")
}

func (m *MockGateway) CreatePayoutAccount(context.Context, string) (string, error) {
	return "acct_api", nil
}

func (m *MockGateway) CreateOnboardingLink(_ context.Context, accountID string) (string, error) {
	return "https://connect.stripe.com/setup/" + accountID, nil
}

func (m *MockGateway) CreateLoginLink(_ context.Context, accountID string) (string, error) {
	return "https://connect.stripe.com/express/" + accountID, nil
}

type testServer struct {
	router  *gin.Engine
	store   *database.Store
	fx      *testutil.Fixture
	gateway *MockGateway
}

func newTestServer(t *testing.T, webhookSecret, identitySecret string) *testServer {
	t.Helper()

	store := testutil.NewStore(t)
	fx := testutil.Seed(t, store)
	gateway := &MockGateway{Sessions: map[string]*services.GatewaySession{}}
	cfg := &config.Config{Currency: "usd", AppURL: "https://market.example.com"}

	reconciler := services.NewReconciler(store, nil, nil)
	h := &Handlers{
		Checkout:       services.NewCheckoutService(cfg, store, gateway),
		Verifier:       services.NewEventVerifier(webhookSecret),
		Reconciler:     reconciler,
		Resolver:       services.NewPurchaseResolver(store, gateway, reconciler),
		Onboarding:     services.NewSellerOnboarding(store, gateway),
		Catalog:        services.NewCatalogService(store),
		ServiceName:    "marketplace-test",
		IdentitySecret: identitySecret,
		HealthChecks: map[string]HealthCheck{
			"database": store.Ping,
		},
	}

	r := gin.New()
	SetupRoutes(r, h)
	return &testServer{router: r, store: store, fx: fx, gateway: gateway}
}

func (s *testServer) do(method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) postJSON(path string, payload interface{}, headers map[string]string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	return s.do(http.MethodPost, path, body, headers)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return body
}

func bearer(t *testing.T, subject string) map[string]string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.IdentityClaims{
		Email: "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testIdentitySecret))
	if err != nil {
		t.Fatal(err)
	}
	return map[string]string{"Authorization": "Bearer " + signed}
}

func signedCheckoutEvent(t *testing.T, fx *testutil.Fixture, eventID, reference string, metadata bool) ([]byte, string) {
	t.Helper()
	session := map[string]interface{}{
		"id":             "cs_test_" + eventID,
		"object":         "checkout.session",
		"payment_status": "paid",
		"payment_intent": reference,
		"amount_total":   1000,
		"currency":       "usd",
	}
	if metadata {
		session["metadata"] = map[string]string{
			models.MetadataProductID:  fx.Product.ID.String(),
			models.MetadataSellerID:   fx.Seller.ID.String(),
			models.MetadataBuyerEmail: fx.Buyer.Email,
		}
	}
	payload, err := json.Marshal(map[string]interface{}{
		"id":     eventID,
		"object": "event",
		"type":   "checkout.session.completed",
		"data":   map[string]interface{}{"object": session},
	})
	if err != nil {
		t.Fatal(err)
	}
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: testWebhookSecret})
	return payload, signed.Header
}

func TestCreatePayment(t *testing.T) {
	s := newTestServer(t, testWebhookSecret, "")

	w := s.postJSON("/api/create-payment", gin.H{"productId": s.fx.Product.ID.String(), "buyerEmail": "buyer@example.com"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["success"] != true || body["sessionId"] != "cs_test_api" || body["checkoutUrl"] == "" {
		t.Errorf("body = %v", body)
	}
}

func TestCreatePaymentErrors(t *testing.T) {
	s := newTestServer(t, testWebhookSecret, "")
	unpayable := testutil.SeedProfile(t, s.store, "newbie@example.com", "Newbie", "")
	product := testutil.SeedProduct(t, s.store, unpayable.ID, "3.00")

	w := s.postJSON("/api/create-payment", gin.H{"buyerEmail": "buyer@example.com"}, nil)
	if w.Code != http.StatusBadRequest || decode(t, w)["error"] != "Missing productId or buyerEmail" {
		t.Errorf("missing fields: %d %s", w.Code, w.Body.String())
	}

	w = s.postJSON("/api/create-payment", gin.H{"productId": product.ID.String(), "buyerEmail": "buyer@example.com"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unpayable seller status = %d", w.Code)
	}
	if s.gateway.CheckoutCalls != 0 {
		t.Errorf("gateway called %d times for rejected requests", s.gateway.CheckoutCalls)
	}

	w = s.do(http.MethodPost, "/api/create-payment", []byte("{not json"), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", w.Code)
	}
}

func TestWebhookRecordsOnce(t *testing.T) {
	s := newTestServer(t, testWebhookSecret, "")
	payload, header := signedCheckoutEvent(t, s.fx, "evt_api_1", "pi_api_1", true)

	for i := 0; i < 2; i++ {
		w := s.do(http.MethodPost, "/api/webhook", payload, map[string]string{"Stripe-Signature": header})
		if w.Code != http.StatusOK {
			t.Fatalf("delivery %d status = %d, body %s", i, w.Code, w.Body.String())
		}
		if decode(t, w)["received"] != true {
			t.Errorf("delivery %d body = %s", i, w.Body.String())
		}
	}

	if n := testutil.CountTransactions(t, s.store); n != 1 {
		t.Errorf("transactions = %d, want 1", n)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	s := newTestServer(t, testWebhookSecret, "")
	payload, header := signedCheckoutEvent(t, s.fx, "evt_api_2", "pi_api_2", true)
	tampered := bytes.Replace(payload, []byte(`"amount_total":1000`), []byte(`"amount_total":1`), 1)

	w := s.do(http.MethodPost, "/api/webhook", tampered, map[string]string{"Stripe-Signature": header})
	if w.Code != http.StatusBadRequest {
		t.Errorf("tampered status = %d", w.Code)
	}
	if n := testutil.CountTransactions(t, s.store); n != 0 {
		t.Errorf("transactions = %d, want 0", n)
	}
}

func TestWebhookMissingMetadataAcknowledged(t *testing.T) {
	s := newTestServer(t, testWebhookSecret, "")
	payload, header := signedCheckoutEvent(t, s.fx, "evt_api_3", "pi_api_3", false)

	w := s.do(http.MethodPost, "/api/webhook", payload, map[string]string{"Stripe-Signature": header})
	if w.Code != http.StatusOK || decode(t, w)["received"] != true {
		t.Errorf("status = %d, body %s", w.Code, w.Body.String())
	}
	if n := testutil.CountTransactions(t, s.store); n != 0 {
		t.Errorf("transactions = %d, want 0", n)
	}
}

func TestWebhookWithoutSecretIsServerError(t *testing.T) {
	s := newTestServer(t, "", "")
	payload, header := signedCheckoutEvent(t, s.fx, "evt_api_4", "pi_api_4", true)

	w := s.do(http.MethodPost, "/api/webhook", payload, map[string]string{"Stripe-Signature": header})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestPurchase(t *testing.T) {
	s := newTestServer(t, testWebhookSecret, "")
	s.gateway.Sessions["cs_paid"] = &services.GatewaySession{
		ID:               "cs_paid",
		PaymentStatus:    services.PaymentStatusPaid,
		PaymentReference: "pi_paid",
		AmountTotal:      1000,
		Currency:         "usd",
		Metadata: map[string]string{
			models.MetadataProductID:  s.fx.Product.ID.String(),
			models.MetadataSellerID:   s.fx.Seller.ID.String(),
			models.MetadataBuyerEmail: s.fx.Buyer.Email,
		},
	}

	w := s.postJSON("/api/purchase", gin.H{"session_id": "cs_paid"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	product, ok := decode(t, w)["product"].(map[string]interface{})
	if !ok || product["title"] != s.fx.Product.Title || product["media_type"] != "images" {
		t.Errorf("product = %v", product)
	}

	w = s.postJSON("/api/purchase", gin.H{"session_id": ""}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty session status = %d", w.Code)
	}
}

func TestUserRoutesRequireIdentity(t *testing.T) {
	s := newTestServer(t, testWebhookSecret, testIdentitySecret)
	sellerID := s.fx.Seller.ID.String()

	w := s.do(http.MethodGet, "/api/dashboard/"+sellerID, nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous dashboard status = %d", w.Code)
	}

	w = s.do(http.MethodGet, "/api/dashboard/"+sellerID, nil, bearer(t, s.fx.Buyer.ID.String()))
	if w.Code != http.StatusForbidden {
		t.Errorf("foreign dashboard status = %d", w.Code)
	}

	w = s.do(http.MethodGet, "/api/dashboard/"+sellerID, nil, bearer(t, sellerID))
	if w.Code != http.StatusOK {
		t.Fatalf("own dashboard status = %d, body %s", w.Code, w.Body.String())
	}
	if products, _ := decode(t, w)["products"].([]interface{}); len(products) != 1 {
		t.Errorf("products = %v", products)
	}
}

func TestCreateSellerAccount(t *testing.T) {
	s := newTestServer(t, testWebhookSecret, testIdentitySecret)
	buyerID := s.fx.Buyer.ID.String()

	w := s.postJSON("/api/create-seller-account", gin.H{"userId": buyerID, "email": s.fx.Buyer.Email}, bearer(t, buyerID))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["stripeAccountId"] != "acct_api" || !strings.HasSuffix(body["onboardingUrl"].(string), "acct_api") {
		t.Errorf("body = %v", body)
	}

	w = s.postJSON("/api/create-seller-account", gin.H{"userId": buyerID, "email": s.fx.Buyer.Email}, bearer(t, s.fx.Seller.ID.String()))
	if w.Code != http.StatusForbidden {
		t.Errorf("onboarding another user status = %d", w.Code)
	}
}

func TestStripeLoginLink(t *testing.T) {
	s := newTestServer(t, testWebhookSecret, testIdentitySecret)
	sellerAuth := bearer(t, s.fx.Seller.ID.String())

	w := s.postJSON("/api/stripe-login-link", gin.H{"accountId": "acct_seller123"}, sellerAuth)
	if w.Code != http.StatusOK || decode(t, w)["url"] != "https://connect.stripe.com/express/acct_seller123" {
		t.Errorf("own account: %d %s", w.Code, w.Body.String())
	}

	w = s.postJSON("/api/stripe-login-link", gin.H{"accountId": "acct_someone_else"}, sellerAuth)
	if w.Code != http.StatusForbidden {
		t.Errorf("foreign account status = %d", w.Code)
	}
}

func TestProductsRoutes(t *testing.T) {
	s := newTestServer(t, testWebhookSecret, testIdentitySecret)
	sellerID := s.fx.Seller.ID.String()

	w := s.postJSON("/api/products", gin.H{
		"sellerId":  sellerID,
		"title":     "Drone shots",
		"price":     "4.50",
		"mediaUrls": []string{"https://cdn.example.com/1.jpg"},
		"mediaType": "images",
	}, bearer(t, sellerID))
	if w.Code != http.StatusCreated {
		t.Fatalf("publish status = %d, body %s", w.Code, w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/products", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), s.fx.Seller.Email) {
		t.Error("public listing leaks the seller email")
	}
	products, _ := decode(t, w)["products"].([]interface{})
	if len(products) != 2 {
		t.Fatalf("products = %d, want 2", len(products))
	}
	if first := products[0].(map[string]interface{}); first["seller_name"] != "Sam Seller" {
		t.Errorf("seller_name = %v", first["seller_name"])
	}

	w = s.do(http.MethodGet, "/api/products/"+s.fx.Product.ID.String(), nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get status = %d", w.Code)
	}
	w = s.do(http.MethodGet, "/api/products/not-a-uuid", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testWebhookSecret, "")

	w := s.do(http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK || decode(t, w)["status"] != "ok" {
		t.Errorf("healthy: %d %s", w.Code, w.Body.String())
	}

	r := gin.New()
	SetupRoutes(r, &Handlers{HealthChecks: map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded status = %d", w.Code)
	}
}

func TestWebhookAcknowledgesUnusableEvents(t *testing.T) {
	s := newTestServer(t, testWebhookSecret, "")

	unreadable, _ := json.Marshal(map[string]interface{}{
		"id":     "evt_api_5",
		"object": "event",
		"type":   "checkout.session.completed",
		"data": map[string]interface{}{"object": map[string]interface{}{
			"id":           "cs_bad",
			"object":       "checkout.session",
			"amount_total": "a lot",
		}},
	})
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: unreadable, Secret: testWebhookSecret})

	w := s.do(http.MethodPost, "/api/webhook", unreadable, map[string]string{"Stripe-Signature": signed.Header})
	if w.Code != http.StatusOK || decode(t, w)["received"] != true {
		t.Errorf("unreadable session: %d %s", w.Code, w.Body.String())
	}

	// A listing removed between checkout and settlement.
	payload, header := signedCheckoutEvent(t, s.fx, "evt_api_6", "pi_api_6", true)
	if err := s.store.DB().Exec("DELETE FROM products WHERE id = ?", s.fx.Product.ID).Error; err != nil {
		t.Fatal(err)
	}
	w = s.do(http.MethodPost, "/api/webhook", payload, map[string]string{"Stripe-Signature": header})
	if w.Code != http.StatusOK || decode(t, w)["received"] != true {
		t.Errorf("deleted product: %d %s", w.Code, w.Body.String())
	}

	if n := testutil.CountTransactions(t, s.store); n != 0 {
		t.Errorf("transactions = %d, want 0", n)
	}
}
