package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/order"
	"github.com/example/storefront/pkg/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockOrders struct {
	lastInput order.SubmitInput
	order     *models.Order
	orders    []models.Order
	err       error
}

func (m *mockOrders) Submit(_ context.Context, in order.SubmitInput) (*models.Order, error) {
	m.lastInput = in
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func (m *mockOrders) Get(context.Context, string) (*models.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func (m *mockOrders) ListForUser(context.Context, string) ([]models.Order, error) {
	return m.orders, m.err
}

func (m *mockOrders) UpdateStatus(context.Context, string, models.OrderStatus) error {
	return m.err
}

type mockCarts struct {
	carts map[string]*cart.Cart
	err   error
}

func newMockCarts() *mockCarts {
	return &mockCarts{carts: map[string]*cart.Cart{}}
}

func (m *mockCarts) get(sessionID string) *cart.Cart {
	if c, ok := m.carts[sessionID]; ok {
		return c
	}
	c := cart.New(nil)
	m.carts[sessionID] = c
	return c
}

func (m *mockCarts) Load(_ context.Context, sessionID string) (*cart.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.get(sessionID), nil
}

func (m *mockCarts) AddItem(_ context.Context, sessionID string, product cart.ProductSnapshot, quantity int32, variant *cart.Variant) (*cart.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	c := m.get(sessionID)
	c.AddItem(product, quantity, variant)
	return c, nil
}

func (m *mockCarts) UpdateQuantity(_ context.Context, sessionID, itemID string, quantity int32) (*cart.Cart, error) {
	c := m.get(sessionID)
	c.UpdateQuantity(itemID, quantity)
	return c, nil
}

func (m *mockCarts) RemoveItem(_ context.Context, sessionID, itemID string) (*cart.Cart, error) {
	c := m.get(sessionID)
	c.RemoveItem(itemID)
	return c, nil
}

func (m *mockCarts) Clear(_ context.Context, sessionID string) error {
	delete(m.carts, sessionID)
	return m.err
}

type mockPayments struct {
	link string
	err  error
}

func (m *mockPayments) Initialize(context.Context, payment.InitializeRequest) (string, error) {
	return m.link, m.err
}

type mockVerifier struct {
	orderID string
	err     error
}

func (m *mockVerifier) VerifyPayment(context.Context, string, string) (string, error) {
	return m.orderID, m.err
}

type testEnv struct {
	gw       *Gateway
	orders   *mockOrders
	carts    *mockCarts
	payments *mockPayments
	verifier *mockVerifier
}

func newTestGateway(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		orders:   &mockOrders{},
		carts:    newMockCarts(),
		payments: &mockPayments{link: "https://pay.example.com/hosted/abc"},
		verifier: &mockVerifier{orderID: "order-1"},
	}
	cfg := &config.Config{
		Payment: config.PaymentConfig{Currency: "USD", RedirectURL: "https://shop.example.com/callback"},
		Pricing: config.PricingConfig{FreeShippingThreshold: 50, FlatShippingFee: 5.99, TaxRate: 0.08},
	}
	env.gw = NewGateway(cfg, zap.NewNop(), env.carts, env.orders, env.payments, env.verifier)
	env.gw.SetupRoutes()
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.gw.Router().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func orderRequestBody() map[string]interface{} {
	return map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": "prod-a", "product_name": "Widget", "quantity": 2, "unit_price": 20, "total_price": 40},
		},
		"shipping_address": map[string]string{
			"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com",
			"phone": "555-0100", "address": "12 Analytical Way", "city": "London",
			"state": "LDN", "zip_code": "E1 6AN", "country": "UK",
		},
		"total_amount": 43.2,
	}
}

func TestCreateOrderValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"no items", order.ErrNoItems, http.StatusBadRequest, "Order items are required"},
		{"missing address", order.ErrMissingAddress, http.StatusBadRequest, "Shipping address and total amount are required"},
		{"items insert failed", order.ErrCreateOrderItems, http.StatusInternalServerError, "Failed to create order items"},
		{"order insert failed", order.ErrCreateOrder, http.StatusInternalServerError, "Failed to create order"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestGateway(t)
			env.orders.err = tt.err

			w := env.do(t, http.MethodPost, "/api/v1/orders", orderRequestBody(), nil)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, decodeBody(t, w)["error"])
		})
	}
}

func TestCreateOrderSuccess(t *testing.T) {
	env := newTestGateway(t)
	env.orders.order = &models.Order{ID: "order-1", OrderNumber: "ORD-20260829-AAAA1111"}

	w := env.do(t, http.MethodPost, "/api/v1/orders", orderRequestBody(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "order-1", body["orderId"])
	assert.NotNil(t, body["order"])
}

func TestCreateOrderResolvesActorFromHeader(t *testing.T) {
	env := newTestGateway(t)
	env.orders.order = &models.Order{ID: "order-1"}

	env.do(t, http.MethodPost, "/api/v1/orders", orderRequestBody(), nil)
	assert.Nil(t, env.orders.lastInput.UserID)

	env.do(t, http.MethodPost, "/api/v1/orders", orderRequestBody(), map[string]string{userHeader: "user-7"})
	require.NotNil(t, env.orders.lastInput.UserID)
	assert.Equal(t, "user-7", *env.orders.lastInput.UserID)
}

func TestListOrdersRequiresActor(t *testing.T) {
	env := newTestGateway(t)

	w := env.do(t, http.MethodGet, "/api/v1/orders", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/orders", nil, map[string]string{userHeader: "user-7"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVerifyPaymentEndpoint(t *testing.T) {
	env := newTestGateway(t)

	w := env.do(t, http.MethodPost, "/api/v1/payments/verify", map[string]string{
		"transactionId": "tx-1",
		"txRef":         "SF_order-1_abcdef1234",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "order-1", body["orderId"])
}

func TestVerifyPaymentFailureShape(t *testing.T) {
	env := newTestGateway(t)
	env.verifier.err = errors.New("payment not successful: status \"failed\"")

	w := env.do(t, http.MethodPost, "/api/v1/payments/verify", map[string]string{
		"transactionId": "tx-1",
		"txRef":         "SF_order-1_abcdef1234",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestInitializePaymentReturnsLink(t *testing.T) {
	env := newTestGateway(t)
	env.orders.order = &models.Order{
		ID:          "order-1",
		TotalAmount: 59.40,
		Currency:    "USD",
		ShippingAddress: models.ShippingAddress{
			FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		},
	}

	w := env.do(t, http.MethodPost, "/api/v1/payments/initialize", map[string]string{"order_id": "order-1"}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "https://pay.example.com/hosted/abc", body["link"])
	assert.NotEmpty(t, body["tx_ref"])
}

func TestInitializePaymentUnknownOrder(t *testing.T) {
	env := newTestGateway(t)
	env.orders.err = order.ErrOrderNotFound

	w := env.do(t, http.MethodPost, "/api/v1/payments/initialize", map[string]string{"order_id": "missing"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartRequiresSession(t *testing.T) {
	env := newTestGateway(t)

	w := env.do(t, http.MethodGet, "/api/v1/cart", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartAddAndTotals(t *testing.T) {
	env := newTestGateway(t)
	headers := map[string]string{sessionHeader: "sess-1"}

	w := env.do(t, http.MethodPost, "/api/v1/cart/items", map[string]interface{}{
		"product":  map[string]interface{}{"id": "prod-a", "name": "Widget", "price": 100},
		"quantity": 1,
	}, headers)

	require.Equal(t, http.StatusOK, w.Code)
	var view cartView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Len(t, view.Items, 1)
	assert.InDelta(t, 100.0, view.Totals.Subtotal, 1e-9)
	assert.InDelta(t, 8.0, view.Totals.Tax, 1e-9)
	assert.InDelta(t, 0.0, view.Totals.Shipping, 1e-9)
}

func TestHealth(t *testing.T) {
	env := newTestGateway(t)
	w := env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
