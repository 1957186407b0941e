package order

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockStore struct {
	m        sync.Mutex
	orders   map[string]*models.Order
	items    map[string][]models.OrderItem
	addrs    map[string]*models.UserAddress
	profiles map[string]*models.UserProfile

	failCreateOrder bool
	failCreateItems bool
	failAddress     bool
	failProfile     bool
}

func newMockStore() *mockStore {
	return &mockStore{
		orders:   map[string]*models.Order{},
		items:    map[string][]models.OrderItem{},
		addrs:    map[string]*models.UserAddress{},
		profiles: map[string]*models.UserProfile{},
	}
}

func (s *mockStore) CreateOrder(_ context.Context, order *models.Order) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.failCreateOrder {
		return errors.New("insert failed")
	}
	cp := *order
	s.orders[order.ID] = &cp
	return nil
}

func (s *mockStore) CreateOrderItems(_ context.Context, items []models.OrderItem) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.failCreateItems {
		return errors.New("insert failed")
	}
	for _, item := range items {
		s.items[item.OrderID] = append(s.items[item.OrderID], item)
	}
	return nil
}

func (s *mockStore) DeleteOrder(_ context.Context, orderID string) error {
	s.m.Lock()
	defer s.m.Unlock()
	delete(s.orders, orderID)
	return nil
}

func (s *mockStore) GetOrder(_ context.Context, orderID string) (*models.Order, error) {
	s.m.Lock()
	defer s.m.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *order
	cp.Items = s.items[orderID]
	return &cp, nil
}

func (s *mockStore) ListOrdersByUser(_ context.Context, userID string) ([]models.Order, error) {
	s.m.Lock()
	defer s.m.Unlock()
	var out []models.Order
	for _, order := range s.orders {
		if order.UserID != nil && *order.UserID == userID {
			cp := *order
			cp.Items = s.items[order.ID]
			out = append(out, cp)
		}
	}
	// created_at DESC, like the SQL store
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *mockStore) UpdateOrderStatus(_ context.Context, orderID string, status models.OrderStatus) error {
	s.m.Lock()
	defer s.m.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	order.Status = status
	return nil
}

func (s *mockStore) UpdatePaymentStatus(_ context.Context, orderID string, status models.PaymentStatus) error {
	s.m.Lock()
	defer s.m.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	order.PaymentStatus = status
	return nil
}

func (s *mockStore) GetAddressByType(_ context.Context, userID string, _ models.AddressType) (*models.UserAddress, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.failAddress {
		return nil, errors.New("lookup failed")
	}
	return s.addrs[userID], nil
}

func (s *mockStore) SaveAddress(_ context.Context, addr *models.UserAddress) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.failAddress {
		return errors.New("save failed")
	}
	cp := *addr
	s.addrs[addr.UserID] = &cp
	return nil
}

func (s *mockStore) UpsertProfile(_ context.Context, profile *models.UserProfile) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.failProfile {
		return errors.New("save failed")
	}
	cp := *profile
	s.profiles[profile.UserID] = &cp
	return nil
}

func testAddress() models.ShippingAddress {
	return models.ShippingAddress{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "555-0100",
		Address:   "12 Analytical Way",
		City:      "London",
		State:     "LDN",
		ZipCode:   "E1 6AN",
		Country:   "UK",
	}
}

func testItems() []SubmitItem {
	return []SubmitItem{
		{
			ProductID:   "prod-a",
			ProductName: "Widget",
			Quantity:    2,
			UnitPrice:   20,
			TotalPrice:  40,
		},
		{
			ProductID:   "prod-b",
			ProductName: "Gadget",
			VariantID:   "var-1",
			VariantName: "Red",
			Quantity:    1,
			UnitPrice:   15,
			TotalPrice:  15,
		},
	}
}

func newTestService(store Store) *Service {
	return NewService(store, nil, nil, zap.NewNop())
}

func TestSubmitRejectsEmptyItems(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	_, err := svc.Submit(context.Background(), SubmitInput{
		ShippingAddress: testAddress(),
		TotalAmount:     59.40,
	})

	require.ErrorIs(t, err, ErrNoItems)
	assert.Empty(t, store.orders)
}

func TestSubmitRejectsMissingAddressOrAmount(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	_, err := svc.Submit(context.Background(), SubmitInput{
		Items:       testItems(),
		TotalAmount: 59.40,
	})
	require.ErrorIs(t, err, ErrMissingAddress)

	_, err = svc.Submit(context.Background(), SubmitInput{
		Items:           testItems(),
		ShippingAddress: testAddress(),
	})
	require.ErrorIs(t, err, ErrMissingAddress)

	assert.Empty(t, store.orders)
}

func TestSubmitGuestOrder(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	order, err := svc.Submit(context.Background(), SubmitInput{
		Items:           testItems(),
		ShippingAddress: testAddress(),
		TotalAmount:     59.40,
	})
	require.NoError(t, err)

	assert.True(t, order.IsGuestOrder)
	assert.Nil(t, order.UserID)
	assert.Equal(t, models.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.InDelta(t, 55.0, order.Subtotal, 1e-9) // recomputed from line totals
	assert.InDelta(t, 59.40, order.TotalAmount, 1e-9)
	require.Len(t, store.items[order.ID], 2)

	// Guest checkout never touches profile or address tables.
	assert.Empty(t, store.addrs)
	assert.Empty(t, store.profiles)
}

func TestSubmitAuthenticatedOrderSyncsProfile(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	userID := "user-1"

	order, err := svc.Submit(context.Background(), SubmitInput{
		UserID:          &userID,
		Items:           testItems(),
		ShippingAddress: testAddress(),
		TotalAmount:     59.40,
	})
	require.NoError(t, err)

	assert.False(t, order.IsGuestOrder)
	require.NotNil(t, order.UserID)
	assert.Equal(t, userID, *order.UserID)

	addr := store.addrs[userID]
	require.NotNil(t, addr)
	assert.Equal(t, models.AddressTypeShipping, addr.Type)
	assert.Equal(t, "London", addr.City)
	require.NotNil(t, store.profiles[userID])
	assert.Equal(t, "Ada", store.profiles[userID].FirstName)
}

func TestSubmitUpdatesExistingAddressInPlace(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	userID := "user-1"

	_, err := svc.Submit(context.Background(), SubmitInput{
		UserID:          &userID,
		Items:           testItems(),
		ShippingAddress: testAddress(),
		TotalAmount:     59.40,
	})
	require.NoError(t, err)
	firstID := store.addrs[userID].ID

	changed := testAddress()
	changed.City = "Paris"
	_, err = svc.Submit(context.Background(), SubmitInput{
		UserID:          &userID,
		Items:           testItems(),
		ShippingAddress: changed,
		TotalAmount:     59.40,
	})
	require.NoError(t, err)

	assert.Equal(t, firstID, store.addrs[userID].ID)
	assert.Equal(t, "Paris", store.addrs[userID].City)
}

func TestSubmitRollsBackOrderWhenItemsFail(t *testing.T) {
	store := newMockStore()
	store.failCreateItems = true
	svc := newTestService(store)

	_, err := svc.Submit(context.Background(), SubmitInput{
		Items:           testItems(),
		ShippingAddress: testAddress(),
		TotalAmount:     59.40,
	})

	require.ErrorIs(t, err, ErrCreateOrderItems)
	// No order may exist without at least one line.
	assert.Empty(t, store.orders)
	assert.Empty(t, store.items)
}

func TestSubmitOrderInsertFailure(t *testing.T) {
	store := newMockStore()
	store.failCreateOrder = true
	svc := newTestService(store)

	_, err := svc.Submit(context.Background(), SubmitInput{
		Items:           testItems(),
		ShippingAddress: testAddress(),
		TotalAmount:     59.40,
	})

	require.ErrorIs(t, err, ErrCreateOrder)
	assert.Empty(t, store.items)
}

func TestSubmitSucceedsDespiteProfileSyncFailure(t *testing.T) {
	store := newMockStore()
	store.failAddress = true
	store.failProfile = true
	svc := newTestService(store)
	userID := "user-1"

	order, err := svc.Submit(context.Background(), SubmitInput{
		UserID:          &userID,
		Items:           testItems(),
		ShippingAddress: testAddress(),
		TotalAmount:     59.40,
	})

	require.NoError(t, err)
	assert.Contains(t, store.orders, order.ID)
	require.Len(t, store.items[order.ID], 2)
}

func TestListForUserNewestFirst(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	userID := "user-1"
	base := time.Now()

	var ids []string
	for i := 0; i < 3; i++ {
		order, err := svc.Submit(context.Background(), SubmitInput{
			UserID:          &userID,
			Items:           testItems(),
			ShippingAddress: testAddress(),
			TotalAmount:     59.40,
		})
		require.NoError(t, err)
		// spread creation times so the ordering is unambiguous
		store.orders[order.ID].CreatedAt = base.Add(time.Duration(i) * time.Minute)
		ids = append(ids, order.ID)
	}

	orders, err := svc.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, orders, 3)

	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{orders[0].ID, orders[1].ID, orders[2].ID})
	for i := 1; i < len(orders); i++ {
		assert.False(t, orders[i].CreatedAt.After(orders[i-1].CreatedAt))
	}
	require.Len(t, orders[0].Items, 2) // nested lines come along
}

func TestMarkPaid(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	order, err := svc.Submit(context.Background(), SubmitInput{
		Items:           testItems(),
		ShippingAddress: testAddress(),
		TotalAmount:     59.40,
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkPaid(context.Background(), order.ID))
	got, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)
}

func TestMarkPaidUnknownOrder(t *testing.T) {
	svc := newTestService(newMockStore())
	err := svc.MarkPaid(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	svc := newTestService(newMockStore())
	err := svc.UpdateStatus(context.Background(), "any", models.OrderStatus("sideways"))
	assert.Error(t, err)
}

func TestUpdateStatusLastWriteWins(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	order, err := svc.Submit(context.Background(), SubmitInput{
		Items:           testItems(),
		ShippingAddress: testAddress(),
		TotalAmount:     59.40,
	})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusProcessing))
	require.NoError(t, svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusShipped))

	got, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, got.Status)
}

func TestNewOrderNumberFormat(t *testing.T) {
	re := regexp.MustCompile(`^ORD-\d{8}-[0-9A-F]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n := NewOrderNumber()
		assert.Regexp(t, re, n)
		assert.False(t, seen[n], "order numbers must not repeat")
		seen[n] = true
	}
}
