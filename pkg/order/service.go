package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

var (
	// Validation failures; rejected before any write.
	ErrNoItems        = errors.New("order items are required")
	ErrMissingAddress = errors.New("shipping address and total amount are required")

	// Primary write failures.
	ErrCreateOrder      = errors.New("failed to create order")
	ErrCreateOrderItems = errors.New("failed to create order items")
)

// Cache and Auditor are the secondary collaborators of the pipeline. Both
// are best-effort: failures are logged, never surfaced.
type Cache interface {
	CacheOrder(ctx context.Context, order *repository.OrderCache) error
	InvalidateOrder(ctx context.Context, orderID string) error
}

type Auditor interface {
	CreateAuditLog(ctx context.Context, log *repository.AuditLog) error
}

type Service struct {
	store  Store
	cache  Cache
	audit  Auditor
	logger *zap.Logger
}

func NewService(store Store, cache Cache, audit Auditor, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		audit:  audit,
		logger: logger,
	}
}

type SubmitItem struct {
	ProductID         string            `json:"product_id"`
	VariantID         string            `json:"variant_id,omitempty"`
	Quantity          int32             `json:"quantity"`
	UnitPrice         float64           `json:"unit_price"`
	TotalPrice        float64           `json:"total_price"`
	ProductName       string            `json:"product_name"`
	ProductSKU        string            `json:"product_sku,omitempty"`
	VariantName       string            `json:"variant_name,omitempty"`
	VariantAttributes map[string]string `json:"variant_attributes,omitempty"`
}

type SubmitInput struct {
	// UserID is the resolved authenticated identity, nil for guest checkout.
	UserID          *string
	Items           []SubmitItem
	ShippingAddress models.ShippingAddress
	TotalAmount     float64
	Status          models.OrderStatus
	Currency        string
}

// Submit converts a cart snapshot plus shipping form into durable order
// records. Steps are strictly sequential: order row, then items, then the
// best-effort profile sync. If the items insert fails the order row is
// deleted again, so an order never exists without at least one line.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrNoItems
	}
	if in.ShippingAddress.IsZero() || in.TotalAmount == 0 {
		return nil, ErrMissingAddress
	}

	status := in.Status
	if status == "" {
		status = models.OrderStatusPendingPayment
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid order status %q", status)
	}
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}

	// Server-side subtotal is the sum of the submitted line totals. The
	// client-supplied total_amount is persisted as-is; we only log when the
	// two diverge instead of rejecting, matching the storefront contract.
	var subtotal float64
	for _, item := range in.Items {
		subtotal += item.TotalPrice
	}
	if math.Abs(in.TotalAmount-subtotal) > 0.01 {
		s.logger.Warn("Client total diverges from computed subtotal",
			zap.Float64("total_amount", in.TotalAmount),
			zap.Float64("subtotal", subtotal))
	}

	order := &models.Order{
		ID:              uuid.NewString(),
		OrderNumber:     NewOrderNumber(),
		UserID:          in.UserID,
		Status:          status,
		PaymentStatus:   models.PaymentStatusPending,
		Subtotal:        subtotal,
		TotalAmount:     in.TotalAmount,
		Currency:        currency,
		IsGuestOrder:    in.UserID == nil,
		ShippingAddress: in.ShippingAddress,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		s.logger.Error("Failed to create order", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCreateOrder, err)
	}

	items := make([]models.OrderItem, len(in.Items))
	for i, item := range in.Items {
		attrs := ""
		if len(item.VariantAttributes) > 0 {
			if data, err := json.Marshal(item.VariantAttributes); err == nil {
				attrs = string(data)
			}
		}
		items[i] = models.OrderItem{
			ID:                uuid.NewString(),
			OrderID:           order.ID,
			ProductID:         item.ProductID,
			ProductName:       item.ProductName,
			ProductSKU:        item.ProductSKU,
			VariantID:         item.VariantID,
			VariantName:       item.VariantName,
			VariantAttributes: attrs,
			Quantity:          item.Quantity,
			UnitPrice:         item.UnitPrice,
			TotalPrice:        item.TotalPrice,
			CreatedAt:         time.Now(),
		}
	}

	if err := s.store.CreateOrderItems(ctx, items); err != nil {
		s.logger.Error("Failed to create order items, rolling back order",
			zap.String("order_id", order.ID),
			zap.Error(err))

		// Compensating delete: without it a headless order would be left
		// behind, and this pipeline is the only writer.
		if delErr := s.store.DeleteOrder(ctx, order.ID); delErr != nil {
			s.logger.Error("Failed to roll back order",
				zap.String("order_id", order.ID),
				zap.Error(delErr))
		}
		s.auditAsync(repository.AuditOrderRolledBack, order.ID, bson.M{
			"reason": err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrCreateOrderItems, err)
	}
	order.Items = items

	// Best-effort from here on: the order exists and stays regardless of
	// what the profile sync or cache does.
	if in.UserID != nil {
		s.syncProfile(ctx, *in.UserID, in.ShippingAddress)
	}

	if s.cache != nil {
		if err := s.cache.CacheOrder(ctx, &repository.OrderCache{
			ID:            order.ID,
			OrderNumber:   order.OrderNumber,
			Status:        order.Status.String(),
			PaymentStatus: order.PaymentStatus.String(),
			TotalAmount:   order.TotalAmount,
		}); err != nil {
			s.logger.Warn("Failed to cache order", zap.Error(err))
		}
	}

	s.auditAsync(repository.AuditOrderCreated, order.ID, bson.M{
		"order_number": order.OrderNumber,
		"total_amount": order.TotalAmount,
		"is_guest":     order.IsGuestOrder,
	})

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Bool("is_guest", order.IsGuestOrder),
		zap.Float64("total_amount", order.TotalAmount))

	return order, nil
}

// syncProfile keeps the user's shipping address and minimal profile in step
// with the latest checkout. Never fails the order.
func (s *Service) syncProfile(ctx context.Context, userID string, addr models.ShippingAddress) {
	existing, err := s.store.GetAddressByType(ctx, userID, models.AddressTypeShipping)
	if err != nil {
		s.logger.Warn("Failed to look up shipping address",
			zap.String("user_id", userID), zap.Error(err))
		return
	}

	record := &models.UserAddress{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      models.AddressTypeShipping,
		FirstName: addr.FirstName,
		LastName:  addr.LastName,
		Phone:     addr.Phone,
		Address:   addr.Address,
		City:      addr.City,
		State:     addr.State,
		ZipCode:   addr.ZipCode,
		Country:   addr.Country,
	}
	if existing != nil {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	}
	if err := s.store.SaveAddress(ctx, record); err != nil {
		s.logger.Warn("Failed to save shipping address",
			zap.String("user_id", userID), zap.Error(err))
	}

	profile := &models.UserProfile{
		UserID:    userID,
		FirstName: addr.FirstName,
		LastName:  addr.LastName,
		Phone:     addr.Phone,
	}
	if err := s.store.UpsertProfile(ctx, profile); err != nil {
		s.logger.Warn("Failed to upsert profile",
			zap.String("user_id", userID), zap.Error(err))
	}
}

// Get returns one order with its lines.
func (s *Service) Get(ctx context.Context, orderID string) (*models.Order, error) {
	return s.store.GetOrder(ctx, orderID)
}

// ListForUser returns the user's orders with nested lines, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.store.ListOrdersByUser(ctx, userID)
}

// MarkPaid is the one automatic lifecycle transition: payment verification
// flips payment_status to paid.
func (s *Service) MarkPaid(ctx context.Context, orderID string) error {
	if err := s.store.UpdatePaymentStatus(ctx, orderID, models.PaymentStatusPaid); err != nil {
		return err
	}
	s.invalidate(orderID)
	s.auditAsync(repository.AuditPaymentVerified, orderID, bson.M{
		"payment_status": models.PaymentStatusPaid.String(),
	})
	return nil
}

// UpdateStatus is the free-form admin write. No transition table is
// enforced; concurrent updates are last-write-wins.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid order status %q", status)
	}
	if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return err
	}
	s.invalidate(orderID)
	s.auditAsync(repository.AuditStatusUpdated, orderID, bson.M{
		"status": status.String(),
	})
	return nil
}

func (s *Service) invalidate(orderID string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.InvalidateOrder(ctx, orderID); err != nil {
		s.logger.Warn("Failed to invalidate order cache",
			zap.String("order_id", orderID), zap.Error(err))
	}
}

func (s *Service) auditAsync(action, entityID string, data bson.M) {
	if s.audit == nil {
		return
	}
	go func() {
		if err := s.audit.CreateAuditLog(context.Background(), &repository.AuditLog{
			Service:  "storefront",
			Action:   action,
			EntityID: entityID,
			Data:     data,
		}); err != nil {
			s.logger.Warn("Failed to write audit log",
				zap.String("action", action), zap.Error(err))
		}
	}()
}

// NewOrderNumber generates the human-readable order reference: date plus a
// random suffix, e.g. ORD-20260829-1A2B3C4D.
func NewOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), suffix)
}
