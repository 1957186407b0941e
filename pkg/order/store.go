package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var ErrOrderNotFound = errors.New("order not found")

// Store is the persistence boundary of the submission pipeline. The pipeline
// only appends order rows and items; it never mutates items after creation.
type Store interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	DeleteOrder(ctx context.Context, orderID string) error
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) error

	GetAddressByType(ctx context.Context, userID string, addrType models.AddressType) (*models.UserAddress, error)
	SaveAddress(ctx context.Context, addr *models.UserAddress) error
	UpsertProfile(ctx context.Context, profile *models.UserProfile) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(cfg *config.MySQLConfig) (*GormStore, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.UserProfile{},
		&models.UserAddress{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return &GormStore{db: db}, nil
}

func (s *GormStore) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.db.WithContext(ctx).Omit("Items").Create(order).Error
}

func (s *GormStore) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	return s.db.WithContext(ctx).Create(&items).Error
}

func (s *GormStore) DeleteOrder(ctx context.Context, orderID string) error {
	return s.db.WithContext(ctx).Unscoped().Where("id = ?", orderID).Delete(&models.Order{}).Error
}

func (s *GormStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").Where("id = ?", orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *GormStore) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *GormStore) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (s *GormStore) UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"payment_status": status,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (s *GormStore) GetAddressByType(ctx context.Context, userID string, addrType models.AddressType) (*models.UserAddress, error) {
	var addr models.UserAddress
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, addrType).
		First(&addr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func (s *GormStore) SaveAddress(ctx context.Context, addr *models.UserAddress) error {
	return s.db.WithContext(ctx).Save(addr).Error
}

func (s *GormStore) UpsertProfile(ctx context.Context, profile *models.UserProfile) error {
	return s.db.WithContext(ctx).Save(profile).Error
}
