package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/config"
	"github.com/go-redis/redis/v8"
)

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisRepository) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *RedisRepository) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// Cart persistence. Carts never expire on their own; they are cleared only
// by explicit user action.

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}

func (r *RedisRepository) LoadItems(ctx context.Context, sessionID string) ([]byte, error) {
	data, err := r.client.Get(ctx, cartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cart.ErrNoSavedCart
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *RedisRepository) SaveItems(ctx context.Context, sessionID string, data []byte) error {
	return r.client.Set(ctx, cartKey(sessionID), data, 0).Err()
}

func (r *RedisRepository) DeleteItems(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, cartKey(sessionID)).Err()
}

// Cache for order summaries
type OrderCache struct {
	ID            string  `json:"id"`
	OrderNumber   string  `json:"order_number"`
	Status        string  `json:"status"`
	PaymentStatus string  `json:"payment_status"`
	TotalAmount   float64 `json:"total_amount"`
}

func (r *RedisRepository) CacheOrder(ctx context.Context, order *OrderCache) error {
	key := fmt.Sprintf("order:%s", order.ID)
	return r.SetJSON(ctx, key, order, 30*time.Minute)
}

func (r *RedisRepository) GetOrderCache(ctx context.Context, orderID string) (*OrderCache, error) {
	key := fmt.Sprintf("order:%s", orderID)
	var order OrderCache
	err := r.GetJSON(ctx, key, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *RedisRepository) InvalidateOrder(ctx context.Context, orderID string) error {
	return r.Del(ctx, fmt.Sprintf("order:%s", orderID))
}
