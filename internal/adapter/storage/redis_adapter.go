package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/restocklabs/restock-dispatch/internal/core/domain"
)

const stockKeyPrefix = "stock:"

// The Lua script makes the check-and-decrement a single Redis operation,
// so concurrent callers can never drive the counter below zero.
var decrementStockScript = redis.NewScript(`
local key = KEYS[1]
local quantity = tonumber(ARGV[1])

local current = redis.call('GET', key)
if not current then
	return 0
end

current = tonumber(current)
if current >= quantity then
	redis.call('DECRBY', key, quantity)
	return 1
end

return 0
`)

// RedisAdapter is a stock ledger backed by a Redis counter per product. It
// fronts the durable store in deployments where the decrement hot path
// should not hit MySQL.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func stockKey(productID int64) string {
	return stockKeyPrefix + strconv.FormatInt(productID, 10)
}

// GetStock returns the counter value, or nil when the key is absent. The
// forUpdate flag is ignored: every mutation here is already atomic.
func (r *RedisAdapter) GetStock(ctx context.Context, productID int64, _ bool) (*domain.StockRecord, error) {
	quantity, err := r.client.Get(ctx, stockKey(productID)).Int()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return &domain.StockRecord{
		ProductID: productID,
		Quantity:  quantity,
		UpdatedAt: time.Now(),
	}, nil
}

func (r *RedisAdapter) DecrementIfAvailable(ctx context.Context, productID int64, quantity int) (bool, error) {
	result, err := decrementStockScript.Run(ctx, r.client, []string{stockKey(productID)}, quantity).Int()
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	return result == 1, nil
}

func (r *RedisAdapter) IncreaseStock(ctx context.Context, productID int64, quantity int) error {
	return r.client.IncrBy(ctx, stockKey(productID), int64(quantity)).Err()
}

// SetStock overwrites the counter, used to sync the cache from the durable
// store at startup.
func (r *RedisAdapter) SetStock(ctx context.Context, productID int64, quantity int) error {
	return r.client.Set(ctx, stockKey(productID), quantity, 0).Err()
}
