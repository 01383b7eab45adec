package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	stockKeyPrefix = "stock:"

	// stockScale is the number of decimal places kept in Redis. Amounts are
	// stored as integer thousandths so the Lua arithmetic stays exact.
	stockScale = 3
)

// ErrAmountTooFine is returned for amounts finer than the stored granularity.
var ErrAmountTooFine = errors.New("stock amount finer than 0.001")

var consumeStockScript = redis.NewScript(`
local key = KEYS[1]
local amount = tonumber(ARGV[1])

local current = redis.call('GET', key)
if not current then
	return 0
end

current = tonumber(current)
if current >= amount then
	redis.call('DECRBY', key, amount)
	return 1
end

return 0
`)

// RedisStock keeps on-hand amounts in Redis so several processes can share
// one stock pool.
type RedisStock struct {
	client *redis.Client
}

func NewRedisStock(client *redis.Client) *RedisStock {
	return &RedisStock{client: client}
}

func (r *RedisStock) Add(ctx context.Context, itemID string, amount decimal.Decimal) error {
	units, err := toStockUnits(amount)
	if err != nil {
		return err
	}
	return r.client.IncrBy(ctx, stockKeyPrefix+itemID, units).Err()
}

func (r *RedisStock) Quantity(ctx context.Context, itemID string) (decimal.Decimal, error) {
	val, err := r.client.Get(ctx, stockKeyPrefix+itemID).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}

	units, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse stock value %q: %w", val, err)
	}
	return fromStockUnits(units), nil
}

func (r *RedisStock) TryConsume(ctx context.Context, itemID string, amount decimal.Decimal) (bool, error) {
	units, err := toStockUnits(amount)
	if err != nil {
		return false, err
	}

	result, err := consumeStockScript.Run(ctx, r.client, []string{stockKeyPrefix + itemID}, units).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

func (r *RedisStock) Set(ctx context.Context, itemID string, amount decimal.Decimal) error {
	units, err := toStockUnits(amount)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, stockKeyPrefix+itemID, units, 0).Err()
}

func toStockUnits(amount decimal.Decimal) (int64, error) {
	scaled := amount.Shift(stockScale)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %s", ErrAmountTooFine, amount)
	}
	return scaled.IntPart(), nil
}

func fromStockUnits(units int64) decimal.Decimal {
	return decimal.New(units, -stockScale)
}
