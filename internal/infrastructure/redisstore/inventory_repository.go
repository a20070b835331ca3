package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	dominv "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "inventory:"
	fieldAvailable   = "available"
	fieldUpdatedAt   = "updated_at"
)

// decrementScript subtracts ARGV[1] from an existing hash only. A missing key
// yields nil so the caller can report not found.
var decrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
local left = redis.call('HINCRBY', KEYS[1], 'available', -tonumber(ARGV[1]))
redis.call('HSET', KEYS[1], 'updated_at', ARGV[2])
return left
`)

// InventoryRepository keeps one hash per product.
type InventoryRepository struct {
	client redis.UniversalClient
	prefix string
}

func NewInventoryRepository(client redis.UniversalClient, keyPrefix string) *InventoryRepository {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &InventoryRepository{client: client, prefix: keyPrefix}
}

func (r *InventoryRepository) key(productID string) string {
	return r.prefix + productID
}

func (r *InventoryRepository) Get(ctx context.Context, productID string) (*dominv.Record, error) {
	values, err := r.client.HGetAll(ctx, r.key(productID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: get inventory: %w", err)
	}
	if len(values) == 0 {
		return nil, dominv.ErrNotFound
	}

	available, err := strconv.Atoi(values[fieldAvailable])
	if err != nil {
		return nil, fmt.Errorf("redisstore: parse available for %q: %w", productID, err)
	}
	record := &dominv.Record{ProductID: productID, AvailableQuantity: available}
	if ts := values[fieldUpdatedAt]; ts != "" {
		if record.UpdatedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("redisstore: parse updated_at for %q: %w", productID, err)
		}
	}
	return record, nil
}

func (r *InventoryRepository) Save(ctx context.Context, record *dominv.Record) error {
	if record == nil || record.ProductID == "" {
		return dominv.ErrProductIDRequired
	}
	updated := record.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	err := r.client.HSet(ctx, r.key(record.ProductID),
		fieldAvailable, record.AvailableQuantity,
		fieldUpdatedAt, updated.Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("redisstore: save inventory: %w", err)
	}
	return nil
}

func (r *InventoryRepository) Decrement(ctx context.Context, productID string, quantity int) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	left, err := decrementScript.Run(ctx, r.client, []string{r.key(productID)}, quantity, now).Int()
	if errors.Is(err, redis.Nil) {
		return 0, dominv.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("redisstore: decrement inventory: %w", err)
	}
	return left, nil
}
