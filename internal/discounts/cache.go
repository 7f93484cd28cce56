package discounts

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront/internal/domain"
)

// noDiscount marks a cached negative lookup.
const noDiscount = "none"

// generationTTL outlives any cached lookup so a stale fill cannot match a
// reset generation.
const generationTTL = 48 * time.Hour

// Lookup is the cached answer to "does seller have an active discount on
// this date".
type Lookup struct {
	Percentage decimal.Decimal
	Active     bool
}

// Cache is a read-through cache with generation-guarded fills. Get returns
// the generation current at the time of a miss. Set stores the lookup under
// that generation, and Invalidate advances it, so a fill that raced an
// invalidation is never served.
type Cache interface {
	Get(ctx context.Context, sellerID int64, date time.Time) (l Lookup, hit bool, generation int64, err error)
	Set(ctx context.Context, sellerID int64, date time.Time, l Lookup, generation int64) error
	Invalidate(ctx context.Context, sellerID int64, dates ...time.Time) error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(sellerID int64, date time.Time) string {
	return fmt.Sprintf("discount_day:%d:%s", sellerID, date.Format(domain.DateLayout))
}

func generationKey(sellerID int64, date time.Time) string {
	return fmt.Sprintf("discount_day_gen:%d:%s", sellerID, date.Format(domain.DateLayout))
}

func (c *RedisCache) Get(ctx context.Context, sellerID int64, date time.Time) (Lookup, bool, int64, error) {
	vals, err := c.client.MGet(ctx, cacheKey(sellerID, date), generationKey(sellerID, date)).Result()
	if err != nil {
		return Lookup{}, false, 0, err
	}

	var gen int64
	if raw, ok := vals[1].(string); ok {
		if gen, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return Lookup{}, false, 0, fmt.Errorf("decode discount generation %q: %w", raw, err)
		}
	}

	raw, ok := vals[0].(string)
	if !ok {
		return Lookup{}, false, gen, nil
	}
	stored, value, ok := strings.Cut(raw, "|")
	if !ok || stored != strconv.FormatInt(gen, 10) {
		return Lookup{}, false, gen, nil
	}
	if value == noDiscount {
		return Lookup{}, true, gen, nil
	}

	pct, err := decimal.NewFromString(value)
	if err != nil {
		return Lookup{}, false, gen, fmt.Errorf("decode cached discount %q: %w", value, err)
	}
	return Lookup{Percentage: pct, Active: true}, true, gen, nil
}

func (c *RedisCache) Set(ctx context.Context, sellerID int64, date time.Time, l Lookup, generation int64) error {
	value := noDiscount
	if l.Active {
		value = l.Percentage.String()
	}
	return c.client.Set(ctx, cacheKey(sellerID, date), fmt.Sprintf("%d|%s", generation, value), c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, sellerID int64, dates ...time.Time) error {
	if len(dates) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, d := range dates {
			gen := generationKey(sellerID, d)
			pipe.Incr(ctx, gen)
			pipe.Expire(ctx, gen, generationTTL)
			pipe.Del(ctx, cacheKey(sellerID, d))
		}
		return nil
	})
	return err
}
