package infra

import (
	"context"
	"encoding/json"
	"time"

	"candycost/internal/dto"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	productKeyPrefix = "product:"
	genKeyPrefix     = "product-gen:"

	// Must exceed any in-flight read: an expired counter restarts at 1.
	genTTL = 24 * time.Hour
)

// setIfCurrent writes KEYS[1] only while the generation counter KEYS[2]
// still holds ARGV[1]. A missing counter reads as "0".
var setIfCurrent = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// ProductCache keeps rendered product responses in Redis behind a circuit
// breaker. Every failure is logged and swallowed: the database stays the
// source of truth.
type ProductCache struct {
	rdb *redis.Client
	cb  *CircuitBreaker
	ttl time.Duration
}

func NewProductCache(rdb *redis.Client, cb *CircuitBreaker, ttl time.Duration) *ProductCache {
	if cb == nil {
		cb = NewCircuitBreaker(DefaultCBConfig())
	}
	return &ProductCache{rdb: rdb, cb: cb, ttl: ttl}
}

func productKey(id uuid.UUID) string { return productKeyPrefix + id.String() }
func genKey(id uuid.UUID) string     { return genKeyPrefix + id.String() }

// Get returns the cached response, or on a miss the current generation to
// hand back to Set. An empty generation means Set must not store.
func (c *ProductCache) Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, string, bool) {
	var vals []interface{}
	err := c.cb.Execute(func() error {
		var err error
		vals, err = c.rdb.MGet(ctx, productKey(id), genKey(id)).Result()
		return err
	})
	if err != nil {
		log.Debug().Err(err).Str("product_id", id.String()).Msg("cache get failed")
		return nil, "", false
	}
	gen := "0"
	if s, ok := vals[1].(string); ok {
		gen = s
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, gen, false
	}
	var resp dto.ProductResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		log.Warn().Err(err).Str("product_id", id.String()).Msg("cache entry corrupt, ignoring")
		return nil, gen, false
	}
	return &resp, "", true
}

// Set stores p when gen is still the product's current generation.
func (c *ProductCache) Set(ctx context.Context, p *dto.ProductResponse, gen string) {
	if gen == "" {
		return
	}
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	var stored int64
	err = c.cb.Execute(func() error {
		var err error
		stored, err = setIfCurrent.Run(ctx, c.rdb,
			[]string{productKey(id), genKey(id)},
			gen, raw, c.ttl.Milliseconds()).Int64()
		return err
	})
	if err != nil {
		log.Debug().Err(err).Str("product_id", p.ID).Msg("cache set failed")
		return
	}
	if stored == 0 {
		log.Debug().Str("product_id", p.ID).Msg("cache set skipped, entry invalidated during read")
	}
}

// Invalidate advances each product's generation and drops its entry.
func (c *ProductCache) Invalidate(ctx context.Context, ids ...uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	err := c.cb.Execute(func() error {
		_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, id := range ids {
				pipe.Incr(ctx, genKey(id))
				pipe.Expire(ctx, genKey(id), genTTL)
				pipe.Del(ctx, productKey(id))
			}
			return nil
		})
		return err
	})
	if err != nil {
		log.Warn().Err(err).Int("products", len(ids)).Msg("cache invalidation failed")
	}
}

// Breaker exposes the breaker for the health endpoint.
func (c *ProductCache) Breaker() *CircuitBreaker { return c.cb }
