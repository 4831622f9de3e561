package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps redis.Client but fails safe: reads degrade to misses and
// writes are dropped when redis is unavailable. A nil *Client is a valid
// always-miss cache.
type Client struct {
	client *redis.Client
}

// New creates a new Redis client.
func New(addr, password string, db int) *Client {
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	return &Client{client: redis.NewClient(opts)}
}

// GetJSON decodes the cached value for key into dst.
// It reports false on a miss, a redis failure or an undecodable payload.
func (c *Client) GetJSON(ctx context.Context, key string, dst any) bool {
	if c == nil || c.client == nil {
		return false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		// redis.Nil or connectivity: both behave like a miss
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

// generationTTL bounds how long an invalidation counter outlives its last bump.
const generationTTL = 24 * time.Hour

var errStale = errors.New("cache generation changed")

func generationKey(key string) string {
	return key + ":gen"
}

// Generation returns the invalidation counter for key. Read it before loading
// the value from the source of truth and pass it to SetJSONAt. It reports
// false when redis cannot be asked, in which case the caller must not cache.
func (c *Client) Generation(ctx context.Context, key string) (int64, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}
	gen, err := c.client.Get(ctx, generationKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		return 0, false
	}
	return gen, true
}

// SetJSONAt stores value as JSON with TTL, but only while the invalidation
// counter for key still equals gen. An Invalidate that lands between the caller's
// read and this write makes it a no-op.
func (c *Client) SetJSONAt(ctx context.Context, key string, value any, ttl time.Duration, gen int64) {
	if c == nil || c.client == nil || ttl <= 0 {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	genKey := generationKey(key)
	_ = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			return nil
		})
		return err
	}, genKey)
}

// Invalidate drops the cached value for key and bumps its invalidation
// counter so in-flight SetJSONAt calls for older data are discarded.
// Redis errors are ignored.
func (c *Client) Invalidate(ctx context.Context, key string) {
	if c == nil || c.client == nil {
		return
	}
	genKey := generationKey(key)
	_, _ = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, key)
		return nil
	})
}

// Ping reports whether redis is reachable. A nil client reports an error.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("cache not configured")
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
