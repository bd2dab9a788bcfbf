package rdx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps the redis client used for the token revocation list and
// for short-lived hot caches such as connected-post chains.
type Cache struct {
	Conn *redis.Client
}

func New(addr string) *Cache {
	return &Cache{
		Conn: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

const revokedPrefix = "revoked:"

// RevokeToken blacklists a token until it would have expired anyway.
func (c *Cache) RevokeToken(ctx context.Context, token string, ttl time.Duration) error {
	if c == nil || ttl <= 0 {
		return nil
	}
	return c.Conn.Set(ctx, revokedPrefix+token, "1", ttl).Err()
}

// IsTokenRevoked errs on the side of letting the request through when
// redis itself is unreachable; auth still validates the signature.
func (c *Cache) IsTokenRevoked(ctx context.Context, token string) bool {
	if c == nil {
		return false
	}
	n, err := c.Conn.Exists(ctx, revokedPrefix+token).Result()
	if err != nil {
		return false
	}
	return n > 0
}

func (c *Cache) GetJSON(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	val, err := c.Conn.Get(ctx, key).Bytes()
	if err != nil || len(val) == 0 {
		return nil, false
	}
	return val, true
}

func (c *Cache) SetJSON(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if c == nil {
		return
	}
	_ = c.Conn.Set(ctx, key, payload, ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	_ = c.Conn.Del(ctx, keys...).Err()
}
