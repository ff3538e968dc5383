package resolvers

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/notifycore/pkg/notifications"
)

// DefaultScanCount is the SSCAN COUNT hint used when none is configured.
const DefaultScanCount int64 = 500

// RedisSetResolver streams the members of a Redis set with SSCAN. The key is
// built from a template such as "cohort:{cohort_id}:members".
type RedisSetResolver struct {
	client    redis.Cmdable
	keyTmpl   string
	scanCount int64
}

// RedisSetOption configures a RedisSetResolver.
type RedisSetOption func(*RedisSetResolver)

// WithScanCount sets the SSCAN COUNT hint.
func WithScanCount(n int64) RedisSetOption {
	return func(r *RedisSetResolver) {
		if n > 0 {
			r.scanCount = n
		}
	}
}

// NewRedisSetResolver returns a resolver reading the set named by keyTmpl.
func NewRedisSetResolver(client redis.Cmdable, keyTmpl string, opts ...RedisSetOption) *RedisSetResolver {
	r := &RedisSetResolver{client: client, keyTmpl: keyTmpl, scanCount: DefaultScanCount}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key returns the set key for the given contexts.
func (r *RedisSetResolver) Key(scopeContext, instanceContext map[string]any) (string, error) {
	return expand(r.keyTmpl, scopeContext, instanceContext)
}

// Resolve implements notifications.ScopeResolver. Members that do not parse
// as integers are skipped by the core.
func (r *RedisSetResolver) Resolve(ctx context.Context, _ string, scopeContext, instanceContext map[string]any) (any, error) {
	key, err := r.Key(scopeContext, instanceContext)
	if err != nil {
		return nil, err
	}
	it := r.client.SScan(ctx, key, 0, "", r.scanCount).Iterator()
	return &scanCursor{it: it}, nil
}

type scanCursor struct {
	it  *redis.ScanIterator
	val any
}

var _ notifications.Cursor = (*scanCursor)(nil)

func (c *scanCursor) Next(ctx context.Context) bool {
	if !c.it.Next(ctx) {
		return false
	}
	c.val = parseID(c.it.Val())
	return true
}

func (c *scanCursor) Value() any   { return c.val }
func (c *scanCursor) Err() error   { return c.it.Err() }
func (c *scanCursor) Close() error { return nil }
