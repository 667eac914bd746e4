// Package cache fronts Redis for per-clip prediction results. Repeat uploads
// of the same bytes skip the whole pipeline.
package cache

import (
	"context"
	"time"
)

// Cache is read-through only: entries are keyed by clip content hash, so
// there is nothing to invalidate and stale entries age out via TTL.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
}
