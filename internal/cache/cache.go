// Package cache implements the two-tier insight cache: a fast tier
// (in-process LRU or Redis) in front of the durable store. The fast tier
// is an accelerator only; losing it costs latency, never correctness.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is not present in the fast tier.
var ErrMiss = errors.New("cache: miss")

// ErrUnavailable is returned when the fast tier cannot be reached. It is
// always joined with the underlying transport error.
var ErrUnavailable = errors.New("cache: unavailable")

// FastCache is the fast-tier contract. Implementations store opaque bytes;
// serialization is the caller's concern. A ttl of zero or less means the
// implementation's default TTL.
type FastCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
