// Package cache declares the byte cache the services read through.
package cache

import (
	"context"
	"time"
)

// BytesCache stores opaque values under string keys. Get reports a miss with
// ok == false and a nil error.
type BytesCache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
