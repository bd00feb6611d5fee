// Package cache is the session-token store behind agent auth: issued tokens
// are cached with the token TTL so revocation is a delete. Production wires
// the redis store; tests and single-node setups use the in-memory one.
package cache

import (
	"context"
	"time"
)

type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
