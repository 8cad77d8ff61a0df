// Package metadata stores small string key/value pairs (the durable auth
// token and the last username) in the local SQLite database.
package metadata

import (
	"context"
)

type Repository interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string]string, error)
	Clear(ctx context.Context) error
}
