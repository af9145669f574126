// Package persistence defines the durable key-value port the memory tiers
// read and write through, plus its SQLite and in-memory implementations.
package persistence

import (
	"context"
	"encoding/json"
)

// Port abstracts durable storage of JSON blobs keyed by string. Absence is
// reported through the bool, not an error.
type Port interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	Delete(ctx context.Context, key string) error
	ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
