package cache

import (
	"context"
	"errors"
)

var ErrDisabled = errors.New("cache disabled")

// Config configures the cache store.
//
// Driver values:
//   - "redis": shared redis instance (baselines survive restarts)
//   - "memory": in-process map (tests / throwaway runs)
type Config struct {
	Driver   string
	Addr     string
	Password string
	DB       int
}

// Store is the minimal key/value API the warmer and notifier rely on.
// Values are opaque serialized payloads; one entry per key, last write wins.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Key composes a namespaced cache key.
func Key(namespace, id string) string { return namespace + ":" + id }

const (
	NSDatabase = "database"
	NSPlayers  = "players"
	NSMap      = "map"
	NSEvents   = "events"
)
