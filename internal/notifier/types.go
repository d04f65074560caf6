package notifier

import (
	"context"
	"sync"
	"time"

	"hellwatch/internal/guild"
	"hellwatch/internal/upstream"
)

// API is the slice of the upstream client the notifier needs.
type API interface {
	GetStatus(ctx context.Context) (*upstream.Status, error)
	GetEvents(ctx context.Context) (map[string]upstream.EventState, error)
}

// Broadcaster delivers one notification task to one guild.
type Broadcaster interface {
	Deliver(ctx context.Context, g guild.Guild, eventKey string, st upstream.EventState) error
}

type OverlapPolicy int

const (
	// OverlapSkipIfRunning skips a tick while the previous one still runs.
	OverlapSkipIfRunning OverlapPolicy = iota
	// OverlapAllow lets ticks overlap. Per-event baseline writes keep a
	// duplicate notification unlikely but not impossible.
	OverlapAllow
)

// ParseOverlap maps a config string onto a policy. Unknown values fall back
// to skip, the safer default.
func ParseOverlap(s string) OverlapPolicy {
	if s == "allow" {
		return OverlapAllow
	}
	return OverlapSkipIfRunning
}

// Config controls the change-detection tick.
type Config struct {
	Enabled  bool
	Interval time.Duration // default 60s
	Overlap  OverlapPolicy
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 60 * time.Second
	}
	return c
}

type runState struct {
	mu      sync.Mutex
	running bool
}

// tryAcquire marks the state running; it reports false if already running.
func (r *runState) tryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	return true
}

func (r *runState) release() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}
