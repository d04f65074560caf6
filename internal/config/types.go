package config

type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Telegram TelegramConfig `json:"telegram"`

	// Cache selects the backing store for baselines and reference data.
	Cache CacheConfig `json:"cache"`

	// Upstream points at the game-status API endpoints.
	Upstream UpstreamConfig `json:"upstream"`

	Warmer   WarmerConfig   `json:"warmer"`
	Notifier NotifierConfig `json:"notifier"`
	Guilds   GuildsConfig   `json:"guilds"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

// CacheConfig controls the cache store.
//
// Driver values:
//   - "redis": shared redis instance (recommended; baselines survive restarts)
//   - "memory": in-process map (tests / single-shot runs)
type CacheConfig struct {
	Driver   string `json:"driver"`
	Addr     string `json:"addr,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

type UpstreamConfig struct {
	DatabaseURL string `json:"database_url"`
	APIURL      string `json:"api_url"`
	MapURL      string `json:"map_url"`
	// Timeout is a Go duration string applied per request (default "15s").
	Timeout string `json:"timeout,omitempty"`
}

// WarmerConfig controls the one-shot cache warmer.
//
// RequestInterval is the mandatory pause between successive upstream requests
// within one warm chain (default "1s").
type WarmerConfig struct {
	Enabled         bool     `json:"enabled"`
	Languages       []string `json:"languages,omitempty"`
	RequestInterval string   `json:"request_interval,omitempty"`
}

// NotifierConfig controls the change-detection tick.
//
// Overlap values:
//   - "skip": a new tick is skipped while the previous one still runs (default)
//   - "allow": ticks may overlap (per-event baseline writes keep this safe-ish)
type NotifierConfig struct {
	Enabled  bool   `json:"enabled"`
	Interval string `json:"interval,omitempty"`
	Overlap  string `json:"overlap,omitempty"`
}

type GuildsConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}
