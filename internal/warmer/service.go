package warmer

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/time/rate"

	"hellwatch/internal/cache"
	"hellwatch/internal/upstream"
	logx "hellwatch/pkg/logx"
)

// API is the slice of the upstream client the warmer needs.
type API interface {
	GetDatabase(ctx context.Context, language string) ([]json.RawMessage, error)
	GetLeaderboard(ctx context.Context) ([]upstream.LeaderboardEntry, error)
	GetPlayer(ctx context.Context, battleTag string) (*upstream.Player, error)
	GetMap(ctx context.Context) (upstream.MapData, error)
}

// Pacer spaces successive upstream requests within one warm chain.
// The production pacer is a *rate.Limiter; tests inject a recording fake.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Config controls the one-shot warm cycle.
type Config struct {
	Enabled bool
	// Languages to warm localized lookup tables for.
	Languages []string
	// RequestInterval is the mandatory pause between successive requests
	// to the same upstream class (default 1s).
	RequestInterval time.Duration
}

// defaultLanguages mirrors the locales the lookup-table service publishes.
var defaultLanguages = []string{
	"de", "en", "es", "fr", "it", "ja", "ko", "pl", "pt", "ru", "tr", "zh-cn", "zh-tw",
}

func (c Config) withDefaults() Config {
	if len(c.Languages) == 0 {
		c.Languages = defaultLanguages
	}
	if c.RequestInterval <= 0 {
		c.RequestInterval = time.Second
	}
	return c
}

// Service populates the cache store with reference data: localized lookup
// tables, the player roster, and map points of interest.
//
// Each sub-operation is independent; a failure in one never prevents the
// others from running. Nothing here retries: the next process start is the
// retry.
type Service struct {
	cfg   Config
	api   API
	store cache.Store
	log   logx.Logger
	pacer Pacer
}

func New(cfg Config, api API, store cache.Store, log logx.Logger) *Service {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:   cfg,
		api:   api,
		store: store,
		log:   log,
		// Burst 1: the first request goes through immediately, every
		// subsequent one waits out the declared interval.
		pacer: rate.NewLimiter(rate.Every(cfg.RequestInterval), 1),
	}
}

// SetPacer replaces the request pacer. Test hook.
func (s *Service) SetPacer(p Pacer) { s.pacer = p }

// Run executes one full warm cycle. It blocks until all sub-operations
// finished or ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	start := time.Now()
	s.log.Info("warm cycle started", logx.Int("languages", len(s.cfg.Languages)))

	s.warmDatabase(ctx)
	s.warmPlayers(ctx)
	s.warmMap(ctx)

	s.log.Info("warm cycle finished", logx.Duration("took", time.Since(start)))
}
