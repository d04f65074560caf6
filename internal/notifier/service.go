package notifier

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"hellwatch/internal/cache"
	"hellwatch/internal/guild"
	logx "hellwatch/pkg/logx"
)

type Service struct {
	mu  sync.Mutex
	cfg Config

	api    API
	store  cache.Store
	guilds guild.Repository
	bc     Broadcaster
	log    logx.Logger
	clock  clockwork.Clock

	c     *cron.Cron
	state *runState

	runCtx    context.Context
	runCancel context.CancelFunc
}

func New(cfg Config, api API, store cache.Store, guilds guild.Repository, bc Broadcaster, log logx.Logger) *Service {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg,
		api:    api,
		store:  store,
		guilds: guilds,
		bc:     bc,
		log:    log,
		clock:  clockwork.NewRealClock(),
		state:  &runState{},
	}
}

// SetClock replaces the staleness clock. Test hook.
func (s *Service) SetClock(c clockwork.Clock) { s.clock = c }

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}

	s.runCtx, s.runCancel = context.WithCancel(ctx)
	runCtx := s.runCtx

	s.c = cron.New()
	spec := fmt.Sprintf("@every %s", s.cfg.Interval)
	_, err := s.c.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in notifier tick", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			}
		}()

		if s.cfg.Overlap == OverlapSkipIfRunning {
			if !s.state.tryAcquire() {
				s.log.Debug("previous tick still running; skipping")
				return
			}
			defer s.state.release()
		}
		s.refresh(runCtx)
	})
	if err != nil {
		// "@every <duration>" only fails on a malformed interval, which
		// withDefaults() prevents.
		s.log.Error("tick registration failed", logx.Err(err))
		return
	}
	s.c.Start()
	s.log.Info("service started", logx.Duration("interval", s.cfg.Interval))
}

func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	c := s.c
	cancel := s.runCancel
	s.c = nil
	s.runCancel = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	if cancel != nil {
		cancel()
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		// stop continues in background
	}
	s.log.Info("service stopped", logx.Duration("took", time.Since(start)))
}
