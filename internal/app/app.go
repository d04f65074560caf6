// Package app assembles the services from configuration and owns their
// lifecycle.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hellwatch/internal/broadcast"
	"hellwatch/internal/cache"
	"hellwatch/internal/config"
	"hellwatch/internal/guild"
	"hellwatch/internal/notifier"
	"hellwatch/internal/transport/telegram"
	"hellwatch/internal/upstream"
	"hellwatch/internal/warmer"
	logx "hellwatch/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store  cache.Store
	guilds guild.Repository

	warmer   *warmer.Service
	notifier *notifier.Service

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	mgr.SetLogger(log.With(logx.String("svc", "config")))

	a := &App{cfgMgr: mgr, logSvc: logSvc, log: log}
	if err := a.build(cfg); err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(cfg *config.Config) error {
	store, err := cache.Open(cache.Config{
		Driver:   cfg.Cache.Driver,
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	}, a.log.With(logx.String("svc", "cache")))
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	a.store = store

	busy, err := config.ParseDurationField("guilds.busy_timeout", cfg.Guilds.BusyTimeout)
	if err != nil {
		return err
	}
	guilds, err := guild.Open(guild.Config{
		Driver:      cfg.Guilds.Driver,
		Path:        cfg.Guilds.Path,
		BusyTimeout: busy,
	}, a.log.With(logx.String("svc", "guilds")))
	if err != nil {
		return fmt.Errorf("open guild repository: %w", err)
	}
	a.guilds = guilds

	upTimeout, err := config.ParseDurationOrDefault("upstream.timeout", cfg.Upstream.Timeout, 15*time.Second)
	if err != nil {
		return err
	}
	api := upstream.NewClient(upstream.Config{
		DatabaseURL: cfg.Upstream.DatabaseURL,
		APIURL:      cfg.Upstream.APIURL,
		MapURL:      cfg.Upstream.MapURL,
		Timeout:     upTimeout,
	})

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return err
	}
	sender, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, a.log.With(logx.String("svc", "telegram")))
	if err != nil {
		return fmt.Errorf("telegram adapter: %w", err)
	}

	bc := broadcast.New(broadcast.Config{}, sender, broadcast.NopScheduler{},
		a.log.With(logx.String("svc", "broadcast")))

	if cfg.Warmer.Enabled {
		interval, err := config.ParseDurationOrDefault("warmer.request_interval", cfg.Warmer.RequestInterval, time.Second)
		if err != nil {
			return err
		}
		a.warmer = warmer.New(warmer.Config{
			Enabled:         true,
			Languages:       cfg.Warmer.Languages,
			RequestInterval: interval,
		}, api, store, a.log.With(logx.String("svc", "warmer")))
	}

	if cfg.Notifier.Enabled {
		interval, err := config.ParseDurationOrDefault("notifier.interval", cfg.Notifier.Interval, 60*time.Second)
		if err != nil {
			return err
		}
		a.notifier = notifier.New(notifier.Config{
			Enabled:  true,
			Interval: interval,
			Overlap:  notifier.ParseOverlap(cfg.Notifier.Overlap),
		}, api, store, guilds, bc, a.log.With(logx.String("svc", "notifier")))
	}

	return nil
}

func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return nil
	}
	a.started = true

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	// Config watch: live-applies the logging section, logs everything else.
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgMgr.Watch(runCtx)
	}()
	sub := a.cfgMgr.Subscribe(1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgMgr.Unsubscribe(sub)
		for {
			select {
			case <-runCtx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.logSvc.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.Console,
					File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
				})
				a.log.Info("logging config applied")
			}
		}
	}()

	// The warm cycle runs once at startup; the notifier tick is independent
	// and starts immediately.
	if a.warmer != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.warmer.Run(runCtx)
		}()
	}
	if a.notifier != nil {
		a.notifier.Start(runCtx)
	}

	a.log.Info("hellwatch started",
		logx.Bool("warmer", a.warmer != nil),
		logx.Bool("notifier", a.notifier != nil),
	)
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return nil
	}
	a.started = false

	if a.notifier != nil {
		a.notifier.Stop(ctx)
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.wg.Wait()

	if a.guilds != nil {
		_ = a.guilds.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	a.log.Info("hellwatch stopped")
	return a.logSvc.Close()
}
