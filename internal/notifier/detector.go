package notifier

import (
	"context"
	"encoding/json"
	"time"

	"hellwatch/internal/cache"
	"hellwatch/internal/guild"
	"hellwatch/internal/upstream"
	logx "hellwatch/pkg/logx"
)

// refresh runs one change-detection tick: status gate, event fetch, baseline
// diff per event, fan-out per guild.
func (s *Service) refresh(ctx context.Context) {
	status, err := s.api.GetStatus(ctx)
	if err != nil || status == nil || !status.EventService {
		// Expected, recoverable condition: the feed flags itself unavailable.
		s.log.Debug("event service unavailable; skipping tick", logx.Err(err))
		return
	}

	events, err := s.api.GetEvents(ctx)
	if err != nil {
		s.log.Warn("event fetch failed; skipping tick", logx.Err(err))
		return
	}

	guilds, err := s.loadGuilds(ctx)
	if err != nil {
		s.log.Warn("guild load failed; skipping tick", logx.Err(err))
		return
	}

	for key, fresh := range events {
		// Baselines are diffed and persisted before any delivery, so a
		// delivery failure (or restart) never re-fires this transition.
		if !s.detect(ctx, key, fresh) {
			continue
		}

		sent, failed := 0, 0
		for _, g := range guilds {
			setting, ok := g.Settings[key]
			if !ok || !setting.Enabled {
				continue
			}
			if err := s.bc.Deliver(ctx, g, key, fresh); err != nil {
				failed++
				continue
			}
			sent++
		}
		s.log.Info("event transition fanned out",
			logx.String("event", key),
			logx.Int64("timestamp", fresh.Timestamp),
			logx.Int("sent", sent),
			logx.Int("failed", failed),
		)
	}
}

// detect updates the cached baseline for one event and reports whether the
// transition is eligible for notification.
//
// First observations and unchanged timestamps are not transitions. A changed
// timestamp always updates the baseline; it is only notified when the fresh
// start time still lies in the future.
func (s *Service) detect(ctx context.Context, key string, fresh upstream.EventState) bool {
	ck := cache.Key(cache.NSEvents, key)

	freshJSON, err := json.Marshal(fresh)
	if err != nil {
		s.log.Warn("event state marshal failed", logx.String("event", key), logx.Err(err))
		return false
	}

	raw, ok, err := s.store.Get(ctx, ck)
	if err != nil {
		s.log.Warn("baseline read failed", logx.String("event", key), logx.Err(err))
		return false
	}
	if !ok {
		// First observation: store the baseline, notify nothing.
		if err := s.store.Set(ctx, ck, string(freshJSON)); err != nil {
			s.log.Warn("baseline write failed", logx.String("event", key), logx.Err(err))
		}
		return false
	}

	var baseline upstream.EventState
	if err := json.Unmarshal([]byte(raw), &baseline); err != nil {
		// Malformed baseline: fail this event only. Re-seed it with the
		// fresh state and treat this tick as a first observation.
		s.log.Warn("malformed baseline; re-seeding", logx.String("event", key), logx.Err(err))
		if err := s.store.Set(ctx, ck, string(freshJSON)); err != nil {
			s.log.Warn("baseline write failed", logx.String("event", key), logx.Err(err))
		}
		return false
	}

	if baseline.Timestamp == fresh.Timestamp {
		return false
	}

	if err := s.store.Set(ctx, ck, string(freshJSON)); err != nil {
		// Without a persisted baseline the transition would re-fire after a
		// restart; better to miss one cycle than to double-notify.
		s.log.Warn("baseline write failed; suppressing notification", logx.String("event", key), logx.Err(err))
		return false
	}

	if !time.Unix(fresh.Timestamp, 0).After(s.clock.Now()) {
		s.log.Debug("transition already started; suppressing", logx.String("event", key), logx.Int64("timestamp", fresh.Timestamp))
		return false
	}
	return true
}

func (s *Service) loadGuilds(ctx context.Context) ([]guild.Guild, error) {
	if s.guilds == nil {
		return nil, nil
	}
	return s.guilds.GetAll(ctx)
}
