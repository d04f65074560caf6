package warmer

import (
	"context"
	"encoding/json"
	"sort"

	"hellwatch/internal/cache"
	"hellwatch/internal/upstream"
	logx "hellwatch/pkg/logx"
)

// PlayerRecord is the cached roster entry derived from a leaderboard row plus
// the per-player detail lookup. Once cached for a battle tag it is never
// refreshed again by this service.
type PlayerRecord struct {
	BattleTag  string   `json:"battleTag"`
	Name       string   `json:"name"`
	Characters []string `json:"characters"`
}

// warmDatabase fetches the localized lookup table for each configured
// language and stores it under database:<language>. Languages are warmed
// sequentially and rate limited; a failed language is skipped, not retried.
func (s *Service) warmDatabase(ctx context.Context) {
	for i, lang := range s.cfg.Languages {
		if ctx.Err() != nil {
			return
		}
		if i > 0 {
			if err := s.pacer.Wait(ctx); err != nil {
				return
			}
		}

		entries, err := s.api.GetDatabase(ctx, lang)
		if err != nil || len(entries) == 0 {
			s.log.Warn("lookup table unavailable; skipping language", logx.String("lang", lang), logx.Err(err))
			continue
		}

		b, err := json.Marshal(entries)
		if err != nil {
			s.log.Warn("lookup table marshal failed", logx.String("lang", lang), logx.Err(err))
			continue
		}
		if err := s.store.Set(ctx, cache.Key(cache.NSDatabase, lang), string(b)); err != nil {
			s.log.Warn("lookup table cache write failed", logx.String("lang", lang), logx.Err(err))
			continue
		}
		s.log.Info("lookup table cached", logx.String("lang", lang), logx.Int("entries", len(entries)))
	}
}

// warmPlayers walks the leaderboard and caches a PlayerRecord per battle tag.
// Cache presence means "already known": cached players are never re-fetched.
// Players with zero characters are silently skipped.
func (s *Service) warmPlayers(ctx context.Context) {
	board, err := s.api.GetLeaderboard(ctx)
	if err != nil {
		s.log.Error("leaderboard fetch failed", logx.Err(err))
		return
	}

	first := true
	for _, entry := range board {
		if ctx.Err() != nil {
			return
		}

		known, err := s.store.Exists(ctx, cache.Key(cache.NSPlayers, entry.BattleTag))
		if err != nil {
			s.log.Warn("player cache check failed", logx.String("tag", entry.BattleTag), logx.Err(err))
			continue
		}
		if known {
			continue
		}

		// The pause applies between upstream detail fetches, not before the
		// first one and not for cache-hit skips.
		if !first {
			if err := s.pacer.Wait(ctx); err != nil {
				return
			}
		}
		first = false

		player, err := s.api.GetPlayer(ctx, entry.BattleTag)
		if err != nil || player == nil || len(player.Characters) == 0 {
			continue
		}

		rec := PlayerRecord{
			BattleTag:  entry.BattleTag,
			Name:       displayName(player.Characters, entry.Name),
			Characters: characterNames(player.Characters),
		}
		b, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		if err := s.store.Set(ctx, cache.Key(cache.NSPlayers, entry.BattleTag), string(b)); err != nil {
			s.log.Warn("player cache write failed", logx.String("tag", entry.BattleTag), logx.Err(err))
			continue
		}
		s.log.Info("player cached", logx.String("tag", entry.BattleTag), logx.Int("characters", len(rec.Characters)))
	}
}

// warmMap fetches the full map dataset once and fans its categories out into
// map:<category> entries. No inter-write delay: one upstream fetch, many
// local writes.
func (s *Service) warmMap(ctx context.Context) {
	data, err := s.api.GetMap(ctx)
	if err != nil {
		s.log.Error("map fetch failed", logx.Err(err))
		return
	}

	for category, collection := range data {
		if err := s.store.Set(ctx, cache.Key(cache.NSMap, category), string(collection)); err != nil {
			s.log.Warn("map cache write failed", logx.String("category", category), logx.Err(err))
		}
	}
	s.log.Info("map cached", logx.Int("categories", len(data)))
}

// displayName picks the highest-level character's name, falling back to the
// leaderboard name.
func displayName(chars []upstream.Character, fallback string) string {
	if len(chars) == 0 {
		return fallback
	}
	sorted := append([]upstream.Character(nil), chars...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Level > sorted[j].Level })
	if sorted[0].Name == "" {
		return fallback
	}
	return sorted[0].Name
}

func characterNames(chars []upstream.Character) []string {
	names := make([]string, 0, len(chars))
	for _, c := range chars {
		names = append(names, c.Name)
	}
	return names
}
