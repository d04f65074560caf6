package upstream

import "encoding/json"

// Status is the live feed health flag. EventService gates the notifier tick.
type Status struct {
	EventService bool `json:"event_service"`
}

// EventState is one entry of the live event mapping.
//
// Timestamp (unix seconds, event start time) is the authoritative version
// marker: two states with equal timestamps are identical for notification
// purposes.
type EventState struct {
	Name      string `json:"name"`
	Zone      string `json:"zone,omitempty"`
	Territory string `json:"territory,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// LeaderboardEntry is one row of the leaderboard endpoint.
type LeaderboardEntry struct {
	BattleTag string `json:"battleTag"`
	Name      string `json:"name"`
}

// Player is the per-player detail record.
type Player struct {
	Characters []Character `json:"characters"`
}

type Character struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// MapData is the full map dataset: named collections keyed by category
// (waypoints, dungeons, altars, ...). Collections stay opaque; the warmer
// only fans them out into per-category cache entries.
type MapData map[string]json.RawMessage

// Event keys produced by the feed.
const (
	EventBoss     = "boss"
	EventHelltide = "helltide"
	EventLegion   = "legion"
)
