package warmer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"hellwatch/internal/cache"
	"hellwatch/internal/upstream"
	logx "hellwatch/pkg/logx"
)

type fakeAPI struct {
	database    map[string][]json.RawMessage
	leaderboard []upstream.LeaderboardEntry
	players     map[string]*upstream.Player
	mapData     upstream.MapData

	databaseErr    error
	leaderboardErr error
	mapErr         error

	playerFetches []string
}

func (f *fakeAPI) GetDatabase(_ context.Context, lang string) ([]json.RawMessage, error) {
	if f.databaseErr != nil {
		return nil, f.databaseErr
	}
	return f.database[lang], nil
}

func (f *fakeAPI) GetLeaderboard(context.Context) ([]upstream.LeaderboardEntry, error) {
	if f.leaderboardErr != nil {
		return nil, f.leaderboardErr
	}
	return f.leaderboard, nil
}

func (f *fakeAPI) GetPlayer(_ context.Context, tag string) (*upstream.Player, error) {
	f.playerFetches = append(f.playerFetches, tag)
	return f.players[tag], nil
}

func (f *fakeAPI) GetMap(context.Context) (upstream.MapData, error) {
	if f.mapErr != nil {
		return nil, f.mapErr
	}
	return f.mapData, nil
}

// countingPacer records waits without sleeping.
type countingPacer struct{ waits int }

func (p *countingPacer) Wait(context.Context) error {
	p.waits++
	return nil
}

func newTestService(t *testing.T, api *fakeAPI, store cache.Store, langs []string) (*Service, *countingPacer) {
	t.Helper()
	s := New(Config{Enabled: true, Languages: langs}, api, store, logx.Nop())
	p := &countingPacer{}
	s.SetPacer(p)
	return s, p
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestWarmDatabaseSkipsEmptyLanguages(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{database: map[string][]json.RawMessage{
		"en": {raw(`{"id":1}`), raw(`{"id":2}`)},
		// "de" yields no data and must be skipped without aborting "fr".
		"fr": {raw(`{"id":3}`)},
	}}
	store := cache.NewMemory()
	s, _ := newTestService(t, api, store, []string{"en", "de", "fr"})

	s.warmDatabase(context.Background())

	_, ok, err := store.Get(context.Background(), "database:en")
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = store.Get(context.Background(), "database:de")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.Get(context.Background(), "database:fr")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWarmDatabasePacesBetweenLanguages(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{database: map[string][]json.RawMessage{
		"en": {raw(`1`)}, "de": {raw(`2`)}, "fr": {raw(`3`)},
	}}
	s, pacer := newTestService(t, api, cache.NewMemory(), []string{"en", "de", "fr"})

	s.warmDatabase(context.Background())

	// N requests, N-1 pauses.
	assert.Equal(t, 2, pacer.waits)
}

func TestWarmPlayersSkipPolicy(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{
		leaderboard: []upstream.LeaderboardEntry{
			{BattleTag: "A#1", Name: "Alice"},
			{BattleTag: "B#2", Name: "Bob"},
			{BattleTag: "C#3", Name: "Cara"},
		},
		players: map[string]*upstream.Player{
			"B#2": {Characters: nil}, // zero characters
			"C#3": {Characters: []upstream.Character{
				{Name: "Lowbie", Level: 12},
				{Name: "Main", Level: 87},
			}},
		},
	}
	store := cache.NewMemory()
	require.NoError(t, store.Set(context.Background(), "players:A#1", `{"battleTag":"A#1"}`))

	s, _ := newTestService(t, api, store, nil)
	s.warmPlayers(context.Background())

	// A#1 was already cached: detail must never be re-fetched.
	assert.NotContains(t, api.playerFetches, "A#1")

	// B#2 has zero characters: no cache entry written.
	_, ok, err := store.Get(context.Background(), "players:B#2")
	require.NoError(t, err)
	assert.False(t, ok)

	// C#3 is cached with the highest-level character's name.
	v, ok, err := store.Get(context.Background(), "players:C#3")
	require.NoError(t, err)
	require.True(t, ok)
	var rec PlayerRecord
	require.NoError(t, json.Unmarshal([]byte(v), &rec))
	assert.Equal(t, "Main", rec.Name)
	assert.Equal(t, []string{"Lowbie", "Main"}, rec.Characters)
}

func TestWarmPlayersLeaderboardFailureAbortsSubOpOnly(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{
		leaderboardErr: errors.New("upstream down"),
		mapData:        upstream.MapData{"waypoints": raw(`[]`)},
	}
	store := cache.NewMemory()
	s, _ := newTestService(t, api, store, nil)

	s.Run(context.Background())

	// The roster sub-operation failed, but the map warm still ran.
	_, ok, err := store.Get(context.Background(), "map:waypoints")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, api.playerFetches)
}

func TestWarmMapFansOutCategories(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{mapData: upstream.MapData{
		"waypoints": raw(`[{"x":1}]`),
		"dungeons":  raw(`[{"x":2}]`),
		"altars":    raw(`[]`),
	}}
	store := cache.NewMemory()
	s, pacer := newTestService(t, api, store, nil)

	s.warmMap(context.Background())

	assert.Equal(t, 3, store.Len())
	// Single fetch, local writes only: no pacing.
	assert.Equal(t, 0, pacer.waits)
	v, ok, err := store.Get(context.Background(), "map:dungeons")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"x":2}]`, v)
}

func TestWarmIsIdempotent(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{
		database: map[string][]json.RawMessage{"en": {raw(`{"id":1}`)}},
		leaderboard: []upstream.LeaderboardEntry{
			{BattleTag: "A#1", Name: "Alice"},
		},
		players: map[string]*upstream.Player{
			"A#1": {Characters: []upstream.Character{{Name: "Main", Level: 50}}},
		},
		mapData: upstream.MapData{"waypoints": raw(`[]`)},
	}
	store := cache.NewMemory()
	s, _ := newTestService(t, api, store, []string{"en"})

	s.Run(context.Background())
	first := store.Snapshot()

	s.Run(context.Background())
	second := store.Snapshot()

	assert.Equal(t, first, second)
	// The second cycle must not have re-fetched the cached player.
	assert.Equal(t, []string{"A#1"}, api.playerFetches)
}

func TestDefaultPacerEnforcesInterval(t *testing.T) {
	t.Parallel()
	// The production pacer is a token limiter at 1/interval with burst 1:
	// N sequential waits take at least (N-1) * interval.
	interval := 20 * time.Millisecond
	lim := rate.NewLimiter(rate.Every(interval), 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, lim.Wait(context.Background()))
	}
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 2*interval)
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()
	cfg := Config{}.withDefaults()
	assert.Equal(t, time.Second, cfg.RequestInterval)
	assert.NotEmpty(t, cfg.Languages)
}
