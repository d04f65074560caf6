package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config points the client at the three upstream services.
type Config struct {
	// DatabaseURL serves the localized lookup tables
	// (<DatabaseURL>/i18n/autocomplete_<lang>.json).
	DatabaseURL string
	// APIURL serves leaderboard, player detail, feed status and live events.
	APIURL string
	// MapURL serves the full map dataset in one document.
	MapURL string

	Timeout time.Duration
}

// Client talks to the upstream game-status services.
//
// Every fetch is fallible and callers are expected to skip-and-continue;
// nothing here retries.
type Client struct {
	cfg Config
	hc  *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: timeout},
	}
}

// GetDatabase fetches the localized lookup table for one language.
func (c *Client) GetDatabase(ctx context.Context, language string) ([]json.RawMessage, error) {
	u := strings.TrimRight(c.cfg.DatabaseURL, "/") + "/i18n/autocomplete_" + url.PathEscape(language) + ".json"
	var entries []json.RawMessage
	if err := c.getJSON(ctx, u, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetLeaderboard fetches the current leaderboard rows.
func (c *Client) GetLeaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	var entries []LeaderboardEntry
	if err := c.getJSON(ctx, c.api("/leaderboard"), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetPlayer fetches per-player detail. A missing player yields (nil, nil).
func (c *Client) GetPlayer(ctx context.Context, battleTag string) (*Player, error) {
	u := c.api("/player/" + url.PathEscape(battleTag))
	var p Player
	found, err := c.getJSONOptional(ctx, u, &p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

// GetStatus fetches the feed health flag.
func (c *Client) GetStatus(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.getJSON(ctx, c.api("/status"), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// GetEvents fetches the live event mapping (eventKey -> state).
func (c *Client) GetEvents(ctx context.Context) (map[string]EventState, error) {
	var events map[string]EventState
	if err := c.getJSON(ctx, c.api("/events"), &events); err != nil {
		return nil, err
	}
	return events, nil
}

// GetMap fetches the full map dataset.
func (c *Client) GetMap(ctx context.Context) (MapData, error) {
	var data MapData
	if err := c.getJSON(ctx, c.cfg.MapURL, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) api(path string) string {
	return strings.TrimRight(c.cfg.APIURL, "/") + path
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	found, err := c.getJSONOptional(ctx, u, out)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("get %s: not found", u)
	}
	return nil
}

func (c *Client) getJSONOptional(ctx context.Context, u string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, fmt.Errorf("get %s: unexpected status %d", u, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("get %s: decode: %w", u, err)
	}
	return true, nil
}
