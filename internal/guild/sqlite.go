package guild

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "hellwatch/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Config configures the guild repository.
//
// Driver values:
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", the repository is disabled and the notifier
// sees zero guilds.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Open initializes the configured repository.
// It returns (nil, nil) if the repository is disabled.
func Open(cfg Config, log logx.Logger) (Repository, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown guild driver: " + driver)
	}
}

type sqliteRepo struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (*sqliteRepo, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	r := &sqliteRepo{db: db, log: log}

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *sqliteRepo) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, string(b))
	return err
}

func (r *sqliteRepo) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *sqliteRepo) GetAll(ctx context.Context) ([]Guild, error) {
	if r == nil || r.db == nil {
		return nil, ErrDisabled
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT g.id, s.event_key, s.enabled, s.chat_id, s.thread_id, s.role, s.schedule
		 FROM guilds g
		 LEFT JOIN guild_event_settings s ON s.guild_id = g.id
		 ORDER BY g.id`)
	if err != nil {
		return nil, fmt.Errorf("guilds query: %w", err)
	}
	defer rows.Close()

	byID := map[string]*Guild{}
	var order []string
	for rows.Next() {
		var (
			id       string
			eventKey sql.NullString
			enabled  sql.NullInt64
			chatID   sql.NullInt64
			threadID sql.NullInt64
			role     sql.NullString
			schedule sql.NullInt64
		)
		if err := rows.Scan(&id, &eventKey, &enabled, &chatID, &threadID, &role, &schedule); err != nil {
			return nil, fmt.Errorf("guilds scan: %w", err)
		}
		g := byID[id]
		if g == nil {
			g = &Guild{ID: id, Settings: map[string]EventSettings{}}
			byID[id] = g
			order = append(order, id)
		}
		if !eventKey.Valid {
			continue
		}
		st := EventSettings{
			Enabled:  enabled.Int64 != 0,
			Schedule: schedule.Int64 != 0,
		}
		if chatID.Valid {
			st.Channel = &ChannelRef{ChatID: chatID.Int64, ThreadID: int(threadID.Int64)}
		}
		if role.Valid && strings.TrimSpace(role.String) != "" {
			st.Role = &RoleRef{ID: role.String}
		}
		g.Settings[eventKey.String] = st
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Guild, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

// UpsertSetting writes one guild's delivery configuration for one event key.
// The notifier core never calls this; it exists for the operator surface that
// provisions subscriber configuration.
func (r *sqliteRepo) UpsertSetting(ctx context.Context, guildID, eventKey string, st EventSettings) error {
	if r == nil || r.db == nil {
		return ErrDisabled
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO guilds(id) VALUES(?) ON CONFLICT(id) DO NOTHING`, guildID); err != nil {
		return fmt.Errorf("guild upsert: %w", err)
	}

	var (
		chatID   any
		threadID int64
		role     any
	)
	if st.Channel != nil {
		chatID = st.Channel.ChatID
		threadID = int64(st.Channel.ThreadID)
	}
	if st.Role != nil && strings.TrimSpace(st.Role.ID) != "" {
		role = st.Role.ID
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO guild_event_settings(guild_id, event_key, enabled, chat_id, thread_id, role, schedule)
		 VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(guild_id, event_key) DO UPDATE SET
		   enabled=excluded.enabled, chat_id=excluded.chat_id, thread_id=excluded.thread_id,
		   role=excluded.role, schedule=excluded.schedule`,
		guildID, eventKey, boolInt(st.Enabled), chatID, threadID, role, boolInt(st.Schedule),
	)
	if err != nil {
		return fmt.Errorf("guild setting upsert: %w", err)
	}
	return nil
}

func boolInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}
