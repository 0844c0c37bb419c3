package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	turns      TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
`

// SQLiteStore persists sessions in a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
}

// SQLiteConfig configures the persistent store.
type SQLiteConfig struct {
	Path   string
	TTL    time.Duration
	Logger *slog.Logger
}

func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("session store: path required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("session store: open %s: %w", cfg.Path, err)
	}

	if _, err := db.Exec(sessionSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("session store: create schema: %w", err)
	}

	return &SQLiteStore{db: db, ttl: cfg.TTL, logger: cfg.Logger}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	var version int
	var turnsJSON string
	var expiresAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT version, turns, expires_at FROM sessions WHERE id = ?`, id,
	).Scan(&version, &turnsJSON, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return emptySession(id, s.ttl), nil
	}
	if err != nil {
		return nil, fmt.Errorf("session store: get %s: %w", id, err)
	}

	expiry := time.Unix(expiresAt, 0).UTC()
	if time.Now().UTC().After(expiry) || version != SchemaVersion {
		return emptySession(id, s.ttl), nil
	}

	var turns []Turn
	if err := json.Unmarshal([]byte(turnsJSON), &turns); err != nil {
		s.logger.Warn("discarding undecodable session", "session_id", id, "error", err)
		return emptySession(id, s.ttl), nil
	}

	return &Session{
		Version:   version,
		SessionID: id,
		Turns:     turns,
		ExpiresAt: expiry,
	}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, id string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	current.Turns = append(current.Turns, turns...)
	expiry := time.Now().UTC().Add(s.ttl)

	turnsJSON, err := json.Marshal(current.Turns)
	if err != nil {
		return fmt.Errorf("session store: encode %s: %w", id, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, version, turns, expires_at) VALUES (?, ?, ?, ?)`,
		id, SchemaVersion, string(turnsJSON), expiry.Unix())
	if err != nil {
		return fmt.Errorf("session store: append %s: %w", id, err)
	}
	return nil
}

// PurgeExpired deletes sessions past their expiry and returns the count.
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("session store: purge: %w", err)
	}
	removed, _ := res.RowsAffected()
	if removed > 0 {
		s.logger.Debug("purged expired sessions", "count", removed)
	}
	return removed, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
