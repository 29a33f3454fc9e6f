// Package store persists clipper settings, saved templates, and a memo of
// rendered outputs in a local SQLite database. It also provides the
// in-memory cache of parsed templates that callers inject into their render
// path instead of relying on process-wide state.
package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/natefinch/atomic"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS templates (
	name       TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS render_cache (
	key        TEXT PRIMARY KEY,
	output     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);`

// Store wraps the SQLite database. All methods are safe for concurrent use;
// database/sql serializes access.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use "?_journal_mode=WAL&_busy_timeout=5000" style parameters in
// the path to tune the connection.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := openDB(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	logger.Debug("store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// GetSetting returns a setting value and whether it exists.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading setting %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings(key, value) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("writing setting %q: %w", key, err)
	}
	return nil
}

// SaveTemplate stores a named template source.
func (s *Store) SaveTemplate(ctx context.Context, name, source string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO templates(name, source, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET source = excluded.source, updated_at = excluded.updated_at`,
		name, source, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("saving template %q: %w", name, err)
	}
	return nil
}

func (s *Store) GetTemplate(ctx context.Context, name string) (string, bool, error) {
	var source string
	err := s.db.QueryRowContext(ctx, `SELECT source FROM templates WHERE name = ?`, name).Scan(&source)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading template %q: %w", name, err)
	}
	return source, true, nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) DeleteTemplate(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting template %q: %w", name, err)
	}
	return nil
}

// RenderKey derives a stable cache key from template source, variables, and
// page URL. Variables are serialized in sorted key order so logically equal
// maps hash identically.
func RenderKey(src string, vars map[string]any, currentURL string) string {
	h := sha256.New()
	h.Write([]byte(src))
	h.Write([]byte{0})
	h.Write([]byte(currentURL))
	h.Write([]byte{0})
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		if b, err := json.Marshal(vars[k]); err == nil {
			h.Write(b)
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CachedOutput returns a previously stored render result.
func (s *Store) CachedOutput(ctx context.Context, key string) (string, bool, error) {
	var output string
	err := s.db.QueryRowContext(ctx, `SELECT output FROM render_cache WHERE key = ?`, key).Scan(&output)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading render cache: %w", err)
	}
	return output, true, nil
}

func (s *Store) StoreOutput(ctx context.Context, key, output string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO render_cache(key, output, created_at) VALUES(?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET output = excluded.output, created_at = excluded.created_at`,
		key, output, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("writing render cache: %w", err)
	}
	return nil
}

// PruneCache drops cached renders older than maxAge and reports how many
// rows went away.
func (s *Store) PruneCache(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM render_cache WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning render cache: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Debug("pruned render cache", "rows", n)
	}
	return n, nil
}

// ExportSettings writes all settings to a JSON file. The write is atomic so
// a crash never leaves a half-written export behind.
func (s *Store) ExportSettings(ctx context.Context, path string) error {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	s.logger.Info("settings exported", "path", path, "count", len(out))
	return nil
}

// ImportSettings loads settings from a JSON export, overwriting existing keys.
func (s *Store) ImportSettings(ctx context.Context, data []byte) error {
	var in map[string]string
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decoding settings: %w", err)
	}
	for k, v := range in {
		if err := s.SetSetting(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}
