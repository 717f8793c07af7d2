// Package sqlitestore persists wizard sessions in a SQLite database through
// the pure-Go modernc.org/sqlite driver, so a single binary can resume
// sessions across restarts without an external server.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/goliatone/go-formwizard/pkg/store"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// Backend implements store.Backend over a shared "wizard_records" table keyed
// by (session, key).
type Backend struct {
	db      *sql.DB
	session string
}

var _ store.Backend = (*Backend)(nil)

// Open opens (or creates) a database file and returns the handle.
func Open(path string) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlitestore: path is required")
	}
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// New binds db to a session and ensures the schema exists.
func New(ctx context.Context, db *sql.DB, sessionID string) (*Backend, error) {
	if db == nil {
		return nil, errors.New("sqlitestore: db is required")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errors.New("sqlitestore: session id is required")
	}
	b := &Backend{db: db, session: sessionID}
	if err := b.migrate(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Backend) migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS wizard_records (
		session TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (session, key)
	);`
	if _, err := b.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := b.db.QueryRowContext(ctx,
		`SELECT value FROM wizard_records WHERE session = ? AND key = ?`,
		b.session, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlitestore: get %s: %w", key, err)
	}
	return value, true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO wizard_records (session, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		b.session, key, value,
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: set %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx,
		`DELETE FROM wizard_records WHERE session = ? AND key = ?`, b.session, key,
	); err != nil {
		return fmt.Errorf("sqlitestore: delete %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT key FROM wizard_records WHERE session = ? ORDER BY key`, b.session)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitestore: keys: %w", err)
	}
	return keys, nil
}

func (b *Backend) Clear(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx,
		`DELETE FROM wizard_records WHERE session = ?`, b.session,
	); err != nil {
		return fmt.Errorf("sqlitestore: clear: %w", err)
	}
	return nil
}
