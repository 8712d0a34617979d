package identity

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentstation/utc"
	_ "modernc.org/sqlite" // database/sql driver

	"github.com/romsync/romsync/pkg/errors"
)

// schema holds one row per item the bridge ever created. The unique index
// on target_id enforces the bijection invariant at the storage level.
const schema = `
CREATE TABLE IF NOT EXISTS mappings (
    external_id      TEXT PRIMARY KEY,
    target_id        TEXT NOT NULL,
    last_synced_hash TEXT NOT NULL,
    last_synced_at   INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_mappings_target_id ON mappings (target_id);
`

// SQLiteStore persists identity mappings in a SQLite database. Every
// statement is its own implicit transaction, which gives the per-row
// atomicity the Store contract requires.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time contract check.
var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (and if necessary initializes) the identity map at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.WrapStore("open", errors.New("store path is required"))
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.WrapStore("open", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.WrapStore("open", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.WrapStore("open", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns every persisted mapping.
func (s *SQLiteStore) Load(ctx context.Context) ([]Mapping, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT external_id, target_id, last_synced_hash, last_synced_at
		 FROM mappings ORDER BY external_id`)
	if err != nil {
		return nil, errors.WrapStore("load", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []Mapping
	for rows.Next() {
		var m Mapping
		var syncedAt int64
		if err := rows.Scan(&m.ExternalID, &m.TargetID, &m.LastSyncedHash, &syncedAt); err != nil {
			return nil, errors.WrapStore("load", err)
		}
		m.LastSyncedAt = utc.Time{Time: time.UnixMilli(syncedAt).UTC()}
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStore("load", err)
	}
	return mappings, nil
}

// Upsert inserts or replaces the mapping for its external ID.
func (s *SQLiteStore) Upsert(ctx context.Context, m Mapping) error {
	if m.ExternalID == "" || m.TargetID == "" {
		return errors.WrapStore("upsert", errors.New("external id and target id are required"))
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mappings (external_id, target_id, last_synced_hash, last_synced_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (external_id) DO UPDATE SET
		   target_id = excluded.target_id,
		   last_synced_hash = excluded.last_synced_hash,
		   last_synced_at = excluded.last_synced_at`,
		m.ExternalID, m.TargetID, m.LastSyncedHash, m.LastSyncedAt.UTC().UnixMilli())
	if err != nil {
		return errors.WrapStore("upsert", err)
	}
	return nil
}

// Remove deletes the mapping for the external ID.
func (s *SQLiteStore) Remove(ctx context.Context, externalID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM mappings WHERE external_id = ?`, externalID)
	if err != nil {
		return errors.WrapStore("remove", err)
	}
	return nil
}
