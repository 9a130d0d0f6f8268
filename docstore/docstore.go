// Package docstore caches extraction results in SQLite, keyed by the
// SHA-256 of the input bytes. A hit lets the pipeline skip decoding a
// document it has already seen, whatever its file name.
package docstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/legacydoc/dbopen"
)

// Schema is the cache table. variant separates results of the same input
// produced under different output options (text only, HTML, markdown).
const Schema = `
CREATE TABLE IF NOT EXISTS extractions (
    sha256     TEXT NOT NULL,
    variant    TEXT NOT NULL DEFAULT '',
    format     TEXT NOT NULL,
    name       TEXT NOT NULL DEFAULT '',
    payload    BLOB NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (sha256, variant)
);
`

// Entry is one cached extraction.
type Entry struct {
	Key       string
	Variant   string
	Format    string
	Name      string
	Payload   []byte
	CreatedAt time.Time
}

// Store is a result cache backed by one SQLite database.
type Store struct {
	db    *sql.DB
	owned bool
}

// Open opens or creates the cache database at path.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("docstore: %w", err)
	}
	return &Store{db: db, owned: true}, nil
}

// New wraps an existing database and creates the table if needed. Close
// leaves db open.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("docstore: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Key returns the cache key for data.
func Key(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Get returns the entry for key and variant. The boolean is false on a miss.
func (s *Store) Get(ctx context.Context, key, variant string) (*Entry, bool, error) {
	e := Entry{Key: key, Variant: variant}
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT format, name, payload, created_at FROM extractions WHERE sha256 = ? AND variant = ?`,
		key, variant).Scan(&e.Format, &e.Name, &e.Payload, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("docstore: get %s: %w", key, err)
	}
	e.CreatedAt = time.Unix(created, 0)
	return &e, true, nil
}

// Put stores or replaces an entry. A zero CreatedAt is set to now.
func (s *Store) Put(ctx context.Context, e Entry) error {
	if e.Key == "" {
		return errors.New("docstore: empty key")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := dbopen.Exec(ctx, s.db,
		`INSERT INTO extractions (sha256, variant, format, name, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(sha256, variant) DO UPDATE SET
		   format = excluded.format, name = excluded.name,
		   payload = excluded.payload, created_at = excluded.created_at`,
		e.Key, e.Variant, e.Format, e.Name, e.Payload, e.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("docstore: put %s: %w", e.Key, err)
	}
	return nil
}

// Delete removes every variant cached for key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := dbopen.Exec(ctx, s.db, `DELETE FROM extractions WHERE sha256 = ?`, key); err != nil {
		return fmt.Errorf("docstore: delete %s: %w", key, err)
	}
	return nil
}

// Prune removes entries created before cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := dbopen.Exec(ctx, s.db, `DELETE FROM extractions WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("docstore: prune: %w", err)
	}
	return res.RowsAffected()
}

// Len returns the number of cached entries.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM extractions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("docstore: count: %w", err)
	}
	return n, nil
}

// Close closes the database if Open created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
