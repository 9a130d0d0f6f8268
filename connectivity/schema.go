package connectivity

import (
	"database/sql"

	"github.com/hazyhaar/legacydoc/dbopen"
)

// Schema is the routes table read by Reload. strategy is one of:
//
//	local  in-process handler from RegisterLocal
//	http   POST to endpoint through HTTPFactory
//	noop   accept and drop the call
//
// config holds per-route JSON such as {"timeout_ms": 5000}.
const Schema = `
CREATE TABLE IF NOT EXISTS routes (
    service_name TEXT PRIMARY KEY,
    strategy     TEXT NOT NULL CHECK(strategy IN ('local', 'http', 'noop')),
    endpoint     TEXT,
    config       TEXT DEFAULT '{}',
    updated_at   INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
`

// OpenDB opens the routes database at path and creates the table.
func OpenDB(path string) (*sql.DB, error) {
	return dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithBusyTimeout(5000), dbopen.WithSchema(Schema))
}

// Init creates the routes table if it does not exist.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
