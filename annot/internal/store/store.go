// CLAUDE:SUMMARY SQLite persistence for dommark — whole-collection snapshots, page snapshot archive, event trail.
// Package store provides the SQLite persistence layer for the
// annotation service. Annotations and picks live inside opaque
// whole-collection payloads; page snapshots and events get their own
// tables.
package store

import (
	"database/sql"

	"github.com/hazyhaar/dommark/dbopen"
)

// Store is the dommark database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the dommark SQLite database at path, applies
// production pragmas and the schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}
