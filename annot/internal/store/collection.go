// CLAUDE:SUMMARY Whole-collection snapshot access — load, upsert, read-modify-write under a retried transaction.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hazyhaar/dommark/dbopen"
)

// LoadCollection returns the stored payload for name, nil when the
// collection does not exist.
func (s *Store) LoadCollection(ctx context.Context, name string) ([]byte, error) {
	var payload []byte
	err := s.DB.QueryRowContext(ctx,
		`SELECT payload FROM collections WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// SaveCollection replaces the full payload for name.
func (s *Store) SaveCollection(ctx context.Context, name string, payload []byte) error {
	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT INTO collections (name, payload, updated_at) VALUES (?,?,?)
		ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		name, payload, time.Now().UnixMilli())
	return err
}

// UpdateCollection applies fn to the current payload (nil when absent)
// and stores the result, all inside one transaction with busy-retry.
// fn returning an error aborts the update.
func (s *Store) UpdateCollection(ctx context.Context, name string, fn func(payload []byte) ([]byte, error)) error {
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		var payload []byte
		err := tx.QueryRowContext(ctx,
			`SELECT payload FROM collections WHERE name = ?`, name).Scan(&payload)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		next, err := fn(payload)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO collections (name, payload, updated_at) VALUES (?,?,?)
			ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
			name, next, time.Now().UnixMilli())
		return err
	})
}

// DeleteCollection removes a collection. Missing names are a no-op.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
	return err
}

// CollectionNames returns the names matching a GLOB pattern
// (e.g. "annotations:*"), most recently updated first.
func (s *Store) CollectionNames(ctx context.Context, pattern string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT name FROM collections WHERE name GLOB ? ORDER BY updated_at DESC`, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
