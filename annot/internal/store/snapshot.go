package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"
)

// Snapshot is an archived page document.
type Snapshot struct {
	ID        string `json:"id"`
	PageKey   string `json:"page_key"`
	URL       string `json:"url"`
	HTML      []byte `json:"-"`
	SHA256    string `json:"sha256"`
	FetchedAt int64  `json:"fetched_at"`
}

// InsertSnapshot stores a snapshot. FetchedAt and SHA256 are filled
// when zero.
func (s *Store) InsertSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap.FetchedAt == 0 {
		snap.FetchedAt = time.Now().UnixMilli()
	}
	if snap.SHA256 == "" {
		sum := sha256.Sum256(snap.HTML)
		snap.SHA256 = hex.EncodeToString(sum[:])
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO page_snapshots (id, page_key, url, html, sha256, fetched_at)
		VALUES (?,?,?,?,?,?)`,
		snap.ID, snap.PageKey, snap.URL, snap.HTML, snap.SHA256, snap.FetchedAt)
	return err
}

// GetSnapshot retrieves a snapshot by ID, nil when absent.
func (s *Store) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	snap := &Snapshot{}
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, page_key, url, html, sha256, fetched_at
		FROM page_snapshots WHERE id = ?`, id).Scan(
		&snap.ID, &snap.PageKey, &snap.URL, &snap.HTML, &snap.SHA256, &snap.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// LatestSnapshot returns the most recent snapshot for a page key, nil
// when the page has none.
func (s *Store) LatestSnapshot(ctx context.Context, pageKey string) (*Snapshot, error) {
	snap := &Snapshot{}
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, page_key, url, html, sha256, fetched_at
		FROM page_snapshots WHERE page_key = ?
		ORDER BY fetched_at DESC LIMIT 1`, pageKey).Scan(
		&snap.ID, &snap.PageKey, &snap.URL, &snap.HTML, &snap.SHA256, &snap.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// PruneSnapshots keeps the newest keep snapshots per page key and
// deletes the rest, returning the number removed.
func (s *Store) PruneSnapshots(ctx context.Context, pageKey string, keep int) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM page_snapshots WHERE page_key = ? AND id NOT IN (
			SELECT id FROM page_snapshots WHERE page_key = ?
			ORDER BY fetched_at DESC LIMIT ?
		)`, pageKey, pageKey, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
