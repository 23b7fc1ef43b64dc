package store

import "context"

// Stats summarizes what the database holds.
type Stats struct {
	Collections int64 `json:"collections"`
	Snapshots   int64 `json:"snapshots"`
	Events      int64 `json:"events"`
}

// Stats counts rows per table.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM collections`).Scan(&st.Collections); err != nil {
		return nil, err
	}
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM page_snapshots`).Scan(&st.Snapshots); err != nil {
		return nil, err
	}
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&st.Events); err != nil {
		return nil, err
	}
	return st, nil
}
