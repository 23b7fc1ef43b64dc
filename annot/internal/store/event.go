package store

import (
	"context"
	"time"

	"github.com/hazyhaar/dommark/dbopen"
)

// Event is one audit-trail row. Restore loops and service entry points
// record them so degraded behavior stays observable after the fact.
type Event struct {
	ID           int64  `json:"id"`
	TS           int64  `json:"ts"`
	Level        string `json:"level"` // "info", "warn", "error"
	Source       string `json:"source"`
	Message      string `json:"message"`
	PageKey      string `json:"page_key,omitempty"`
	AnnotationID string `json:"annotation_id,omitempty"`
}

// RecordEvent appends an event. TS is filled when zero. Uses busy-retry
// because restore loops write concurrently with collection updates.
func (s *Store) RecordEvent(ctx context.Context, e *Event) error {
	if e.TS == 0 {
		e.TS = time.Now().UnixMilli()
	}
	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT INTO events (ts, level, source, message, page_key, annotation_id)
		VALUES (?,?,?,?,?,?)`,
		e.TS, e.Level, e.Source, e.Message, e.PageKey, e.AnnotationID)
	return err
}

// RecentEvents returns the newest events, most recent first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]*Event, error) {
	return s.queryEvents(ctx, `
		SELECT id, ts, level, source, message, page_key, annotation_id
		FROM events ORDER BY ts DESC, id DESC LIMIT ?`, limit)
}

// EventsFor returns the newest events for one page key.
func (s *Store) EventsFor(ctx context.Context, pageKey string, limit int) ([]*Event, error) {
	return s.queryEvents(ctx, `
		SELECT id, ts, level, source, message, page_key, annotation_id
		FROM events WHERE page_key = ? ORDER BY ts DESC, id DESC LIMIT ?`, pageKey, limit)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]*Event, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(&e.ID, &e.TS, &e.Level, &e.Source, &e.Message, &e.PageKey, &e.AnnotationID); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
