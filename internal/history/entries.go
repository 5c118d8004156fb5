package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"renderhook/internal/events"
	"renderhook/internal/webhook"
)

// Entry is one journaled delivery attempt.
type Entry struct {
	ID         string
	Event      events.Kind
	URL        string
	Outcome    webhook.OutcomeKind
	StatusCode int
	Message    string
	Duration   time.Duration
	StartedAt  time.Time
}

// Success reports whether the attempt was accepted by the endpoint.
func (e Entry) Success() bool {
	return e.Outcome == webhook.OutcomeSuccess
}

var _ webhook.Recorder = (*Store)(nil)

// Record implements webhook.Recorder.
func (s *Store) Record(ctx context.Context, delivery webhook.Delivery) error {
	if s == nil || s.db == nil {
		return errors.New("history store closed")
	}
	if delivery.ID == "" {
		return errors.New("delivery id required")
	}
	started := delivery.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO deliveries (id, event, url, outcome, status_code, message, duration_ms, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		delivery.ID,
		delivery.Event.String(),
		delivery.URL,
		string(delivery.Outcome.Kind),
		delivery.Outcome.StatusCode,
		delivery.Outcome.Message(),
		delivery.Duration.Milliseconds(),
		started.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record delivery %s: %w", delivery.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns every entry.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	ctx = ensureContext(ctx)
	query := `SELECT id, event, url, outcome, status_code, message, duration_ms, started_at
		FROM deliveries ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry      Entry
			event      string
			outcome    string
			durationMS int64
			startedMS  int64
		)
		if err := rows.Scan(&entry.ID, &event, &entry.URL, &outcome, &entry.StatusCode, &entry.Message, &durationMS, &startedMS); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		kind, err := events.Parse(event)
		if err != nil {
			return nil, fmt.Errorf("delivery %s: %w", entry.ID, err)
		}
		entry.Event = kind
		entry.Outcome = webhook.OutcomeKind(outcome)
		entry.Duration = time.Duration(durationMS) * time.Millisecond
		entry.StartedAt = time.UnixMilli(startedMS)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Stats counts journaled attempts per outcome kind.
func (s *Store) Stats(ctx context.Context) (map[webhook.OutcomeKind]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT outcome, COUNT(1) FROM deliveries GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("delivery stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[webhook.OutcomeKind]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		stats[webhook.OutcomeKind(outcome)] = count
	}
	return stats, rows.Err()
}

// Prune deletes entries that started before olderThan and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM deliveries WHERE started_at < ?`, olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune deliveries: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune deliveries: %w", err)
	}
	return removed, nil
}

// PruneRetention applies a retention window in days. Zero keeps everything.
func (s *Store) PruneRetention(ctx context.Context, days int, now time.Time) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	return s.Prune(ctx, now.AddDate(0, 0, -days))
}
