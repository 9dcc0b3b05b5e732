package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

func (s *SQLiteStore) RecordEvent(ctx context.Context, e *Event) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO events (session_id, lp_id, component_id, variant, event_type, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.LPID, nullableString(e.ComponentID), nullableString(e.Variant),
		e.EventType, nullableBytes(e.Payload), createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	e.ID = id
	e.CreatedAt = createdAt
	return nil
}

func (s *SQLiteStore) ListEvents(ctx context.Context, lpID string) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, lp_id, component_id, variant, event_type, payload, created_at
		 FROM events WHERE lp_id = ? ORDER BY created_at, id`, lpID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var componentID, variant, payload sql.NullString
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.LPID, &componentID, &variant, &e.EventType, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.ComponentID = componentID.String
		e.Variant = variant.String
		if payload.Valid {
			e.Payload = json.RawMessage(payload.String)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, &e)
	}
	return events, rows.Err()
}

// Counter columns IncrementStat may touch.
const (
	CounterViews       = "views"
	CounterClicks      = "clicks"
	CounterConversions = "conversions"
)

// IncrementStat bumps one denormalized counter for a (component, variant)
// pair. Find-or-create then increment, inside a transaction; the primary
// key on (component_id, variant) closes the double-insert race.
func (s *SQLiteStore) IncrementStat(ctx context.Context, componentID, variant, counter string) error {
	switch counter {
	case CounterViews, CounterClicks, CounterConversions:
	default:
		return fmt.Errorf("unknown counter: %q", counter)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO component_stats (component_id, variant) VALUES (?, ?)`,
		componentID, variant,
	); err != nil {
		return fmt.Errorf("failed to ensure stats row: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE component_stats SET %s = %s + 1 WHERE component_id = ? AND variant = ?`, counter, counter),
		componentID, variant,
	); err != nil {
		return fmt.Errorf("failed to increment %s: %w", counter, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit stats increment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetComponentStats(ctx context.Context, lpID string) ([]ComponentStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cs.component_id, cs.variant, cs.views, cs.clicks, cs.conversions
		FROM component_stats cs
		JOIN components c ON c.id = cs.component_id
		WHERE c.lp_id = ?
		ORDER BY c.position, cs.variant
	`, lpID)
	if err != nil {
		return nil, fmt.Errorf("failed to get component stats: %w", err)
	}
	defer rows.Close()

	var stats []ComponentStats
	for rows.Next() {
		var cs ComponentStats
		if err := rows.Scan(&cs.ComponentID, &cs.Variant, &cs.Views, &cs.Clicks, &cs.Conversions); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats = append(stats, cs)
	}
	return stats, rows.Err()
}

// RebuildComponentStats recomputes the counter rows for one component from
// the raw event log, replacing whatever has drifted.
func (s *SQLiteStore) RebuildComponentStats(ctx context.Context, componentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM component_stats WHERE component_id = ?`, componentID,
	); err != nil {
		return fmt.Errorf("failed to clear stats: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO component_stats (component_id, variant, views, clicks, conversions)
		SELECT component_id, variant,
			COUNT(CASE WHEN event_type = 'component_view' THEN 1 END),
			COUNT(CASE WHEN event_type = 'click' THEN 1 END),
			COUNT(CASE WHEN event_type = 'conversion' THEN 1 END)
		FROM events
		WHERE component_id = ? AND variant IS NOT NULL
		GROUP BY component_id, variant
	`, componentID); err != nil {
		return fmt.Errorf("failed to rebuild stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rebuild: %w", err)
	}
	return nil
}

// VariantVisitorStats is the canonical aggregation: visitors are distinct
// sessions that viewed the variant, conversions distinct sessions that
// converted on it.
func (s *SQLiteStore) VariantVisitorStats(ctx context.Context, componentID string) ([]VariantVisitors, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			variant,
			COUNT(DISTINCT CASE WHEN event_type = 'component_view' THEN session_id END) as visitors,
			COUNT(DISTINCT CASE WHEN event_type = 'conversion' THEN session_id END) as conversions
		FROM events
		WHERE component_id = ? AND variant IS NOT NULL
		GROUP BY variant
		ORDER BY variant
	`, componentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get visitor stats: %w", err)
	}
	defer rows.Close()

	var stats []VariantVisitors
	for rows.Next() {
		var v VariantVisitors
		if err := rows.Scan(&v.Variant, &v.Visitors, &v.Conversions); err != nil {
			return nil, fmt.Errorf("failed to scan visitor stats: %w", err)
		}
		stats = append(stats, v)
	}
	return stats, rows.Err()
}

func (s *SQLiteStore) LPStats(ctx context.Context, lpID string) (*LPTotals, error) {
	var t LPTotals

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(CASE WHEN event_type = 'pageview' THEN 1 END),
			COUNT(DISTINCT session_id),
			COUNT(DISTINCT CASE WHEN event_type = 'conversion' THEN session_id END)
		FROM events
		WHERE lp_id = ?
	`, lpID).Scan(&t.Pageviews, &t.Sessions, &t.Conversions)
	if err != nil {
		return nil, fmt.Errorf("failed to get lp stats: %w", err)
	}

	if t.Sessions > 0 {
		t.ConversionRate = float64(t.Conversions) / float64(t.Sessions)
	}
	return &t, nil
}
