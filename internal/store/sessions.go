package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

func (s *SQLiteStore) CreateSession(ctx context.Context, sess *Session) error {
	assignments, err := marshalAssignments(sess.Assignments)
	if err != nil {
		return err
	}

	// INSERT OR IGNORE: duplicate first requests from the same client can
	// race; the first insert wins and later requests converge on it.
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions
		 (id, lp_id, started_at, last_seen_at, device, browser, referrer, utm_source, utm_campaign, assignments)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.LPID, sess.StartedAt.Unix(), sess.LastSeenAt.Unix(),
		sess.Device, sess.Browser, sess.Referrer, sess.UTMSource, sess.UTMCampaign,
		nullableString(assignments),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	var assignments sql.NullString
	var startedAt, lastSeenAt int64
	var converted int

	err := s.db.QueryRowContext(ctx,
		`SELECT id, lp_id, started_at, last_seen_at, device, browser, referrer,
		        utm_source, utm_campaign, assignments, converted, conversion_type,
		        duration_secs, scroll_depth_pct
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.LPID, &startedAt, &lastSeenAt, &sess.Device, &sess.Browser,
		&sess.Referrer, &sess.UTMSource, &sess.UTMCampaign, &assignments, &converted,
		&sess.ConversionType, &sess.DurationSecs, &sess.ScrollDepthPct)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	sess.StartedAt = time.Unix(startedAt, 0)
	sess.LastSeenAt = time.Unix(lastSeenAt, 0)
	sess.Converted = converted != 0
	sess.Assignments = map[string]string{}
	if assignments.Valid && assignments.String != "" {
		if err := json.Unmarshal([]byte(assignments.String), &sess.Assignments); err != nil {
			return nil, fmt.Errorf("failed to unmarshal assignments: %w", err)
		}
	}

	return &sess, nil
}

func (s *SQLiteStore) SaveAssignments(ctx context.Context, sessionID string, assignments map[string]string) error {
	encoded, err := marshalAssignments(assignments)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET assignments = ?, last_seen_at = ? WHERE id = ?`,
		nullableString(encoded), time.Now().Unix(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to save assignments: %w", err)
	}
	return checkAffected(result)
}

// TouchSession updates activity fields from exit/scroll beacons. Scroll
// depth only moves forward.
func (s *SQLiteStore) TouchSession(ctx context.Context, sessionID string, lastSeen time.Time, durationSecs, scrollDepthPct int) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions
		 SET last_seen_at = MAX(last_seen_at, ?),
		     duration_secs = MAX(duration_secs, ?),
		     scroll_depth_pct = MAX(scroll_depth_pct, ?)
		 WHERE id = ?`,
		lastSeen.Unix(), durationSecs, scrollDepthPct, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return checkAffected(result)
}

func (s *SQLiteStore) MarkConverted(ctx context.Context, sessionID, conversionType string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET converted = 1, conversion_type = ?, last_seen_at = ? WHERE id = ?`,
		conversionType, time.Now().Unix(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark session converted: %w", err)
	}
	return checkAffected(result)
}

func marshalAssignments(assignments map[string]string) (string, error) {
	if len(assignments) == 0 {
		return "", nil
	}
	encoded, err := json.Marshal(assignments)
	if err != nil {
		return "", fmt.Errorf("failed to marshal assignments: %w", err)
	}
	return string(encoded), nil
}
