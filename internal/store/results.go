package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SaveTestResult upserts the significance snapshot for a component. The
// applied flag and timestamp are never overwritten here; applying a winner
// is a separate one-way transition.
func (s *SQLiteStore) SaveTestResult(ctx context.Context, r *TestResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO test_results
			(component_id, visitors_a, conversions_a, rate_a, visitors_b, conversions_b, rate_b,
			 improvement_pct, confidence_pct, is_significant, winning_variant, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(component_id) DO UPDATE SET
			visitors_a = excluded.visitors_a,
			conversions_a = excluded.conversions_a,
			rate_a = excluded.rate_a,
			visitors_b = excluded.visitors_b,
			conversions_b = excluded.conversions_b,
			rate_b = excluded.rate_b,
			improvement_pct = excluded.improvement_pct,
			confidence_pct = excluded.confidence_pct,
			is_significant = excluded.is_significant,
			winning_variant = excluded.winning_variant,
			computed_at = excluded.computed_at
	`,
		r.ComponentID, r.VisitorsA, r.ConversionsA, r.RateA, r.VisitorsB, r.ConversionsB, r.RateB,
		r.ImprovementPct, r.ConfidencePct, boolToInt(r.IsSignificant), r.WinningVariant,
		r.ComputedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save test result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTestResult(ctx context.Context, componentID string) (*TestResult, error) {
	var r TestResult
	var isSignificant, applied int
	var appliedAt sql.NullInt64
	var computedAt int64

	err := s.db.QueryRowContext(ctx, `
		SELECT component_id, visitors_a, conversions_a, rate_a, visitors_b, conversions_b, rate_b,
		       improvement_pct, confidence_pct, is_significant, winning_variant, applied, applied_at, computed_at
		FROM test_results WHERE component_id = ?
	`, componentID).Scan(
		&r.ComponentID, &r.VisitorsA, &r.ConversionsA, &r.RateA, &r.VisitorsB, &r.ConversionsB, &r.RateB,
		&r.ImprovementPct, &r.ConfidencePct, &isSignificant, &r.WinningVariant, &applied, &appliedAt, &computedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test result: %w", err)
	}

	r.IsSignificant = isSignificant != 0
	r.Applied = applied != 0
	if appliedAt.Valid {
		t := time.Unix(appliedAt.Int64, 0)
		r.AppliedAt = &t
	}
	r.ComputedAt = time.Unix(computedAt, 0)
	return &r, nil
}

func (s *SQLiteStore) MarkWinnerApplied(ctx context.Context, componentID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE test_results SET applied = 1, applied_at = ? WHERE component_id = ?`,
		at.Unix(), componentID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark winner applied: %w", err)
	}
	return checkAffected(result)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
