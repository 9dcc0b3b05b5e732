// Package experiment holds the A/B test lifecycle shared by the HTTP API
// and the CLI: recomputing significance snapshots from the raw event log
// and applying a winning variant to production.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lpforge/lpforge/internal/stats"
	"github.com/lpforge/lpforge/internal/store"
)

var (
	// ErrNoWinner means the test has not crossed the significance gate.
	ErrNoWinner = errors.New("test has no significant winner")
	// ErrWrongVariant means the requested variant is not the decided winner.
	ErrWrongVariant = errors.New("variant is not the winning variant")
)

// Recompute aggregates the raw event log for a component (visitors are
// distinct sessions), evaluates significance, and persists the snapshot.
// The denormalized counters are never consulted here.
func Recompute(ctx context.Context, st store.Store, componentID string) (stats.Evaluation, error) {
	aggs, err := st.VariantVisitorStats(ctx, componentID)
	if err != nil {
		return stats.Evaluation{}, fmt.Errorf("failed to aggregate events: %w", err)
	}

	var a, b store.VariantVisitors
	for _, agg := range aggs {
		switch agg.Variant {
		case store.VariantA:
			a = agg
		case store.VariantB:
			b = agg
		}
	}

	ev := stats.Evaluate(a.Visitors, a.Conversions, b.Visitors, b.Conversions)

	result := &store.TestResult{
		ComponentID:    componentID,
		VisitorsA:      ev.VariantA.Visitors,
		ConversionsA:   ev.VariantA.Conversions,
		RateA:          ev.VariantA.Rate,
		VisitorsB:      ev.VariantB.Visitors,
		ConversionsB:   ev.VariantB.Conversions,
		RateB:          ev.VariantB.Rate,
		ImprovementPct: ev.ImprovementPct,
		ConfidencePct:  ev.ConfidencePct,
		IsSignificant:  ev.IsSignificant,
		WinningVariant: ev.WinningVariant,
		ComputedAt:     time.Now(),
	}
	if err := st.SaveTestResult(ctx, result); err != nil {
		return ev, err
	}
	return ev, nil
}

// ApplyWinner overwrites the losing variant's content with the winning
// variant's and stamps the test result as applied. One-way: there is no
// rollback to the pre-apply content.
//
// winningVariantID must be the id of the decided winner; passing it back
// guards against applying a stale dashboard view.
func ApplyWinner(ctx context.Context, st store.Store, componentID, winningVariantID string) (*store.TestResult, error) {
	ev, err := Recompute(ctx, st, componentID)
	if err != nil {
		return nil, err
	}
	if !ev.IsSignificant || ev.WinningVariant == "" {
		return nil, ErrNoWinner
	}

	winner, err := st.GetVariantByLetter(ctx, componentID, ev.WinningVariant)
	if err != nil {
		return nil, fmt.Errorf("failed to load winning variant: %w", err)
	}
	if winner.ID != winningVariantID {
		return nil, ErrWrongVariant
	}

	loserLetter := store.VariantA
	if ev.WinningVariant == store.VariantA {
		loserLetter = store.VariantB
	}
	loser, err := st.GetVariantByLetter(ctx, componentID, loserLetter)
	if err != nil {
		return nil, fmt.Errorf("failed to load losing variant: %w", err)
	}

	if err := st.UpdateVariantContent(ctx, loser.ID, winner.HTML, winner.CSS, winner.JS); err != nil {
		return nil, fmt.Errorf("failed to apply winner content: %w", err)
	}

	if err := st.MarkWinnerApplied(ctx, componentID, time.Now()); err != nil {
		return nil, err
	}

	return st.GetTestResult(ctx, componentID)
}
