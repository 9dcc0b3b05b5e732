package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lpforge/lpforge/internal/experiment"
	"github.com/lpforge/lpforge/internal/stats"
	"github.com/lpforge/lpforge/internal/store"
)

// handleLPStats returns page-level totals aggregated from the event log.
func (s *Server) handleLPStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lpID := r.URL.Query().Get("lpId")
	if lpID == "" {
		writeError(w, http.StatusBadRequest, "lpId is required")
		return
	}

	if res, _ := s.authorizeLP(ctx, lpID, userIDFrom(ctx)); res != authzAllowed {
		writeAuthz(w, res)
		return
	}

	totals, err := s.store.LPStats(ctx, lpID)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to aggregate stats", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"lpId":           lpID,
		"pageviews":      totals.Pageviews,
		"sessions":       totals.Sessions,
		"conversions":    totals.Conversions,
		"conversionRate": totals.ConversionRate,
	})
}

type counterSet struct {
	Views       int     `json:"views"`
	Clicks      int     `json:"clicks"`
	Conversions int     `json:"conversions"`
	Rate        float64 `json:"conversionRate"`
}

type componentStatsEntry struct {
	ComponentID    string     `json:"componentId"`
	VariantA       counterSet `json:"variantA"`
	VariantB       counterSet `json:"variantB"`
	ImprovementPct float64    `json:"improvement"`
	ConfidencePct  float64    `json:"confidence"`
	IsSignificant  bool       `json:"isSignificant"`
	WinningVariant string     `json:"winningVariant,omitempty"`
}

// handleComponentStats is the lightweight live view built on the
// denormalized counters. Views here are raw event counts, an approximation
// of the canonical distinct-session numbers served by the report endpoint.
func (s *Server) handleComponentStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lpID := r.URL.Query().Get("lpId")
	if lpID == "" {
		writeError(w, http.StatusBadRequest, "lpId is required")
		return
	}

	if res, _ := s.authorizeLP(ctx, lpID, userIDFrom(ctx)); res != authzAllowed {
		writeAuthz(w, res)
		return
	}

	rows, err := s.store.GetComponentStats(ctx, lpID)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to load stats", err.Error())
		return
	}

	byComponent := map[string]*componentStatsEntry{}
	var order []string
	for _, row := range rows {
		entry, ok := byComponent[row.ComponentID]
		if !ok {
			entry = &componentStatsEntry{ComponentID: row.ComponentID}
			byComponent[row.ComponentID] = entry
			order = append(order, row.ComponentID)
		}
		set := counterSet{
			Views:       row.Views,
			Clicks:      row.Clicks,
			Conversions: row.Conversions,
			Rate:        stats.ConversionRate(row.Conversions, row.Views),
		}
		if row.Variant == store.VariantA {
			entry.VariantA = set
		} else {
			entry.VariantB = set
		}
	}

	components := make([]componentStatsEntry, 0, len(order))
	for _, id := range order {
		entry := byComponent[id]
		ev := stats.Evaluate(
			entry.VariantA.Views, entry.VariantA.Conversions,
			entry.VariantB.Views, entry.VariantB.Conversions,
		)
		entry.ImprovementPct = ev.ImprovementPct
		entry.ConfidencePct = ev.ConfidencePct
		entry.IsSignificant = ev.IsSignificant
		entry.WinningVariant = ev.WinningVariant
		components = append(components, *entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"lpId":       lpID,
		"components": components,
	})
}

type reportVariant struct {
	stats.VariantAggregate
	CILower float64 `json:"ciLower"`
	CIUpper float64 `json:"ciUpper"`
}

type testReport struct {
	ComponentID    string        `json:"componentId"`
	VariantA       reportVariant `json:"variantA"`
	VariantB       reportVariant `json:"variantB"`
	ImprovementPct float64       `json:"improvement"`
	ConfidencePct  float64       `json:"confidence"`
	IsSignificant  bool          `json:"isSignificant"`
	WinningVariant string        `json:"winningVariant,omitempty"`
	Applied        bool          `json:"appliedToProduction"`
	AppliedAt      *time.Time    `json:"appliedAt,omitempty"`
	ComputedAt     time.Time     `json:"computedAt"`
}

// handleTestReport recomputes the canonical significance report from the
// raw event log (visitors are distinct sessions) and includes the
// apply-winner state.
func (s *Server) handleTestReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	componentID := chi.URLParam(r, "componentID")

	if res, _ := s.authorizeComponent(ctx, componentID, userIDFrom(ctx)); res != authzAllowed {
		writeAuthz(w, res)
		return
	}

	ev, err := experiment.Recompute(ctx, s.store, componentID)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to compute report", err.Error())
		return
	}

	result, err := s.store.GetTestResult(ctx, componentID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to load test result", err.Error())
		return
	}

	report := buildReport(componentID, ev, result)
	writeJSON(w, http.StatusOK, report)
}

func buildReport(componentID string, ev stats.Evaluation, result *store.TestResult) testReport {
	aLower, aUpper := stats.WilsonInterval(ev.VariantA.Conversions, ev.VariantA.Visitors, 0.95)
	bLower, bUpper := stats.WilsonInterval(ev.VariantB.Conversions, ev.VariantB.Visitors, 0.95)

	report := testReport{
		ComponentID:    componentID,
		VariantA:       reportVariant{VariantAggregate: ev.VariantA, CILower: aLower, CIUpper: aUpper},
		VariantB:       reportVariant{VariantAggregate: ev.VariantB, CILower: bLower, CIUpper: bUpper},
		ImprovementPct: ev.ImprovementPct,
		ConfidencePct:  ev.ConfidencePct,
		IsSignificant:  ev.IsSignificant,
		WinningVariant: ev.WinningVariant,
		ComputedAt:     time.Now(),
	}
	if result != nil {
		report.Applied = result.Applied
		report.AppliedAt = result.AppliedAt
		report.ComputedAt = result.ComputedAt
	}
	return report
}
