package stats

import "math"

// Decision thresholds. A result only counts as significant once both
// variants have a minimum number of conversions and the relative
// improvement clears the gate.
const (
	MinConversions     = 10
	ImprovementGatePct = 10.0
)

// VariantAggregate is one side of an A/B comparison.
type VariantAggregate struct {
	Visitors    int     `json:"visitors"`
	Conversions int     `json:"conversions"`
	Rate        float64 `json:"conversionRate"`
}

// Evaluation is the verdict for one component's A/B test. It is a pure
// function of the four input counts and safe to recompute at any time.
type Evaluation struct {
	VariantA       VariantAggregate `json:"variantA"`
	VariantB       VariantAggregate `json:"variantB"`
	ImprovementPct float64          `json:"improvement"`
	ConfidencePct  float64          `json:"confidence"`
	IsSignificant  bool             `json:"isSignificant"`
	WinningVariant string           `json:"winningVariant,omitempty"`
}

// ConversionRate returns conversions/visitors, 0 when there are no visitors.
func ConversionRate(conversions, visitors int) float64 {
	if visitors == 0 {
		return 0
	}
	return float64(conversions) / float64(visitors)
}

// Evaluate compares variant B (challenger) against variant A (control).
//
// The improvement is relative lift of B over A, zero when A has no
// conversions yet. Confidence comes from the two-proportion z-test; the
// significance verdict additionally requires MinConversions on both sides
// and an absolute improvement above ImprovementGatePct.
func Evaluate(visitorsA, convA, visitorsB, convB int) Evaluation {
	rateA := ConversionRate(convA, visitorsA)
	rateB := ConversionRate(convB, visitorsB)

	improvement := 0.0
	if rateA > 0 {
		improvement = (rateB - rateA) / rateA * 100
	}

	confidence := Confidence(convA, visitorsA, convB, visitorsB) * 100

	significant := convA >= MinConversions && convB >= MinConversions &&
		math.Abs(improvement) > ImprovementGatePct

	winner := ""
	switch {
	case improvement > ImprovementGatePct:
		winner = "b"
	case improvement < -ImprovementGatePct:
		winner = "a"
	}

	return Evaluation{
		VariantA:       VariantAggregate{Visitors: visitorsA, Conversions: convA, Rate: rateA},
		VariantB:       VariantAggregate{Visitors: visitorsB, Conversions: convB, Rate: rateB},
		ImprovementPct: improvement,
		ConfidencePct:  confidence,
		IsSignificant:  significant,
		WinningVariant: winner,
	}
}
