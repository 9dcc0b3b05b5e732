package assign_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lpforge/lpforge/internal/assign"
)

func always(v float64) func() float64 {
	return func() float64 { return v }
}

func TestChoose_NewAssignmentIsRandom(t *testing.T) {
	assignments := map[string]string{}
	ov := assign.Overrides{PerComponent: map[string]string{}}

	letter, changed := assign.Choose(assignments, "c1", ov, always(0.2))
	assert.Equal(t, "a", letter)
	assert.True(t, changed)

	letter, changed = assign.Choose(assignments, "c1", ov, always(0.9))
	assert.Equal(t, "b", letter)
	assert.True(t, changed)
}

func TestChoose_StickyAssignment(t *testing.T) {
	assignments := map[string]string{"c1": "b"}
	ov := assign.Overrides{PerComponent: map[string]string{}}

	// The random source would pick "a", but the existing assignment wins
	for i := 0; i < 5; i++ {
		letter, changed := assign.Choose(assignments, "c1", ov, always(0.0))
		assert.Equal(t, "b", letter)
		assert.False(t, changed)
	}
}

func TestChoose_PerComponentOverrideBeatsGlobal(t *testing.T) {
	assignments := map[string]string{"c1": "a", "c2": "a"}
	ov := assign.ParseOverrides(url.Values{
		"variant":    {"a"},
		"variant_c1": {"b"},
	})

	// Per-component override wins for c1
	letter, changed := assign.Choose(assignments, "c1", ov, always(0.0))
	assert.Equal(t, "b", letter)
	assert.True(t, changed)

	// Global override applies to components with no per-component entry
	letter, changed = assign.Choose(assignments, "c2", ov, always(0.9))
	assert.Equal(t, "a", letter)
	assert.False(t, changed)
}

func TestChoose_GlobalOverrideBeatsExistingAssignment(t *testing.T) {
	assignments := map[string]string{"c1": "a"}
	ov := assign.ParseOverrides(url.Values{"variant": {"b"}})

	letter, changed := assign.Choose(assignments, "c1", ov, always(0.0))
	assert.Equal(t, "b", letter)
	assert.True(t, changed)
}

func TestParseOverrides_IgnoresInvalidValues(t *testing.T) {
	ov := assign.ParseOverrides(url.Values{
		"variant":    {"c"},
		"variant_c1": {""},
		"variant_":   {"a"},
		"variant_c2": {"B"},
	})

	assert.Empty(t, ov.Global)
	assert.NotContains(t, ov.PerComponent, "c1")
	// Letter values are case-insensitive
	assert.Equal(t, "b", ov.PerComponent["c2"])
	assert.Len(t, ov.PerComponent, 1)
}
