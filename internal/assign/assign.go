// Package assign picks the variant a session sees for each testable
// component of a landing page.
package assign

import (
	"net/url"
	"strings"
)

// Overrides are explicit variant choices from the page URL. Per-component
// entries win over the global one.
type Overrides struct {
	Global       string
	PerComponent map[string]string
}

const overridePrefix = "variant_"

// ParseOverrides extracts `variant=a|b` and `variant_<componentID>=a|b`
// query parameters. Values other than "a" or "b" are ignored.
func ParseOverrides(query url.Values) Overrides {
	ov := Overrides{PerComponent: map[string]string{}}

	for key, values := range query {
		if len(values) == 0 {
			continue
		}
		letter := normalize(values[0])
		if letter == "" {
			continue
		}
		if key == "variant" {
			ov.Global = letter
		} else if componentID := strings.TrimPrefix(key, overridePrefix); componentID != key && componentID != "" {
			ov.PerComponent[componentID] = letter
		}
	}

	return ov
}

// Choose returns the variant letter for one (session, component) pair and
// whether the assignment is new and needs persisting.
//
// Priority: per-component override, global override, existing session
// assignment, fresh uniform 50/50 draw. Overrides are not sticky beyond the
// request that carries them: they are written back to the session so later
// requests without the parameter stay consistent.
func Choose(assignments map[string]string, componentID string, ov Overrides, rnd func() float64) (letter string, changed bool) {
	if forced, ok := ov.PerComponent[componentID]; ok {
		return forced, assignments[componentID] != forced
	}
	if ov.Global != "" {
		return ov.Global, assignments[componentID] != ov.Global
	}
	if existing, ok := assignments[componentID]; ok {
		return existing, false
	}

	if rnd() < 0.5 {
		return "a", true
	}
	return "b", true
}

func normalize(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "a":
		return "a"
	case "b":
		return "b"
	}
	return ""
}
