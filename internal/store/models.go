package store

import (
	"encoding/json"
	"time"
)

type LPStatus string

const (
	StatusDraft     LPStatus = "draft"
	StatusPublished LPStatus = "published"
	StatusArchived  LPStatus = "archived"
)

// Variant letters. "a" is the incumbent/control, "b" the challenger.
const (
	VariantA = "a"
	VariantB = "b"
)

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string // "owner" or "member"
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type LandingPage struct {
	ID        string
	UserID    string
	Name      string
	Slug      string
	Status    LPStatus
	Meta      json.RawMessage // Free-form page metadata (title, OG tags, ...)
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Component struct {
	ID        string
	LPID      string
	Type      string // "hero", "cta", "features", ...
	Position  int    // Render order within the page
	GenParams json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Variant struct {
	ID          string
	ComponentID string
	Letter      string // "a" or "b"
	HTML        string
	CSS         string
	JS          string
	Meta        json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Session is one visitor's tracked encounter with one landing page.
// Assignments maps component id -> variant letter and is sticky for the
// session's lifetime.
type Session struct {
	ID             string
	LPID           string
	StartedAt      time.Time
	LastSeenAt     time.Time
	Device         string
	Browser        string
	Referrer       string
	UTMSource      string
	UTMCampaign    string
	Assignments    map[string]string
	Converted      bool
	ConversionType string
	DurationSecs   int
	ScrollDepthPct int
}

// Event is an append-only tracking fact. ComponentID and Variant are empty
// for page-level events (pageview, scroll_depth, exit).
type Event struct {
	ID          int64
	SessionID   string
	LPID        string
	ComponentID string
	Variant     string
	EventType   string // "pageview", "component_view", "click", "conversion", "scroll_depth", "exit"
	Payload     json.RawMessage
	CreatedAt   time.Time
}

// ComponentStats is the denormalized per-(component, variant) counter row.
// Counters are raw event counts and are a rebuildable cache over the event
// log, not the canonical input to winner decisions.
type ComponentStats struct {
	ComponentID string
	Variant     string
	Views       int
	Clicks      int
	Conversions int
}

// VariantVisitors aggregates the raw event log for one variant of one
// component: Visitors is the distinct-session view count.
type VariantVisitors struct {
	Variant     string
	Visitors    int
	Conversions int
}

// TestResult is the persisted significance snapshot for one component's
// A/B test, recomputed on each conversion event.
type TestResult struct {
	ComponentID    string
	VisitorsA      int
	ConversionsA   int
	RateA          float64
	VisitorsB      int
	ConversionsB   int
	RateB          float64
	ImprovementPct float64
	ConfidencePct  float64
	IsSignificant  bool
	WinningVariant string // "a", "b", or "" while undecided
	Applied        bool
	AppliedAt      *time.Time
	ComputedAt     time.Time
}

// LPTotals is the page-level rollup for the lightweight stats endpoint.
type LPTotals struct {
	Pageviews      int
	Sessions       int
	Conversions    int
	ConversionRate float64
}
