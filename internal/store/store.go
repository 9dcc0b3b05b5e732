package store

import (
	"context"
	"time"
)

// Store defines the persistence interface for landing pages, experiment
// state, and the tracking event log.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, email, name, passwordHash, role string) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	DeleteUser(ctx context.Context, id string) error

	// Landing page operations
	CreateLandingPage(ctx context.Context, userID, name, slug string) (*LandingPage, error)
	GetLandingPage(ctx context.Context, id string) (*LandingPage, error)
	ListLandingPages(ctx context.Context, userID string) ([]*LandingPage, error)
	UpdateLandingPage(ctx context.Context, id string, name string, status LPStatus, meta []byte) error
	DeleteLandingPage(ctx context.Context, id string) error

	// Component and variant operations
	CreateComponent(ctx context.Context, lpID, componentType string, position int, genParams []byte) (*Component, error)
	GetComponent(ctx context.Context, id string) (*Component, error)
	ListComponents(ctx context.Context, lpID string) ([]*Component, error)
	CreateVariant(ctx context.Context, componentID, letter, html, css, js string) (*Variant, error)
	GetVariant(ctx context.Context, id string) (*Variant, error)
	GetVariantByLetter(ctx context.Context, componentID, letter string) (*Variant, error)
	ListVariants(ctx context.Context, componentID string) ([]*Variant, error)
	UpdateVariantContent(ctx context.Context, id, html, css, js string) error

	// Session operations
	CreateSession(ctx context.Context, sess *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	SaveAssignments(ctx context.Context, sessionID string, assignments map[string]string) error
	TouchSession(ctx context.Context, sessionID string, lastSeen time.Time, durationSecs, scrollDepthPct int) error
	MarkConverted(ctx context.Context, sessionID, conversionType string) error

	// Event operations
	RecordEvent(ctx context.Context, e *Event) error
	ListEvents(ctx context.Context, lpID string) ([]*Event, error)

	// Denormalized counters (rebuildable cache over the event log)
	IncrementStat(ctx context.Context, componentID, variant, counter string) error
	GetComponentStats(ctx context.Context, lpID string) ([]ComponentStats, error)
	RebuildComponentStats(ctx context.Context, componentID string) error

	// Canonical aggregation from the raw event log (distinct sessions)
	VariantVisitorStats(ctx context.Context, componentID string) ([]VariantVisitors, error)
	LPStats(ctx context.Context, lpID string) (*LPTotals, error)

	// Test result snapshots
	SaveTestResult(ctx context.Context, r *TestResult) error
	GetTestResult(ctx context.Context, componentID string) (*TestResult, error)
	MarkWinnerApplied(ctx context.Context, componentID string, at time.Time) error

	// Lifecycle
	SizeBytes(ctx context.Context) int64
	Close() error
}
