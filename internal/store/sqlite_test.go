package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lpforge/lpforge/internal/store"
	"github.com/lpforge/lpforge/internal/testutil"
)

func seedPage(t *testing.T, s *store.SQLiteStore) (*store.User, *store.LandingPage, *store.Component) {
	t.Helper()
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "owner@example.com", "Owner", "hash", "owner")
	require.NoError(t, err)

	lp, err := s.CreateLandingPage(ctx, user.ID, "Launch", "launch")
	require.NoError(t, err)

	component, err := s.CreateComponent(ctx, lp.ID, "hero", 0, nil)
	require.NoError(t, err)

	_, err = s.CreateVariant(ctx, component.ID, store.VariantA, "<h1>Ship faster</h1>", "", "")
	require.NoError(t, err)
	_, err = s.CreateVariant(ctx, component.ID, store.VariantB, "<h1>Build better</h1>", "", "")
	require.NoError(t, err)

	return user, lp, component
}

func TestLandingPageCRUD(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	user, lp, _ := seedPage(t, s)

	got, err := s.GetLandingPage(ctx, lp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Launch", got.Name)
	assert.Equal(t, store.StatusDraft, got.Status)
	assert.Equal(t, user.ID, got.UserID)

	require.NoError(t, s.UpdateLandingPage(ctx, lp.ID, "Launch v2", store.StatusPublished, []byte(`{"title":"x"}`)))
	got, err = s.GetLandingPage(ctx, lp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Launch v2", got.Name)
	assert.Equal(t, store.StatusPublished, got.Status)

	pages, err := s.ListLandingPages(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, pages, 1)

	require.NoError(t, s.DeleteLandingPage(ctx, lp.ID))
	_, err = s.GetLandingPage(ctx, lp.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetLandingPage_NotFound(t *testing.T) {
	s := testutil.SetupTestStore(t)

	_, err := s.GetLandingPage(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestVariantUniquePerLetter(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	_, _, component := seedPage(t, s)

	_, err := s.CreateVariant(ctx, component.ID, store.VariantA, "dup", "", "")
	assert.Error(t, err)

	_, err = s.CreateVariant(ctx, component.ID, "c", "nope", "", "")
	assert.Error(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	_, lp, component := seedPage(t, s)

	sess := &store.Session{
		ID:          "s1",
		LPID:        lp.ID,
		StartedAt:   time.Now(),
		LastSeenAt:  time.Now(),
		Device:      "mobile",
		Browser:     "chrome",
		Assignments: map[string]string{component.ID: "b"},
	}
	require.NoError(t, s.CreateSession(ctx, sess))

	// Duplicate create is ignored, first insert wins
	dup := *sess
	dup.Device = "desktop"
	require.NoError(t, s.CreateSession(ctx, &dup))

	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "mobile", got.Device)
	assert.Equal(t, "b", got.Assignments[component.ID])

	require.NoError(t, s.TouchSession(ctx, "s1", time.Now(), 42, 75))
	// Scroll depth only moves forward
	require.NoError(t, s.TouchSession(ctx, "s1", time.Now(), 10, 50))

	got, err = s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 42, got.DurationSecs)
	assert.Equal(t, 75, got.ScrollDepthPct)

	require.NoError(t, s.MarkConverted(ctx, "s1", "signup"))
	got, err = s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.Converted)
	assert.Equal(t, "signup", got.ConversionType)
}

func TestIncrementStat(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	_, lp, component := seedPage(t, s)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.IncrementStat(ctx, component.ID, "a", store.CounterViews))
	}
	require.NoError(t, s.IncrementStat(ctx, component.ID, "a", store.CounterConversions))
	require.NoError(t, s.IncrementStat(ctx, component.ID, "b", store.CounterClicks))

	stats, err := s.GetComponentStats(ctx, lp.ID)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "a", stats[0].Variant)
	assert.Equal(t, 3, stats[0].Views)
	assert.Equal(t, 1, stats[0].Conversions)
	assert.Equal(t, "b", stats[1].Variant)
	assert.Equal(t, 1, stats[1].Clicks)

	assert.Error(t, s.IncrementStat(ctx, component.ID, "a", "drop table"))
}

func recordEvent(t *testing.T, s *store.SQLiteStore, lpID, sessionID, componentID, variant, eventType string) {
	t.Helper()
	err := s.RecordEvent(context.Background(), &store.Event{
		SessionID:   sessionID,
		LPID:        lpID,
		ComponentID: componentID,
		Variant:     variant,
		EventType:   eventType,
	})
	require.NoError(t, err)
}

func TestVariantVisitorStats_DistinctSessions(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	_, lp, component := seedPage(t, s)

	// Session s1 views variant a three times: one visitor
	for i := 0; i < 3; i++ {
		recordEvent(t, s, lp.ID, "s1", component.ID, "a", "component_view")
	}
	recordEvent(t, s, lp.ID, "s2", component.ID, "a", "component_view")
	recordEvent(t, s, lp.ID, "s2", component.ID, "a", "conversion")
	recordEvent(t, s, lp.ID, "s3", component.ID, "b", "component_view")

	stats, err := s.VariantVisitorStats(ctx, component.ID)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "a", stats[0].Variant)
	assert.Equal(t, 2, stats[0].Visitors)
	assert.Equal(t, 1, stats[0].Conversions)
	assert.Equal(t, "b", stats[1].Variant)
	assert.Equal(t, 1, stats[1].Visitors)
	assert.Equal(t, 0, stats[1].Conversions)
}

func TestRebuildComponentStats_RepairsDrift(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	_, lp, component := seedPage(t, s)

	recordEvent(t, s, lp.ID, "s1", component.ID, "a", "component_view")
	recordEvent(t, s, lp.ID, "s2", component.ID, "a", "component_view")
	recordEvent(t, s, lp.ID, "s1", component.ID, "a", "click")
	recordEvent(t, s, lp.ID, "s1", component.ID, "a", "conversion")

	// Simulate counter drift: only one view was counted
	require.NoError(t, s.IncrementStat(ctx, component.ID, "a", store.CounterViews))

	require.NoError(t, s.RebuildComponentStats(ctx, component.ID))

	stats, err := s.GetComponentStats(ctx, lp.ID)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].Views)
	assert.Equal(t, 1, stats[0].Clicks)
	assert.Equal(t, 1, stats[0].Conversions)
}

func TestLPStats(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	_, lp, component := seedPage(t, s)

	recordEvent(t, s, lp.ID, "s1", "", "", "pageview")
	recordEvent(t, s, lp.ID, "s2", "", "", "pageview")
	recordEvent(t, s, lp.ID, "s1", component.ID, "a", "conversion")

	totals, err := s.LPStats(ctx, lp.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Pageviews)
	assert.Equal(t, 2, totals.Sessions)
	assert.Equal(t, 1, totals.Conversions)
	assert.InDelta(t, 0.5, totals.ConversionRate, 0.001)
}

func TestTestResultRoundTrip(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	_, _, component := seedPage(t, s)

	result := &store.TestResult{
		ComponentID:    component.ID,
		VisitorsA:      200,
		ConversionsA:   10,
		RateA:          0.05,
		VisitorsB:      133,
		ConversionsB:   10,
		RateB:          0.075,
		ImprovementPct: 50,
		ConfidencePct:  80,
		IsSignificant:  true,
		WinningVariant: "b",
		ComputedAt:     time.Now(),
	}
	require.NoError(t, s.SaveTestResult(ctx, result))

	got, err := s.GetTestResult(ctx, component.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", got.WinningVariant)
	assert.True(t, got.IsSignificant)
	assert.False(t, got.Applied)

	require.NoError(t, s.MarkWinnerApplied(ctx, component.ID, time.Now()))

	// A later recompute must not clear the applied flag
	result.ConfidencePct = 85
	require.NoError(t, s.SaveTestResult(ctx, result))

	got, err = s.GetTestResult(ctx, component.ID)
	require.NoError(t, err)
	assert.True(t, got.Applied)
	require.NotNil(t, got.AppliedAt)
	assert.InDelta(t, 85, got.ConfidencePct, 0.001)
}
