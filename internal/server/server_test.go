package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lpforge/lpforge/internal/auth"
	"github.com/lpforge/lpforge/internal/config"
	"github.com/lpforge/lpforge/internal/store"
	"github.com/lpforge/lpforge/internal/testutil"
	"github.com/lpforge/lpforge/internal/track"
)

type testEnv struct {
	srv   *Server
	store *store.SQLiteStore
	cfg   config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := testutil.SetupTestStore(t)
	cfg := config.Config{
		JWTSecret:        "test-secret",
		TokenTTL:         time.Hour,
		BcryptCost:       4,
		SessionCookieTTL: 30 * 24 * time.Hour,
		TrackQueueSize:   8,
		TrackTaskTimeout: time.Second,
	}

	queue := track.NewQueue(cfg.TrackQueueSize, cfg.TrackTaskTimeout, zap.NewNop())
	srv := New(st, cfg, zap.NewNop(), queue)
	t.Cleanup(func() {
		queue.Close(context.Background())
	})

	return &testEnv{srv: srv, store: st, cfg: cfg}
}

// seedOwner creates an owner account and returns it with a valid API token.
func (e *testEnv) seedOwner(t *testing.T) (*store.User, string) {
	t.Helper()

	hash, err := auth.HashPassword("hunter2hunter2", e.cfg.BcryptCost)
	require.NoError(t, err)
	user, err := e.store.CreateUser(context.Background(), "owner@example.com", "Owner", hash, "owner")
	require.NoError(t, err)

	token, err := auth.IssueToken(e.cfg.JWTSecret, user.ID, user.Email, time.Hour)
	require.NoError(t, err)
	return user, token
}

// seedLP creates a page with one hero component carrying both variants.
func (e *testEnv) seedLP(t *testing.T, userID string) (*store.LandingPage, *store.Component) {
	t.Helper()
	ctx := context.Background()

	lp, err := e.store.CreateLandingPage(ctx, userID, "Launch", "launch")
	require.NoError(t, err)
	component, err := e.store.CreateComponent(ctx, lp.ID, "hero", 0, nil)
	require.NoError(t, err)
	_, err = e.store.CreateVariant(ctx, component.ID, store.VariantA, "<h1>Ship faster</h1>", "", "")
	require.NoError(t, err)
	_, err = e.store.CreateVariant(ctx, component.ID, store.VariantB, "<h1>Build better</h1>", "", "")
	require.NoError(t, err)

	return lp, component
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.srv.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	user, _ := e.seedOwner(t)
	e.seedLP(t, user.ID)

	w := e.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	decodeJSON(t, w, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.PagesCount)
	assert.Greater(t, resp.DBSizeBytes, int64(0))
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)
	e.seedOwner(t)

	w := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "owner@example.com",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	decodeJSON(t, w, &resp)
	assert.NotEmpty(t, resp["token"])

	userID, err := auth.ParseToken(e.cfg.JWTSecret, resp["token"])
	require.NoError(t, err)
	assert.NotEmpty(t, userID)
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newTestEnv(t)
	e.seedOwner(t)

	w := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "owner@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	e := newTestEnv(t)

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/lps", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/lps", "not-a-token", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/tracking/stats?lpId=x", "", nil).Code)
}

func TestLPOwnership(t *testing.T) {
	e := newTestEnv(t)
	owner, _ := e.seedOwner(t)
	lp, _ := e.seedLP(t, owner.ID)

	other, err := e.store.CreateUser(context.Background(), "member@example.com", "Member", "hash", "member")
	require.NoError(t, err)
	otherToken, err := auth.IssueToken(e.cfg.JWTSecret, other.ID, other.Email, time.Hour)
	require.NoError(t, err)

	w := e.do(t, http.MethodGet, "/api/lps/"+lp.ID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestApplyWinnerEndpoint(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner, token := e.seedOwner(t)
	lp, component := e.seedLP(t, owner.ID)

	// Variant b converts at 7.5% against 5% for a, past both gates
	for i := 0; i < 200; i++ {
		recordTestEvent(t, e.store, lp.ID, fmt.Sprintf("a%d", i), component.ID, "a", "component_view")
	}
	for i := 0; i < 10; i++ {
		recordTestEvent(t, e.store, lp.ID, fmt.Sprintf("a%d", i), component.ID, "a", "conversion")
	}
	for i := 0; i < 133; i++ {
		recordTestEvent(t, e.store, lp.ID, fmt.Sprintf("b%d", i), component.ID, "b", "component_view")
	}
	for i := 0; i < 10; i++ {
		recordTestEvent(t, e.store, lp.ID, fmt.Sprintf("b%d", i), component.ID, "b", "conversion")
	}

	winner, err := e.store.GetVariantByLetter(ctx, component.ID, "b")
	require.NoError(t, err)

	// Wrong variant id is rejected
	loser, err := e.store.GetVariantByLetter(ctx, component.ID, "a")
	require.NoError(t, err)
	w := e.do(t, http.MethodPost, "/api/tests/"+component.ID+"/apply-winner", token,
		map[string]string{"variantId": loser.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/api/tests/"+component.ID+"/apply-winner", token,
		map[string]string{"variantId": winner.ID})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	decodeJSON(t, w, &resp)
	assert.Equal(t, true, resp["appliedToProduction"])
	assert.Equal(t, "b", resp["winningVariant"])

	// Loser now serves the winner's content
	loser, err = e.store.GetVariantByLetter(ctx, component.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, winner.HTML, loser.HTML)

	// The report endpoint agrees after a recompute
	w = e.do(t, http.MethodGet, "/api/tracking/stats/report/"+component.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report testReport
	decodeJSON(t, w, &report)
	assert.True(t, report.Applied)
}

func recordTestEvent(t *testing.T, s *store.SQLiteStore, lpID, sessionID, componentID, variant, eventType string) {
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
