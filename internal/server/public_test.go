package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) getPublicLP(t *testing.T, path string, cookie *http.Cookie) (*httptest.ResponseRecorder, publicLPResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone) Mobile Safari")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.srv.router.ServeHTTP(w, req)

	var resp publicLPResponse
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func findSessionCookie(t *testing.T, w *httptest.ResponseRecorder) (*http.Cookie, sessionCookie) {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name != sessionCookieName {
			continue
		}
		raw, err := url.QueryUnescape(c.Value)
		require.NoError(t, err)
		var sc sessionCookie
		require.NoError(t, json.Unmarshal([]byte(raw), &sc))
		return c, sc
	}
	t.Fatal("session cookie not set")
	return nil, sessionCookie{}
}

func TestPublicLP_AssignsVariantAndSetsCookie(t *testing.T) {
	e := newTestEnv(t)
	owner, _ := e.seedOwner(t)
	lp, component := e.seedLP(t, owner.ID)

	e.srv.rnd = func() float64 { return 0.9 }

	w, resp := e.getPublicLP(t, "/api/public/lp/"+lp.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, resp.Components, 1)
	assert.Equal(t, "b", resp.Components[0].Variant)
	assert.Equal(t, "<h1>Build better</h1>", resp.Components[0].HTML)
	assert.NotEmpty(t, resp.SessionID)

	cookie, sc := findSessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, resp.SessionID, sc.ID)
	assert.Equal(t, "b", sc.Variants[component.ID])
	assert.Equal(t, "mobile", sc.Device.Type)

	// The session record mirrors the cookie
	sess, err := e.store.GetSession(context.Background(), sc.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", sess.Assignments[component.ID])
}

func TestPublicLP_StickyAcrossRequests(t *testing.T) {
	e := newTestEnv(t)
	owner, _ := e.seedOwner(t)
	lp, _ := e.seedLP(t, owner.ID)

	e.srv.rnd = func() float64 { return 0.9 }
	w, first := e.getPublicLP(t, "/api/public/lp/"+lp.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookie, _ := findSessionCookie(t, w)

	// The random source now prefers "a", but the cookie assignment wins
	e.srv.rnd = func() float64 { return 0.0 }
	for i := 0; i < 3; i++ {
		w, again := e.getPublicLP(t, "/api/public/lp/"+lp.ID, cookie)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, first.SessionID, again.SessionID)
		assert.Equal(t, "b", again.Components[0].Variant)
	}
}

func TestPublicLP_QueryOverrideBeatsStickyAssignment(t *testing.T) {
	e := newTestEnv(t)
	owner, _ := e.seedOwner(t)
	lp, component := e.seedLP(t, owner.ID)

	e.srv.rnd = func() float64 { return 0.0 }
	w, first := e.getPublicLP(t, "/api/public/lp/"+lp.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a", first.Components[0].Variant)
	cookie, _ := findSessionCookie(t, w)

	w, forced := e.getPublicLP(t, "/api/public/lp/"+lp.ID+"?variant_"+component.ID+"=b", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b", forced.Components[0].Variant)

	// The override is pinned for later requests
	_, sc := findSessionCookie(t, w)
	assert.Equal(t, "b", sc.Variants[component.ID])

	sess, err := e.store.GetSession(context.Background(), first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "b", sess.Assignments[component.ID])
}

func TestPublicLP_GlobalOverride(t *testing.T) {
	e := newTestEnv(t)
	owner, _ := e.seedOwner(t)
	lp, _ := e.seedLP(t, owner.ID)

	e.srv.rnd = func() float64 { return 0.0 }
	w, resp := e.getPublicLP(t, "/api/public/lp/"+lp.ID+"?variant=b", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b", resp.Components[0].Variant)
}

func TestPublicLP_MalformedCookieStartsFreshSession(t *testing.T) {
	e := newTestEnv(t)
	owner, _ := e.seedOwner(t)
	lp, _ := e.seedLP(t, owner.ID)

	bad := &http.Cookie{Name: sessionCookieName, Value: "%%%not-json"}
	w, resp := e.getPublicLP(t, "/api/public/lp/"+lp.ID, bad)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, resp.SessionID)

	_, sc := findSessionCookie(t, w)
	assert.Equal(t, resp.SessionID, sc.ID)
}

func TestPublicLP_NotFound(t *testing.T) {
	e := newTestEnv(t)

	w, _ := e.getPublicLP(t, "/api/public/lp/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPublicLP_CapturesUTM(t *testing.T) {
	e := newTestEnv(t)
	owner, _ := e.seedOwner(t)
	lp, _ := e.seedLP(t, owner.ID)

	w, resp := e.getPublicLP(t, "/api/public/lp/"+lp.ID+"?utm_source=newsletter&utm_campaign=spring", nil)
	require.Equal(t, http.StatusOK, w.Code)

	sess, err := e.store.GetSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "newsletter", sess.UTMSource)
	assert.Equal(t, "spring", sess.UTMCampaign)
}
