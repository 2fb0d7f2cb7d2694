package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"foodguide/internal/auth"
	"foodguide/internal/config"
	"foodguide/internal/db/dbtest"
	"foodguide/internal/generation"
	"foodguide/internal/guide"
	httpx "foodguide/internal/http"
	"foodguide/internal/metrics"
	"foodguide/internal/orchestrator"
	"foodguide/internal/session"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGen struct{ calls int }

func (g *stubGen) Generate(_ context.Context, req generation.Request) ([]guide.PlaceRecord, error) {
	g.calls++
	n := 22
	if req.IsFindingMore {
		n = 5
	}
	out := make([]guide.PlaceRecord, n)
	for i := range out {
		out[i] = guide.PlaceRecord{Category: guide.CategoryTrending, Name: fmt.Sprintf("place %d", len(req.ExistingNames)+i)}
	}
	return out, nil
}

type stubGeo struct{}

func (stubGeo) City(context.Context, float64, float64) string { return "Austin" }

type env struct {
	t     *testing.T
	h     http.Handler
	jwt   *auth.JWT
	gen   *stubGen
	repo  *guide.Repo
	token string
	reg   *session.Registry
}

func newEnv(t *testing.T) *env {
	repo := &guide.Repo{DB: dbtest.Open(t)}
	gen := &stubGen{}
	m := metrics.New()
	promReg := prometheus.NewRegistry()
	require.NoError(t, m.Register(promReg))

	jwtSvc := auth.NewJWT("test-secret")
	token, err := jwtSvc.Sign(auth.Identity{UID: "u1", DisplayName: "Ann", PhotoURL: "https://img/ann.png"})
	require.NoError(t, err)

	reg := session.NewRegistry()
	orch := orchestrator.New(repo, gen, orchestrator.Options{Metrics: m, PublicBaseURL: "https://food.example"})

	h := httpx.NewRouter(httpx.Deps{
		Config:   config.Config{},
		Orch:     orch,
		Sessions: reg,
		JWT:      jwtSvc,
		Geo:      stubGeo{},
		Metrics:  m,
		Gatherer: promReg,
	})
	return &env{t: t, h: h, jwt: jwtSvc, gen: gen, repo: repo, token: token, reg: reg}
}

func (e *env) do(method, path string, body any, authed bool) (*httptest.ResponseRecorder, map[string]any) {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func (e *env) newSession(authed bool) string {
	rec, body := e.do(http.MethodPost, "/sessions", nil, authed)
	require.Equal(e.t, http.StatusCreated, rec.Code)
	return body["id"].(string)
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t)

	rec, _ := e.do(http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec, _ = e.do(http.MethodGet, "/metrics", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestMe(t *testing.T) {
	e := newEnv(t)

	rec, _ := e.do(http.MethodGet, "/me", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := e.do(http.MethodGet, "/me", nil, true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", body["uid"])
	assert.Equal(t, "Ann", body["displayName"])
}

func TestUnknownSession(t *testing.T) {
	e := newEnv(t)
	rec, body := e.do(http.MethodGet, "/sessions/nope", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["error"])
}

func TestSearchValidation(t *testing.T) {
	e := newEnv(t)
	sid := e.newSession(false)

	rec, body := e.do(http.MethodPost, "/sessions/"+sid+"/search", map[string]any{"city": ""}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", body["error"])
	assert.Contains(t, body["message"], "city is required")

	rec, body = e.do(http.MethodPost, "/sessions/"+sid+"/search", map[string]any{"city": "Austin", "price": "$$$$$"}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["message"], "price must be one of")

	rec, body = e.do(http.MethodPost, "/sessions/"+sid+"/search", map[string]any{"city": "Austin", "colour": "red"}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", body["error"])

	assert.Zero(t, e.gen.calls)
}

func TestGuideFlow(t *testing.T) {
	e := newEnv(t)
	sid := e.newSession(false)
	base := "/sessions/" + sid

	params := map[string]any{"city": "Austin", "dish": nil, "price": "$$", "vibes": []string{"cozy"}, "diets": []string{}}
	rec, body := e.do(http.MethodPost, base+"/search", params, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Guide to Austin", body["title"])
	g := body["guide"].(map[string]any)
	guideID := g["id"].(string)
	assert.Equal(t, 0.0, g["likeCount"])
	assert.Len(t, g["data"], 22)
	assert.Equal(t, 1, e.gen.calls)

	// same search from a fresh session is answered from the store
	other := e.newSession(false)
	rec, body = e.do(http.MethodPost, "/sessions/"+other+"/search", params, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, guideID, body["guide"].(map[string]any)["id"])
	assert.Equal(t, 1, e.gen.calls)

	// no bearer token: like and comment are rejected
	rec, _ = e.do(http.MethodPost, base+"/like", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = e.do(http.MethodPost, base+"/comments", map[string]any{"text": "hi"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// a valid token does not act for a signed-out session
	rec, body = e.do(http.MethodPost, base+"/like", nil, true)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", body["error"])
	rec, body = e.do(http.MethodPost, base+"/comments", map[string]any{"text": "hi"}, true)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", body["error"])

	// sign in
	rec, body = e.do(http.MethodPut, base+"/identity", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"liked"}, body["refresh"].(map[string]any)["refreshed"])

	rec, body = e.do(http.MethodPost, base+"/like", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["likeCount"])
	assert.Equal(t, true, body["liked"])

	rec, body = e.do(http.MethodPost, base+"/comments", map[string]any{"text": "great tacos"}, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Ann", body["userName"])

	rec, body = e.do(http.MethodGet, "/guides/"+guideID+"/comments", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["comments"], 1)

	rec, body = e.do(http.MethodGet, base+"/share", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://food.example/#guide="+guideID, body["url"])

	rec, body = e.do(http.MethodPost, base+"/find-more", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 27.0, body["total"])
	assert.Equal(t, true, body["persisted"])
	assert.Len(t, body["added"], 5)

	rec, body = e.do(http.MethodGet, "/guides/"+guideID, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["guide"].(map[string]any)["data"], 27)
	assert.Equal(t, 1.0, body["guide"].(map[string]any)["commentCount"])

	rec, body = e.do(http.MethodGet, "/guides", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	cards := body["guides"].([]any)
	require.Len(t, cards, 1)
	assert.Equal(t, 27.0, cards[0].(map[string]any)["places"])

	rec, body = e.do(http.MethodPost, base+"/new", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", body["phase"])
	assert.Equal(t, "search", body["view"])

	rec, body = e.do(http.MethodPost, base+"/find-more", nil, false)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", body["error"])
}

func TestLoadGuide(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id, err := e.repo.CreateGuide(ctx, guide.SearchParams{City: "Naples", Dish: strp("pizza")}, []guide.PlaceRecord{{Category: guide.CategoryTopTen, Name: "Da Michele"}}, "k", "")
	require.NoError(t, err)

	sid := e.newSession(true)
	rec, body := e.do(http.MethodPut, "/sessions/"+sid+"/guide/"+id, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Top 10 pizza", body["title"])
	sections := body["sections"].([]any)
	require.Len(t, sections, 1)
	assert.Equal(t, guide.CategoryTopTen, sections[0].(map[string]any)["title"])
	snap := body["session"].(map[string]any)
	assert.Equal(t, id, snap["guideId"])
	assert.Equal(t, "u1", snap["identity"].(map[string]any)["uid"])

	rec, body = e.do(http.MethodPut, "/sessions/"+sid+"/guide/missing", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["error"])

	rec, body = e.do(http.MethodGet, "/sessions/"+sid, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "home", body["view"])
	assert.Nil(t, body["guideId"])
}

func TestNavigateAndLibrary(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id, err := e.repo.CreateGuide(ctx, guide.SearchParams{City: "Oslo"}, []guide.PlaceRecord{{Name: "Maaemo"}}, "k", "")
	require.NoError(t, err)

	rec, _ := e.do(http.MethodGet, "/library", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = e.do(http.MethodPost, "/library/"+id, nil, true)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = e.do(http.MethodPost, "/library/missing", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body := e.do(http.MethodGet, "/library", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["guides"], 1)

	sid := e.newSession(false)
	rec, body = e.do(http.MethodPut, "/sessions/"+sid+"/view", map[string]any{"view": "library"}, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["signInRequired"])

	rec, body = e.do(http.MethodPut, "/sessions/"+sid+"/identity", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	refresh := body["refresh"].(map[string]any)
	assert.Equal(t, []any{"library"}, refresh["refreshed"])
	assert.Len(t, refresh["library"], 1)

	rec, body = e.do(http.MethodPut, "/sessions/"+sid+"/view", map[string]any{"view": "explore"}, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["guides"], 1)

	rec, _ = e.do(http.MethodPut, "/sessions/"+sid+"/view", map[string]any{"view": "settings"}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = e.do(http.MethodDelete, "/library/"+id, nil, true)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec, body = e.do(http.MethodGet, "/library", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["guides"])

	rec, _ = e.do(http.MethodDelete, "/sessions/"+sid+"/identity", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = e.do(http.MethodDelete, "/sessions/"+sid, nil, false)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = e.do(http.MethodDelete, "/sessions/"+sid, nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReverseGeocode(t *testing.T) {
	e := newEnv(t)

	rec, body := e.do(http.MethodGet, "/geocode/reverse?lat=30.26&lon=-97.74", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Austin", body["city"])

	rec, _ = e.do(http.MethodGet, "/geocode/reverse?lat=abc&lon=1", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = e.do(http.MethodGet, "/geocode/reverse?lat=1&lon=200", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionStream(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(e.h)
	defer srv.Close()

	sid := e.newSession(false)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + sid + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var snap session.Snapshot
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, sid, snap.ID)
	assert.Equal(t, session.ViewHome, snap.View)

	s, ok := e.reg.Get(sid)
	require.True(t, ok)
	s.SetView(session.ViewExplore)

	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, session.ViewExplore, snap.View)
}

func strp(s string) *string { return &s }

func TestSessionWritesNeedMatchingToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id, err := e.repo.CreateGuide(ctx, guide.SearchParams{City: "Lima"}, []guide.PlaceRecord{{Name: "Central"}}, "k", "")
	require.NoError(t, err)

	sid := e.newSession(true)
	rec, _ := e.do(http.MethodPut, "/sessions/"+sid+"/guide/"+id, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	other, err := e.jwt.Sign(auth.Identity{UID: "u2", DisplayName: "Bob"})
	require.NoError(t, err)

	for _, path := range []string{"/like", "/comments"} {
		req := httptest.NewRequest(http.MethodPost, "/sessions/"+sid+path, strings.NewReader(`{"text":"not mine"}`))
		req.Header.Set("Authorization", "Bearer "+other)
		rec := httptest.NewRecorder()
		e.h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code, path)
		var out map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, "forbidden", out["error"])
	}

	g, err := e.repo.GetGuide(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, g.LikeCount)
	assert.Zero(t, g.CommentCount)
}

func TestSearchNormalizesCity(t *testing.T) {
	e := newEnv(t)

	rec, body := e.do(http.MethodPost, "/sessions/"+e.newSession(false)+"/search", map[string]any{"city": "   "}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", body["error"])

	rec, body = e.do(http.MethodPost, "/sessions/"+e.newSession(false)+"/search", map[string]any{"city": " Austin "}, false)
	require.Equal(t, http.StatusOK, rec.Code)
	first := body["guide"].(map[string]any)["id"]
	assert.Equal(t, "Guide to Austin", body["title"])

	rec, body = e.do(http.MethodPost, "/sessions/"+e.newSession(false)+"/search", map[string]any{"city": "Austin"}, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first, body["guide"].(map[string]any)["id"])
	assert.Equal(t, 1, e.gen.calls)
}
