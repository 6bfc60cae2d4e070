package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"padel-scoring/internal/auth"
	"padel-scoring/internal/models"
	"padel-scoring/internal/scorer"
	"padel-scoring/internal/scoring"
	"padel-scoring/internal/store"
)

type testServer struct {
	t     *testing.T
	h     http.Handler
	store *store.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.NewMemoryStore()
	a := auth.New("test-secret", auth.WithAdmins("boss@club.es"))
	h := New(s, scorer.NewManager(s, scorer.WithLogger(log)), a, log)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return &testServer{t: t, h: a.Middleware(mux), store: s}
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(ts.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) register(email, name string) string {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/auth/register", "", RegisterRequest{Email: email, Name: name, Password: "padel-pass"})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp TokenResponse
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func (ts *testServer) createMatch(token string) string {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/matches", token, CreateMatchRequest{
		Team1: []string{"Ana", "Bea"},
		Team2: []string{"Carla", "Dani"},
	})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	var m models.Match
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m.ID
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["code"]
}

func TestAccounts(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("Ana@Club.es", "Ana")

	rec := ts.do(http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me auth.UserClaims
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "ana@club.es", me.Email)
	assert.False(t, me.IsAdmin)

	rec = ts.do(http.MethodPost, "/api/auth/register", "", RegisterRequest{Email: "ana@club.es", Name: "Ana", Password: "padel-pass"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/auth/register", "", RegisterRequest{Email: "bea@club.es", Name: "Bea", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "ANA@club.es", Password: "padel-pass"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "ana@club.es", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "nobody@club.es", Password: "padel-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/api/users", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	boss := ts.register("boss@club.es", "Boss")
	rec = ts.do(http.MethodGet, "/api/users", boss, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []AccountView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 2)
	assert.NotContains(t, rec.Body.String(), "passwordHash")
}

func TestCreateMatchValidation(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("ana@club.es", "Ana")

	rec := ts.do(http.MethodPost, "/api/matches", "", CreateMatchRequest{Team1: []string{"A", "B"}, Team2: []string{"C", "D"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/matches", token, CreateMatchRequest{Team1: []string{"A"}, Team2: []string{"C", "D"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", errorCode(t, rec))

	rec = ts.do(http.MethodPost, "/api/matches", token, map[string]any{"team1": []string{"A", "B"}, "team2": []string{"C", "D"}, "court": 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLiveScoring(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("ana@club.es", "Ana")
	id := ts.createMatch(token)
	base := "/api/matches/" + id

	var up scorer.Update
	for i := 0; i < 4; i++ {
		rec := ts.do(http.MethodPost, base+"/points", token, PointRequest{Side: scoring.SideA})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))
	}
	assert.Equal(t, scoring.SideA, up.Result.GameWon)
	assert.True(t, up.Saved)
	assert.Equal(t, []scoring.SetScore{{A: 1, B: 0}}, up.Sets)

	rec := ts.do(http.MethodPost, base+"/points", token, map[string]string{"side": "team2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"b":"15"`)

	rec = ts.do(http.MethodPost, base+"/points/undo", token, PointRequest{Side: scoring.SideA})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "NOTHING_TO_UNDO", errorCode(t, rec))

	rec = ts.do(http.MethodPost, base+"/points", token, map[string]string{"side": "c"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(http.MethodPost, base+"/points", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, base+"/game/reset", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, base+"/score", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var v scorer.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, scorer.Points{A: scoring.Love, B: scoring.Love}, v.Points)

	rec = ts.do(http.MethodPost, base+"/save", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var saved models.Match
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, models.StatusInProgress, saved.Status)

	rec = ts.do(http.MethodPost, base+"/finish", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var finished map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &finished))
	assert.Equal(t, "completed", finished["status"])
	assert.Equal(t, float64(0), finished["team1Sets"])

	rec = ts.do(http.MethodPost, base+"/points", token, PointRequest{Side: scoring.SideB})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "MATCH_ALREADY_DECIDED", errorCode(t, rec))
}

func TestScoringPermissions(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.register("ana@club.es", "Ana")
	other := ts.register("carla@club.es", "Carla")
	boss := ts.register("boss@club.es", "Boss")
	id := ts.createMatch(owner)

	rec := ts.do(http.MethodPost, "/api/matches/"+id+"/points", other, PointRequest{Side: scoring.SideA})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/api/matches/"+id+"/points", boss, PointRequest{Side: scoring.SideA})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Anyone signed in can watch.
	rec = ts.do(http.MethodGet, "/api/matches/"+id+"/score", other, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMatchCRUD(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("ana@club.es", "Ana")
	id := ts.createMatch(token)

	rec := ts.do(http.MethodGet, "/api/matches/nope", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))

	rec = ts.do(http.MethodPut, "/api/matches/"+id, token, UpdateMatchRequest{Team2: []string{"Elena", " Fer "}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var m models.Match
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, []string{"Elena", "Fer"}, m.Team2)
	assert.Equal(t, []string{"Ana", "Bea"}, m.Team1)

	bad := models.MatchStatus("abandoned")
	rec = ts.do(http.MethodPut, "/api/matches/"+id, token, UpdateMatchRequest{Status: &bad})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/api/matches?q=elena", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Match
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = ts.do(http.MethodGet, "/api/matches?status=completed", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)

	rec = ts.do(http.MethodGet, "/api/matches?status=paused", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/matches/"+id, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(http.MethodGet, "/api/matches/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateMatchKeepsLiveScore(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("ana@club.es", "Ana")
	id := ts.createMatch(token)

	for _, side := range []scoring.Side{scoring.SideA, scoring.SideA, scoring.SideA, scoring.SideA, scoring.SideB} {
		rec := ts.do(http.MethodPost, "/api/matches/"+id+"/points", token, PointRequest{Side: side})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := ts.do(http.MethodPut, "/api/matches/"+id, token, UpdateMatchRequest{Team1: []string{"Ana", "Lola"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := ts.store.GetMatch(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "Lola"}, stored.Team1)
	require.NotNil(t, stored.Score)
	assert.Equal(t, []int{1}, stored.Score.A)

	rec = ts.do(http.MethodPut, "/api/matches/"+id, token, UpdateMatchRequest{Team2: []string{"Solo"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", errorCode(t, rec))
}

func TestCorruptScoreIsUnprocessable(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("ana@club.es", "Ana")
	id := ts.createMatch(token)
	_, err := ts.store.SaveScore(context.Background(), id, scoring.Snapshot{A: []int{7}, B: []int{}}, models.StatusInProgress)
	require.NoError(t, err)

	rec := ts.do(http.MethodGet, "/api/matches/"+id+"/score", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(t, rec))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
