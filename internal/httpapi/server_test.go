package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wager-tracker/internal/auth"
	"wager-tracker/internal/feed"
	"wager-tracker/internal/model"
	"wager-tracker/internal/repository/memory"
	"wager-tracker/internal/repository/storetest"
	"wager-tracker/internal/service"
	"wager-tracker/internal/sport"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type stubFeed struct {
	events []feed.RawEvent
}

func (s *stubFeed) Events(context.Context, sport.League) ([]feed.RawEvent, error) {
	return s.events, nil
}

func (s *stubFeed) Teams(context.Context, sport.League) ([]feed.RawTeam, error) {
	return nil, nil
}

// kickoff is 16:00 Eastern, 13:00 Pacific.
var kickoff = time.Date(2025, 7, 11, 20, 0, 0, 0, time.UTC)

type apiFixture struct {
	handler http.Handler
	store   *memory.Store
	feed    *stubFeed
	game    *model.Game
	health  error
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := &apiFixture{store: memory.New(), feed: &stubFeed{}}
	clock := fixedClock{t: time.Date(2025, 7, 11, 16, 0, 0, 0, time.UTC)}

	tokens, err := auth.NewTokenIssuer("test-secret-that-is-at-least-32-bytes!!", "WagerWatch", "WagerWatch", time.Hour)
	require.NoError(t, err)

	leagues := sport.NewRegistry()
	require.NoError(t, leagues.Register(sport.League{Key: "NFL", Type: "football", Path: "nfl"}))

	_, _, f.game = storetest.SeedMatchup(t, f.store, kickoff)

	api := New(Deps{
		Games:    service.NewGameService(f.store, nil, clock),
		Bets:     service.NewBetService(service.BetDeps{Store: f.store, Clock: clock}),
		Sync:     service.NewSyncService(service.SyncDeps{Store: f.store, Feed: f.feed, Leagues: leagues, Clock: clock}),
		Accounts: service.NewAccountService(f.store, tokens),
		Tokens:   tokens,
		Health:   func(context.Context) error { return f.health },
	})
	f.handler = api.Router()
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) register(t *testing.T, username, zone string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "hunter22",
		"timeZone": zone,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess struct {
		Token string `json:"token"`
	}
	decode(t, rec, &sess)
	require.NotEmpty(t, sess.Token)
	return sess.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	decode(t, rec, &body)
	return body.Error
}

// ==================== Health ====================

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	f.health = errors.New("pool closed")
	rec = f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// ==================== Accounts ====================

func TestAccounts(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/auth/timezones", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var zones struct {
		TimeZones []map[string]any `json:"timeZones"`
		Default   string           `json:"default"`
	}
	decode(t, rec, &zones)
	assert.Len(t, zones.TimeZones, 8)
	assert.Equal(t, "America/New_York", zones.Default)

	token := f.register(t, "alice", "America/Los_Angeles")

	rec = f.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me model.User
	decode(t, rec, &me)
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, "America/Los_Angeles", me.TimeZone)
	assert.NotContains(t, rec.Body.String(), "hunter22")

	rec = f.do(t, http.MethodPut, "/api/auth/timezone", token, map[string]string{"timeZone": "Asia/Tokyo"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "Asia/Tokyo")

	rec = f.do(t, http.MethodPut, "/api/auth/timezone", token, map[string]string{"timeZone": "America/Chicago"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "hunter22"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "alice2@example.com", "password": "hunter22",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/auth/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ==================== Games ====================

type gameListBody struct {
	Count int `json:"count"`
	Games []struct {
		ID            int64  `json:"id"`
		GameTimeLocal string `json:"gameTimeLocal"`
		Matchup       string `json:"matchup"`
	} `json:"games"`
	Filters service.Filters `json:"filters"`
}

func TestGames_RenderInCallerZone(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/games/today", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list gameListBody
	decode(t, rec, &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "2025-07-11T16:00:00", list.Games[0].GameTimeLocal)
	assert.Equal(t, "BUF @ KC", list.Games[0].Matchup)
	assert.Equal(t, "America/New_York", list.Filters.TimeZone)

	token := f.register(t, "alice", "America/Los_Angeles")
	rec = f.do(t, http.MethodGet, "/api/games/today", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = gameListBody{}
	decode(t, rec, &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "2025-07-11T13:00:00", list.Games[0].GameTimeLocal)
	assert.Equal(t, "America/Los_Angeles", list.Filters.TimeZone)

	rec = f.do(t, http.MethodGet, "/api/games/next-hours/6", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = gameListBody{}
	decode(t, rec, &list)
	assert.Equal(t, 1, list.Count)

	rec = f.do(t, http.MethodGet, "/api/games/betting-opportunities?hoursAhead=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var opps service.OpportunityList
	decode(t, rec, &opps)
	assert.Zero(t, opps.Count)
}

func TestGames_BadInput(t *testing.T) {
	f := newAPIFixture(t)
	cases := map[string]int{
		"/api/games/next-hours/abc":                       http.StatusBadRequest,
		"/api/games/next-hours/0":                         http.StatusBadRequest,
		"/api/games/next-hours/169":                       http.StatusBadRequest,
		"/api/games/on-date/2025-13-01":                   http.StatusBadRequest,
		"/api/games/upcoming?status=suspended":            http.StatusBadRequest,
		"/api/games/upcoming?hours=soon":                  http.StatusBadRequest,
		"/api/games/betting-opportunities?hoursAhead=999": http.StatusBadRequest,
		"/api/games/999":                                  http.StatusNotFound,
		"/api/games/abc":                                  http.StatusNotFound,
	}
	for path, want := range cases {
		t.Run(path, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, path, "", nil)
			assert.Equal(t, want, rec.Code, rec.Body.String())
			if want == http.StatusBadRequest {
				assert.NotEmpty(t, errorMessage(t, rec))
			}
		})
	}
}

func TestGames_UpdateScore(t *testing.T) {
	f := newAPIFixture(t)
	path := "/api/games/" + itoa(f.game.ID) + "/score"

	rec := f.do(t, http.MethodPut, path, "", map[string]any{"homeScore": 3, "awayScore": 0})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := f.register(t, "alice", "")
	rec = f.do(t, http.MethodPut, path, token, map[string]any{"homeScore": 3, "awayScore": 0, "status": "live", "gamePeriod": "Q1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var g struct {
		Status    string `json:"status"`
		HomeScore int    `json:"homeScore"`
		GameTime  string `json:"gameTime"`
	}
	decode(t, rec, &g)
	assert.Equal(t, "Live", g.Status)
	assert.Equal(t, 3, g.HomeScore)
	assert.Equal(t, "2025-07-11T20:00:00Z", g.GameTime)

	rec = f.do(t, http.MethodPut, path, token, map[string]any{"status": "paused"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ==================== Bets ====================

func TestBets_Lifecycle(t *testing.T) {
	f := newAPIFixture(t)
	alice := f.register(t, "alice", "America/Chicago")
	mallory := f.register(t, "mallory", "")

	rec := f.do(t, http.MethodGet, "/api/bets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/bets", alice, map[string]any{
		"gameId": f.game.ID, "betType": "Moneyline", "amount": "100", "odds": -110, "selection": "KC",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var bet struct {
		ID              int64  `json:"id"`
		PotentialPayout string `json:"potentialPayout"`
		Status          string `json:"status"`
		Matchup         string `json:"matchup"`
		GameTime        string `json:"gameTime"`
		AuraColor       string `json:"auraColor"`
	}
	decode(t, rec, &bet)
	assert.Equal(t, "190.91", bet.PotentialPayout)
	assert.Equal(t, "Active", bet.Status)
	assert.Equal(t, "/api/bets/"+itoa(bet.ID), rec.Header().Get("Location"))
	betPath := "/api/bets/" + itoa(bet.ID)

	rec = f.do(t, http.MethodGet, betPath, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &bet)
	assert.Equal(t, "BUF @ KC", bet.Matchup)
	assert.Equal(t, "2025-07-11T15:00:00", bet.GameTime)

	rec = f.do(t, http.MethodGet, betPath, mallory, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodPut, betPath+"/settle", mallory, map[string]string{"status": "Lost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPut, betPath+"/settle", alice, map[string]string{"status": "Active"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodPut, betPath+"/settle", alice, map[string]string{"status": "won"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &bet)
	assert.Equal(t, "Won", bet.Status)
	assert.Equal(t, "green", bet.AuraColor)
	rec = f.do(t, http.MethodPut, betPath+"/settle", alice, map[string]string{"status": "Lost"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPut, betPath+"/volatility", alice, map[string]string{"volatility": "Wild"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodPut, betPath+"/volatility", alice, map[string]string{"volatility": "High"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/bets?scope=settled", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var settled []map[string]any
	decode(t, rec, &settled)
	assert.Len(t, settled, 1)
	rec = f.do(t, http.MethodGet, "/api/bets?scope=pending", alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/games/"+itoa(f.game.ID)+"/bets", mallory, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var none []map[string]any
	decode(t, rec, &none)
	assert.Empty(t, none)

	rec = f.do(t, http.MethodGet, "/api/bets/stats", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		TotalBets int    `json:"totalBets"`
		TotalWon  string `json:"totalWon"`
		WinRate   string `json:"winRate"`
	}
	decode(t, rec, &stats)
	assert.Equal(t, 1, stats.TotalBets)
	assert.Equal(t, "190.91", stats.TotalWon)
	assert.Equal(t, "100", stats.WinRate)

	rec = f.do(t, http.MethodDelete, betPath, mallory, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodDelete, betPath, alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodGet, betPath, alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBets_CreateValidation(t *testing.T) {
	f := newAPIFixture(t)
	token := f.register(t, "alice", "")

	bad := []map[string]any{
		{"gameId": f.game.ID, "betType": "Moneyline", "amount": "0", "odds": -110},
		{"gameId": f.game.ID, "betType": "Teaser", "amount": "10", "odds": -110},
		{"gameId": f.game.ID, "betType": "Moneyline", "amount": "10", "odds": 0},
	}
	for _, body := range bad {
		rec := f.do(t, http.MethodPost, "/api/bets", token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	}

	rec := f.do(t, http.MethodPost, "/api/bets", token, map[string]any{
		"gameId": 999, "betType": "Moneyline", "amount": "10", "odds": 150,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ==================== Sync ====================

func TestSync(t *testing.T) {
	f := newAPIFixture(t)
	ev := feed.RawEvent{ID: "401", Date: "2025-07-12T17:00:00Z"}
	ev.Status.Type.Name = "STATUS_SCHEDULED"
	ev.Competitions = []feed.RawCompetition{{Competitors: []feed.RawCompetitor{
		{HomeAway: "home", Team: feed.RawTeam{ID: "15", DisplayName: "Miami Dolphins", Abbreviation: "MIA"}},
		{HomeAway: "away", Team: feed.RawTeam{ID: "20", DisplayName: "New York Jets", Abbreviation: "NYJ"}},
	}}}
	f.feed.events = []feed.RawEvent{ev}

	rec := f.do(t, http.MethodPost, "/api/games/sync/games", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := f.register(t, "alice", "")
	rec = f.do(t, http.MethodPost, "/api/games/sync/games", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rep service.SyncReport
	decode(t, rec, &rep)
	assert.Equal(t, service.ScopeGames, rep.Scope)
	assert.Equal(t, 1, rep.Created)

	rec = f.do(t, http.MethodPost, "/api/games/sync/games", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rep = service.SyncReport{}
	decode(t, rec, &rep)
	assert.Zero(t, rep.Created)
	assert.Equal(t, 1, rep.Unchanged)
}

// ==================== Errors ====================

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(service.ErrSyncInProgress))
	assert.Equal(t, http.StatusConflict, statusFor(service.ErrAlreadySettled))
	assert.Equal(t, http.StatusConflict, statusFor(fmt.Errorf("%w: bet 7", service.ErrSettlementBusy)))
	assert.Equal(t, http.StatusBadRequest, statusFor(fmt.Errorf("%w: password exceeds 72 bytes", service.ErrValidationFailed)))
	assert.Equal(t, http.StatusUnauthorized, statusFor(auth.ErrInvalidToken))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
