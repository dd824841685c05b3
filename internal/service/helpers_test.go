package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"wager-tracker/internal/feed"
	"wager-tracker/internal/model"
	"wager-tracker/internal/repository"
	"wager-tracker/internal/sport"
)

// ==================== Clock ====================

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{now: t}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ==================== Feed ====================

// stubSource serves canned feed data per league key. When gate is set,
// Events blocks until it is closed and signals entered first.
type stubSource struct {
	mu      sync.Mutex
	events  map[string][]feed.RawEvent
	teams   map[string][]feed.RawTeam
	errs    map[string]error
	gate    chan struct{}
	entered chan struct{}
}

func newStubSource() *stubSource {
	return &stubSource{
		events: make(map[string][]feed.RawEvent),
		teams:  make(map[string][]feed.RawTeam),
		errs:   make(map[string]error),
	}
}

func (s *stubSource) setEvents(league string, evts ...feed.RawEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[league] = evts
}

func (s *stubSource) setTeams(league string, teams ...feed.RawTeam) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[league] = teams
}

func (s *stubSource) fail(league string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[league] = err
}

func (s *stubSource) Events(ctx context.Context, league sport.League) ([]feed.RawEvent, error) {
	s.mu.Lock()
	gate, entered := s.gate, s.entered
	s.mu.Unlock()
	if gate != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[league.Key]; err != nil {
		return nil, err
	}
	return s.events[league.Key], nil
}

func (s *stubSource) Teams(_ context.Context, league sport.League) ([]feed.RawTeam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[league.Key]; err != nil {
		return nil, err
	}
	return s.teams[league.Key], nil
}

var (
	rawKC  = feed.RawTeam{ID: "12", DisplayName: "Kansas City Chiefs", Abbreviation: "KC", Location: "Kansas City"}
	rawBUF = feed.RawTeam{ID: "2", DisplayName: "Buffalo Bills", Abbreviation: "BUF", Location: "Buffalo"}
	rawMIA = feed.RawTeam{ID: "15", DisplayName: "Miami Dolphins", Abbreviation: "MIA", Location: "Miami"}
	rawNYJ = feed.RawTeam{ID: "20", DisplayName: "New York Jets", Abbreviation: "NYJ", Location: "New York"}
)

func rawScore(s string) feed.RawScore {
	if s == "" {
		return feed.RawScore{}
	}
	return feed.RawScore{Value: s, Set: true}
}

func rawEvent(id, date, status string, home, away feed.RawTeam, homeScore, awayScore string) feed.RawEvent {
	ev := feed.RawEvent{
		ID:   id,
		Date: date,
		Competitions: []feed.RawCompetition{{
			Competitors: []feed.RawCompetitor{
				{HomeAway: "home", Team: home, Score: rawScore(homeScore)},
				{HomeAway: "away", Team: away, Score: rawScore(awayScore)},
			},
		}},
	}
	ev.Status.Type.Name = status
	return ev
}

func testLeagues(t *testing.T) *sport.Registry {
	t.Helper()
	r := sport.NewRegistry()
	require.NoError(t, r.Register(sport.League{Key: "NFL", Type: "football", Path: "nfl"}))
	require.NoError(t, r.Register(sport.League{Key: "NHL", Type: "hockey", Path: "nhl"}))
	return r
}

func sportReport(t *testing.T, rep *SyncReport, sportKey, scope string) SportReport {
	t.Helper()
	for _, sr := range rep.Sports {
		if sr.Sport == sportKey && sr.Scope == scope {
			return sr
		}
	}
	t.Fatalf("no %s report for %s", scope, sportKey)
	return SportReport{}
}

// ==================== Store ====================

func createUser(t *testing.T, s repository.Store, username string) *model.User {
	t.Helper()
	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		TimeZone:     "America/New_York",
		IsActive:     true,
	}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func createGame(t *testing.T, s repository.Store, home, away *model.Team, at time.Time, status model.GameStatus) *model.Game {
	t.Helper()
	g := &model.Game{HomeTeamID: home.ID, AwayTeamID: away.ID, GameTime: at, Sport: home.Sport, Status: status}
	require.NoError(t, s.Games().Create(context.Background(), g))
	return g
}

func intp(v int) *int { return &v }

func strp(v string) *string { return &v }

func decp(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}
