// Package storetest runs the same behavioral checks against any
// repository.Store implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wager-tracker/internal/model"
	"wager-tracker/internal/repository"
)

// Run executes every check. newStore must return an empty, migrated store.
func Run(t *testing.T, newStore func(t *testing.T) repository.Store) {
	t.Run("Teams", func(t *testing.T) { testTeams(t, newStore(t)) })
	t.Run("Games", func(t *testing.T) { testGames(t, newStore(t)) })
	t.Run("GameFilter", func(t *testing.T) { testGameFilter(t, newStore(t)) })
	t.Run("Bets", func(t *testing.T) { testBets(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("NestedTx", func(t *testing.T) { testNestedTx(t, newStore(t)) })
	t.Run("Seed", func(t *testing.T) { testSeed(t, newStore(t)) })
}

// SeedMatchup creates two teams and one game between them.
func SeedMatchup(t *testing.T, s repository.Store, at time.Time) (*model.Team, *model.Team, *model.Game) {
	t.Helper()
	ctx := context.Background()

	home := &model.Team{Name: "Kansas City Chiefs", Abbreviation: "KC", City: "Kansas City", Sport: "NFL", IsActive: true}
	away := &model.Team{Name: "Buffalo Bills", Abbreviation: "BUF", City: "Buffalo", Sport: "NFL", IsActive: true}
	require.NoError(t, s.Teams().Create(ctx, home))
	require.NoError(t, s.Teams().Create(ctx, away))

	game := &model.Game{HomeTeamID: home.ID, AwayTeamID: away.ID, GameTime: at, Sport: "NFL", Status: model.GameScheduled}
	require.NoError(t, s.Games().Create(ctx, game))
	return home, away, game
}

func testTeams(t *testing.T, s repository.Store) {
	ctx := context.Background()
	repo := s.Teams()

	logo := "kc.png"
	team := &model.Team{Name: "Kansas City Chiefs", Abbreviation: "KC", City: "Kansas City", Sport: "NFL", LogoURL: &logo, IsActive: true}
	require.NoError(t, repo.Create(ctx, team))
	assert.NotZero(t, team.ID)

	dup := &model.Team{Name: "Kansas City Chiefs", Abbreviation: "KAN", Sport: "NFL"}
	assert.ErrorIs(t, repo.Create(ctx, dup), repository.ErrDuplicate)

	// Same name in another sport is a different team.
	require.NoError(t, repo.Create(ctx, &model.Team{Name: "Kansas City Chiefs", Abbreviation: "KC", Sport: "NBA"}))

	got, err := repo.FindByNameSport(ctx, "Kansas City Chiefs", "NFL")
	require.NoError(t, err)
	assert.Equal(t, team.ID, got.ID)
	require.NotNil(t, got.LogoURL)
	assert.Equal(t, logo, *got.LogoURL)

	_, err = repo.FindByNameSport(ctx, "Kansas City Chiefs", "MLB")
	assert.ErrorIs(t, err, repository.ErrTeamNotFound)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.UpdateDescriptive(ctx, team.ID, "KCC", "KC", nil))
	got, err = repo.GetByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, "KCC", got.Abbreviation)
	assert.Nil(t, got.LogoURL)

	assert.ErrorIs(t, repo.UpdateDescriptive(ctx, 99999, "X", "", nil), repository.ErrTeamNotFound)

	nfl, err := repo.List(ctx, "NFL")
	require.NoError(t, err)
	assert.Len(t, nfl, 1)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func testGames(t *testing.T, s repository.Store) {
	ctx := context.Background()
	kickoff := time.Date(2025, 7, 11, 20, 0, 0, 0, time.UTC)
	home, away, game := SeedMatchup(t, s, kickoff)

	got, err := s.Games().GetByID(ctx, game.ID)
	require.NoError(t, err)
	assert.True(t, kickoff.Equal(got.GameTime))
	require.NotNil(t, got.HomeTeam)
	assert.Equal(t, "BUF @ KC", got.Matchup())

	// A second game the same day; the earliest one is the match.
	later := &model.Game{HomeTeamID: home.ID, AwayTeamID: away.ID, GameTime: kickoff.Add(4 * time.Hour), Sport: "NFL", Status: model.GameScheduled}
	require.NoError(t, s.Games().Create(ctx, later))

	dayStart := time.Date(2025, 7, 11, 0, 0, 0, 0, time.UTC)
	found, err := s.Games().FindByMatchup(ctx, home.ID, away.ID, dayStart, dayStart.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, game.ID, found.ID)

	// Reversed home/away is a different matchup.
	_, err = s.Games().FindByMatchup(ctx, away.ID, home.ID, dayStart, dayStart.Add(24*time.Hour))
	assert.ErrorIs(t, err, repository.ErrGameNotFound)

	home7, away3, period := 7, 3, "Q2"
	at := kickoff.Add(40 * time.Minute)
	require.NoError(t, s.Games().UpdateState(ctx, game.ID, model.GameLive, &home7, &away3, &period, at))

	got, err = s.Games().GetByID(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, model.GameLive, got.Status)
	require.NotNil(t, got.HomeScore)
	assert.Equal(t, 7, *got.HomeScore)
	assert.True(t, kickoff.Equal(got.GameTime), "state update must not move game time")
	require.NotNil(t, got.LastUpdated)
	assert.True(t, at.Equal(*got.LastUpdated))

	assert.ErrorIs(t, s.Games().UpdateState(ctx, 99999, model.GameFinal, nil, nil, nil, at), repository.ErrGameNotFound)

	bad := &model.Game{HomeTeamID: 99998, AwayTeamID: away.ID, GameTime: kickoff, Sport: "NFL", Status: model.GameScheduled}
	assert.ErrorIs(t, s.Games().Create(ctx, bad), repository.ErrTeamNotFound)
}

func testGameFilter(t *testing.T, s repository.Store) {
	ctx := context.Background()
	base := time.Date(2025, 7, 11, 0, 0, 0, 0, time.UTC)
	home, away, first := SeedMatchup(t, s, base)

	for i := 1; i < 5; i++ {
		g := &model.Game{HomeTeamID: home.ID, AwayTeamID: away.ID, GameTime: base.Add(time.Duration(i) * time.Hour), Sport: "NFL", Status: model.GameScheduled}
		if i == 4 {
			g.Status = model.GameFinal
		}
		require.NoError(t, s.Games().Create(ctx, g))
	}

	// Half-open: the game exactly at To is excluded, the one at From included.
	games, err := s.Games().List(ctx, repository.GameFilter{From: base, To: base.Add(2 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, first.ID, games[0].ID)

	games, err = s.Games().List(ctx, repository.GameFilter{Statuses: []model.GameStatus{model.GameFinal}})
	require.NoError(t, err)
	assert.Len(t, games, 1)

	games, err = s.Games().List(ctx, repository.GameFilter{Descending: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.True(t, games[0].GameTime.After(games[1].GameTime))

	games, err = s.Games().List(ctx, repository.GameFilter{Sport: "nba"})
	require.NoError(t, err)
	assert.Empty(t, games)

	games, err = s.Games().List(ctx, repository.GameFilter{Sport: "nfl"})
	require.NoError(t, err)
	assert.Len(t, games, 5)
}

func newBet(userID, gameID int64) *model.Bet {
	return &model.Bet{
		UserID:          userID,
		GameID:          gameID,
		Type:            model.BetMoneyline,
		Amount:          decimal.RequireFromString("100.00"),
		Odds:            -110,
		PotentialPayout: decimal.RequireFromString("190.91"),
		Status:          model.BetActive,
		Volatility:      model.VolatilityMedium,
	}
}

func testBets(t *testing.T, s repository.Store) {
	ctx := context.Background()
	_, _, game := SeedMatchup(t, s, time.Date(2025, 7, 11, 20, 0, 0, 0, time.UTC))

	user := &model.User{Username: "bettor", Email: "bettor@example.com", PasswordHash: "x", TimeZone: "America/New_York", IsActive: true}
	require.NoError(t, s.Users().Create(ctx, user))

	line := decimal.RequireFromString("-3.5")
	sel := "KC"
	b1 := newBet(user.ID, game.ID)
	b1.Line = &line
	b1.Selection = &sel
	b1.CreatedAt = time.Now().Add(-time.Minute).UTC()
	require.NoError(t, s.Bets().Create(ctx, b1))
	b2 := newBet(user.ID, game.ID)
	require.NoError(t, s.Bets().Create(ctx, b2))

	got, err := s.Bets().GetByID(ctx, b1.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("100")))
	assert.True(t, got.PotentialPayout.Equal(decimal.RequireFromString("190.91")))
	require.NotNil(t, got.Line)
	assert.True(t, got.Line.Equal(line))
	require.NotNil(t, got.Game)
	assert.Equal(t, "BUF @ KC", got.Game.Matchup())
	assert.Nil(t, got.ActualPayout)

	payout := decimal.RequireFromString("190.91")
	require.NoError(t, s.Bets().Settle(ctx, b1.ID, model.BetWon, payout, time.Now()))
	assert.ErrorIs(t, s.Bets().Settle(ctx, b1.ID, model.BetLost, decimal.Zero, time.Now()), repository.ErrBetNotActive)
	assert.ErrorIs(t, s.Bets().Settle(ctx, 99999, model.BetLost, decimal.Zero, time.Now()), repository.ErrBetNotFound)

	got, err = s.Bets().GetByID(ctx, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BetWon, got.Status)
	require.NotNil(t, got.ActualPayout)
	assert.True(t, got.ActualPayout.Equal(payout))
	assert.NotNil(t, got.SettledAt)

	active, err := s.Bets().ListByUser(ctx, user.ID, model.ScopeActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b2.ID, active[0].ID)

	settled, err := s.Bets().ListByUser(ctx, user.ID, model.ScopeSettled)
	require.NoError(t, err)
	require.Len(t, settled, 1)
	assert.Equal(t, b1.ID, settled[0].ID)

	all, err := s.Bets().ListByUserAndGame(ctx, user.ID, game.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b2.ID, all[0].ID, "newest first")

	require.NoError(t, s.Bets().UpdateVolatility(ctx, b2.ID, model.VolatilityExtreme))
	got, err = s.Bets().GetByID(ctx, b2.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VolatilityExtreme, got.Volatility)

	require.NoError(t, s.Bets().Delete(ctx, b2.ID))
	_, err = s.Bets().GetByID(ctx, b2.ID)
	assert.ErrorIs(t, err, repository.ErrBetNotFound)
	assert.ErrorIs(t, s.Bets().Delete(ctx, b2.ID), repository.ErrBetNotFound)

	assert.ErrorIs(t, s.Bets().Create(ctx, newBet(user.ID, 99999)), repository.ErrGameNotFound)
}

func testUsers(t *testing.T, s repository.Store) {
	ctx := context.Background()
	repo := s.Users()

	user := &model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash", TimeZone: "America/Chicago", IsActive: true}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	dup := &model.User{Username: "alice2", Email: "ALICE@example.com", PasswordHash: "hash", TimeZone: "UTC"}
	err := repo.Create(ctx, dup)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	emailTaken, usernameTaken, err := repo.Exists(ctx, "alice@example.com", "bob")
	require.NoError(t, err)
	assert.True(t, emailTaken)
	assert.False(t, usernameTaken)

	got, err := repo.GetByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	require.NoError(t, repo.UpdateTimeZone(ctx, user.ID, "Europe/London"))
	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", got.TimeZone)

	_, err = repo.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	assert.ErrorIs(t, repo.UpdateTimeZone(ctx, 99999, "UTC"), repository.ErrUserNotFound)
}

var errAbort = errors.New("abort")

func testNestedTx(t *testing.T, s repository.Store) {
	ctx := context.Background()

	err := s.InTx(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Teams().Create(ctx, &model.Team{Name: "Kept", Abbreviation: "KPT", Sport: "NFL"}))

		// A failing nested unit rolls back alone.
		nestedErr := tx.InTx(ctx, func(inner repository.Store) error {
			require.NoError(t, inner.Teams().Create(ctx, &model.Team{Name: "Dropped", Abbreviation: "DRP", Sport: "NFL"}))
			return errAbort
		})
		assert.ErrorIs(t, nestedErr, errAbort)

		return tx.InTx(ctx, func(inner repository.Store) error {
			return inner.Teams().Create(ctx, &model.Team{Name: "Also Kept", Abbreviation: "AKP", Sport: "NFL"})
		})
	})
	require.NoError(t, err)

	_, err = s.Teams().FindByNameSport(ctx, "Dropped", "NFL")
	assert.ErrorIs(t, err, repository.ErrTeamNotFound)
	n, err := s.Teams().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// A failing outer transaction discards everything.
	err = s.InTx(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Teams().Create(ctx, &model.Team{Name: "Gone", Abbreviation: "GON", Sport: "NFL"}))
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)
	n, err = s.Teams().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func testSeed(t *testing.T, s repository.Store) {
	ctx := context.Background()

	// An existing seed team is left alone.
	require.NoError(t, s.Teams().Create(ctx, &model.Team{Name: "Kansas City Chiefs", Abbreviation: "KAN", Sport: "NFL"}))

	created, err := repository.Seed(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, len(repository.SeedTeams)-1, created)

	kc, err := s.Teams().FindByNameSport(ctx, "Kansas City Chiefs", "NFL")
	require.NoError(t, err)
	assert.Equal(t, "KAN", kc.Abbreviation)

	created, err = repository.Seed(ctx, s)
	require.NoError(t, err)
	assert.Zero(t, created)

	n, err := s.Teams().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(repository.SeedTeams), n)
}
