// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository_test

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"wager-tracker/internal/model"
	"wager-tracker/internal/repository"
	"wager-tracker/internal/repository/storetest"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool
// Skips the test if Docker is not available
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, repository.Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// truncate empties every table so one container can serve several subtests.
func truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `TRUNCATE bets, games, teams, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

// ============================================================================
// Store contract
// ============================================================================

func TestPostgresStore_Contract(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	storetest.Run(t, func(t *testing.T) repository.Store {
		truncate(t, pool)
		return repository.NewPostgresStore(pool)
	})
}

// ============================================================================
// Migrations
// ============================================================================

func TestMigrate_Idempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	// setupTestDB already migrated once.
	require.NoError(t, repository.Migrate(context.Background(), pool))
}

// ============================================================================
// Postgres specifics
// ============================================================================

func TestPostgresStore_GameTimeStoredAsUTC(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := repository.NewPostgresStore(pool)
	ctx := context.Background()

	// 16:00 EDT == 20:00Z.
	eastern := time.FixedZone("EDT", -4*3600)
	_, _, game := storetest.SeedMatchup(t, store, time.Date(2025, 7, 11, 16, 0, 0, 0, eastern))

	got, err := store.Games().GetByID(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.GameTime.Location())
	assert.Equal(t, time.Date(2025, 7, 11, 20, 0, 0, 0, time.UTC), got.GameTime)
}

func TestPostgresStore_DeleteUserCascadesBets(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := repository.NewPostgresStore(pool)
	ctx := context.Background()
	_, _, game := storetest.SeedMatchup(t, store, time.Now().Add(time.Hour))

	user := &model.User{Username: "gone", Email: "gone@example.com", PasswordHash: "x", TimeZone: "UTC", IsActive: true}
	require.NoError(t, store.Users().Create(ctx, user))

	bet := &model.Bet{UserID: user.ID, GameID: game.ID, Type: model.BetMoneyline, Odds: 100,
		Status: model.BetActive, Volatility: model.VolatilityLow}
	require.NoError(t, store.Bets().Create(ctx, bet))

	_, err := pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, user.ID)
	require.NoError(t, err)

	_, err = store.Bets().GetByID(ctx, bet.ID)
	assert.ErrorIs(t, err, repository.ErrBetNotFound)
}
