// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"wager-tracker/internal/model"
)

// Common errors for repository operations.
// Every *NotFound error wraps ErrNotFound.
var (
	ErrNotFound     = errors.New("not found")
	ErrTeamNotFound = fmt.Errorf("team %w", ErrNotFound)
	ErrGameNotFound = fmt.Errorf("game %w", ErrNotFound)
	ErrBetNotFound  = fmt.Errorf("bet %w", ErrNotFound)
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("duplicate record")
	// ErrBetNotActive is returned when a conditional bet update finds the bet
	// already settled.
	ErrBetNotActive = errors.New("bet is not active")
)

// GameFilter narrows a game listing. Zero values mean "no constraint".
// The time range is half-open [From, To).
type GameFilter struct {
	From       time.Time
	To         time.Time
	Sport      string
	Statuses   []model.GameStatus
	Descending bool
	Limit      int
}

// TeamRepository persists teams.
type TeamRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Team, error)
	FindByNameSport(ctx context.Context, name, sport string) (*model.Team, error)
	Create(ctx context.Context, team *model.Team) error
	UpdateDescriptive(ctx context.Context, id int64, abbreviation, city string, logoURL *string) error
	List(ctx context.Context, sport string) ([]*model.Team, error)
	Count(ctx context.Context) (int, error)
}

// GameRepository persists games. Reads populate HomeTeam and AwayTeam.
type GameRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Game, error)
	// FindByMatchup returns the earliest game between the two teams whose
	// game time falls in [from, to).
	FindByMatchup(ctx context.Context, homeTeamID, awayTeamID int64, from, to time.Time) (*model.Game, error)
	Create(ctx context.Context, game *model.Game) error
	// UpdateState overwrites status, scores, period and last-updated.
	// It never changes game_time.
	UpdateState(ctx context.Context, id int64, status model.GameStatus, homeScore, awayScore *int, period *string, at time.Time) error
	List(ctx context.Context, filter GameFilter) ([]*model.Game, error)
	Count(ctx context.Context) (int, error)
}

// BetRepository persists bets. Reads populate Game with its teams.
type BetRepository interface {
	Create(ctx context.Context, bet *model.Bet) error
	GetByID(ctx context.Context, id int64) (*model.Bet, error)
	ListByUser(ctx context.Context, userID int64, scope model.BetScope) ([]*model.Bet, error)
	ListByUserAndGame(ctx context.Context, userID, gameID int64) ([]*model.Bet, error)
	// Settle moves an Active bet to a terminal status. It returns
	// ErrBetNotActive if the bet has already left Active.
	Settle(ctx context.Context, id int64, status model.BetStatus, payout decimal.Decimal, at time.Time) error
	UpdateVolatility(ctx context.Context, id int64, v model.Volatility) error
	Delete(ctx context.Context, id int64) error
}

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Exists(ctx context.Context, email, username string) (emailTaken, usernameTaken bool, err error)
	UpdateTimeZone(ctx context.Context, id int64, zone string) error
}

// Store is the unit-of-work boundary over all repositories.
type Store interface {
	Teams() TeamRepository
	Games() GameRepository
	Bets() BetRepository
	Users() UserRepository

	// InTx runs fn in a transaction and commits if fn returns nil.
	// Calling InTx on a Store already inside a transaction opens a nested
	// unit (a savepoint) that rolls back independently.
	InTx(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
}

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore is the pgx-backed Store.
type PostgresStore struct {
	db    DBTX
	teams *TeamRepo
	games *GameRepo
	bets  *BetRepo
	users *UserRepo
}

// NewPostgresStore creates a store over a connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return newPostgresStore(pool)
}

func newPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{
		db:    db,
		teams: NewTeamRepository(db),
		games: NewGameRepository(db),
		bets:  NewBetRepository(db),
		users: NewUserRepository(db),
	}
}

// Teams returns the team repository.
func (s *PostgresStore) Teams() TeamRepository { return s.teams }

// Games returns the game repository.
func (s *PostgresStore) Games() GameRepository { return s.games }

// Bets returns the bet repository.
func (s *PostgresStore) Bets() BetRepository { return s.bets }

// Users returns the user repository.
func (s *PostgresStore) Users() UserRepository { return s.users }

// InTx implements Store. pgx turns Begin on a Tx into a savepoint.
func (s *PostgresStore) InTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// No-op once committed.
		_ = tx.Rollback(ctx)
	}()

	if err := fn(newPostgresStore(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.db.Exec(ctx, "SELECT 1")
	return err
}

// Postgres error codes we translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
