package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"wager-tracker/internal/model"
)

// GameRepo handles game persistence.
type GameRepo struct {
	db DBTX
}

// NewGameRepository creates a new GameRepo instance.
func NewGameRepository(db DBTX) *GameRepo {
	return &GameRepo{db: db}
}

const gameSelect = `
	SELECT g.id, COALESCE(g.external_id, ''), g.home_team_id, g.away_team_id, g.game_time, g.sport,
		g.status, g.home_score, g.away_score, g.game_period, g.last_updated,
		h.id, COALESCE(h.external_id, ''), h.name, h.abbreviation, h.city, h.sport, h.logo_url, h.is_active,
		a.id, COALESCE(a.external_id, ''), a.name, a.abbreviation, a.city, a.sport, a.logo_url, a.is_active
	FROM games g
	JOIN teams h ON h.id = g.home_team_id
	JOIN teams a ON a.id = g.away_team_id
`

func scanGame(row pgx.Row) (*model.Game, error) {
	var g model.Game
	var home, away model.Team
	err := row.Scan(
		&g.ID, &g.ExternalID, &g.HomeTeamID, &g.AwayTeamID, &g.GameTime, &g.Sport,
		&g.Status, &g.HomeScore, &g.AwayScore, &g.GamePeriod, &g.LastUpdated,
		&home.ID, &home.ExternalID, &home.Name, &home.Abbreviation, &home.City, &home.Sport, &home.LogoURL, &home.IsActive,
		&away.ID, &away.ExternalID, &away.Name, &away.Abbreviation, &away.City, &away.Sport, &away.LogoURL, &away.IsActive,
	)
	if err != nil {
		return nil, err
	}
	g.GameTime = g.GameTime.UTC()
	g.HomeTeam = &home
	g.AwayTeam = &away
	return &g, nil
}

func (r *GameRepo) queryGames(ctx context.Context, query string, args ...any) ([]*model.Game, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	var games []*model.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}
	return games, nil
}

// GetByID retrieves a game with both teams.
func (r *GameRepo) GetByID(ctx context.Context, id int64) (*model.Game, error) {
	g, err := scanGame(r.db.QueryRow(ctx, gameSelect+` WHERE g.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return g, nil
}

// FindByMatchup implements GameRepository.
func (r *GameRepo) FindByMatchup(ctx context.Context, homeTeamID, awayTeamID int64, from, to time.Time) (*model.Game, error) {
	query := gameSelect + `
		WHERE g.home_team_id = $1 AND g.away_team_id = $2
		  AND g.game_time >= $3 AND g.game_time < $4
		ORDER BY g.game_time, g.id
		LIMIT 1
	`

	g, err := scanGame(r.db.QueryRow(ctx, query, homeTeamID, awayTeamID, from.UTC(), to.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to find game: %w", err)
	}
	return g, nil
}

// Create inserts a game and sets its ID.
func (r *GameRepo) Create(ctx context.Context, game *model.Game) error {
	const query = `
		INSERT INTO games (external_id, home_team_id, away_team_id, game_time, sport, status,
			home_score, away_score, game_period, last_updated)
		VALUES (NULLIF($1, ''), $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		game.ExternalID, game.HomeTeamID, game.AwayTeamID, game.GameTime.UTC(), game.Sport, game.Status,
		game.HomeScore, game.AwayScore, game.GamePeriod, game.LastUpdated,
	).Scan(&game.ID)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

// UpdateState implements GameRepository.
func (r *GameRepo) UpdateState(ctx context.Context, id int64, status model.GameStatus, homeScore, awayScore *int, period *string, at time.Time) error {
	const query = `
		UPDATE games
		SET status = $2, home_score = $3, away_score = $4, game_period = $5, last_updated = $6
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, status, homeScore, awayScore, period, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrGameNotFound
	}
	return nil
}

// List returns games matching the filter, ordered by game time.
func (r *GameRepo) List(ctx context.Context, f GameFilter) ([]*model.Game, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.From.IsZero() {
		where = append(where, "g.game_time >= "+arg(f.From.UTC()))
	}
	if !f.To.IsZero() {
		where = append(where, "g.game_time < "+arg(f.To.UTC()))
	}
	if f.Sport != "" {
		where = append(where, "g.sport = "+arg(strings.ToUpper(f.Sport)))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, "g.status = ANY("+arg(statuses)+")")
	}

	query := gameSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Descending {
		query += " ORDER BY g.game_time DESC, g.id DESC"
	} else {
		query += " ORDER BY g.game_time, g.id"
	}
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}

	return r.queryGames(ctx, query, args...)
}

// Count returns the number of games.
func (r *GameRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM games`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count games: %w", err)
	}
	return n, nil
}
