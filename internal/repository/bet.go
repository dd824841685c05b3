package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"wager-tracker/internal/model"
)

// BetRepo handles bet persistence.
type BetRepo struct {
	db DBTX
}

// NewBetRepository creates a new BetRepo instance.
func NewBetRepository(db DBTX) *BetRepo {
	return &BetRepo{db: db}
}

const betSelect = `
	SELECT b.id, b.user_id, b.game_id, b.bet_type, b.amount, b.odds, b.potential_payout, b.line,
		b.selection, b.description, b.status, b.volatility, b.created_at, b.settled_at, b.actual_payout,
		g.id, COALESCE(g.external_id, ''), g.home_team_id, g.away_team_id, g.game_time, g.sport,
		g.status, g.home_score, g.away_score, g.game_period, g.last_updated,
		h.id, COALESCE(h.external_id, ''), h.name, h.abbreviation, h.city, h.sport, h.logo_url, h.is_active,
		a.id, COALESCE(a.external_id, ''), a.name, a.abbreviation, a.city, a.sport, a.logo_url, a.is_active
	FROM bets b
	JOIN games g ON g.id = b.game_id
	JOIN teams h ON h.id = g.home_team_id
	JOIN teams a ON a.id = g.away_team_id
`

func scanBet(row pgx.Row) (*model.Bet, error) {
	var b model.Bet
	var g model.Game
	var home, away model.Team
	err := row.Scan(
		&b.ID, &b.UserID, &b.GameID, &b.Type, &b.Amount, &b.Odds, &b.PotentialPayout, &b.Line,
		&b.Selection, &b.Description, &b.Status, &b.Volatility, &b.CreatedAt, &b.SettledAt, &b.ActualPayout,
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
	b.Game = &g
	return &b, nil
}

func (r *BetRepo) queryBets(ctx context.Context, query string, args ...any) ([]*model.Bet, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bets: %w", err)
	}
	defer rows.Close()

	var bets []*model.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bets: %w", err)
	}
	return bets, nil
}

// Create inserts a bet and sets its ID and CreatedAt.
func (r *BetRepo) Create(ctx context.Context, bet *model.Bet) error {
	const query = `
		INSERT INTO bets (user_id, game_id, bet_type, amount, odds, potential_payout, line,
			selection, description, status, volatility, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	if bet.CreatedAt.IsZero() {
		bet.CreatedAt = time.Now().UTC()
	}
	err := r.db.QueryRow(ctx, query,
		bet.UserID, bet.GameID, bet.Type, bet.Amount, bet.Odds, bet.PotentialPayout, bet.Line,
		bet.Selection, bet.Description, bet.Status, bet.Volatility, bet.CreatedAt,
	).Scan(&bet.ID)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return ErrGameNotFound
		}
		return fmt.Errorf("failed to create bet: %w", err)
	}
	return nil
}

// GetByID retrieves a bet with its game and teams.
func (r *BetRepo) GetByID(ctx context.Context, id int64) (*model.Bet, error) {
	b, err := scanBet(r.db.QueryRow(ctx, betSelect+` WHERE b.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBetNotFound
		}
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	return b, nil
}

// ListByUser returns a user's bets, newest first.
func (r *BetRepo) ListByUser(ctx context.Context, userID int64, scope model.BetScope) ([]*model.Bet, error) {
	query := betSelect + ` WHERE b.user_id = $1`
	switch scope {
	case model.ScopeActive:
		query += ` AND b.status = 'Active'`
	case model.ScopeSettled:
		query += ` AND b.status <> 'Active'`
	}
	query += ` ORDER BY b.created_at DESC, b.id DESC`

	return r.queryBets(ctx, query, userID)
}

// ListByUserAndGame returns a user's bets on one game, newest first.
func (r *BetRepo) ListByUserAndGame(ctx context.Context, userID, gameID int64) ([]*model.Bet, error) {
	query := betSelect + ` WHERE b.user_id = $1 AND b.game_id = $2 ORDER BY b.created_at DESC, b.id DESC`
	return r.queryBets(ctx, query, userID, gameID)
}

// Settle implements BetRepository.
func (r *BetRepo) Settle(ctx context.Context, id int64, status model.BetStatus, payout decimal.Decimal, at time.Time) error {
	const query = `
		UPDATE bets
		SET status = $2, actual_payout = $3, settled_at = $4
		WHERE id = $1 AND status = 'Active'
	`

	result, err := r.db.Exec(ctx, query, id, status, payout, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to settle bet: %w", err)
	}
	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrBetNotActive
	}
	return nil
}

// UpdateVolatility sets the display tier of a bet.
func (r *BetRepo) UpdateVolatility(ctx context.Context, id int64, v model.Volatility) error {
	result, err := r.db.Exec(ctx, `UPDATE bets SET volatility = $2 WHERE id = $1`, id, v)
	if err != nil {
		return fmt.Errorf("failed to update volatility: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrBetNotFound
	}
	return nil
}

// Delete removes a bet.
func (r *BetRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM bets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bet: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrBetNotFound
	}
	return nil
}
