package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wager-tracker/internal/model"
)

// TeamRepo handles team persistence.
type TeamRepo struct {
	db DBTX
}

// NewTeamRepository creates a new TeamRepo instance.
func NewTeamRepository(db DBTX) *TeamRepo {
	return &TeamRepo{db: db}
}

const teamColumns = `id, COALESCE(external_id, ''), name, abbreviation, city, sport, logo_url, is_active`

func scanTeam(row pgx.Row) (*model.Team, error) {
	var t model.Team
	err := row.Scan(
		&t.ID,
		&t.ExternalID,
		&t.Name,
		&t.Abbreviation,
		&t.City,
		&t.Sport,
		&t.LogoURL,
		&t.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByID retrieves a team by id.
func (r *TeamRepo) GetByID(ctx context.Context, id int64) (*model.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`

	t, err := scanTeam(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return t, nil
}

// FindByNameSport retrieves a team by its identity key.
func (r *TeamRepo) FindByNameSport(ctx context.Context, name, sport string) (*model.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE name = $1 AND sport = $2`

	t, err := scanTeam(r.db.QueryRow(ctx, query, name, sport))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}
	return t, nil
}

// Create inserts a team and sets its ID.
func (r *TeamRepo) Create(ctx context.Context, team *model.Team) error {
	const query = `
		INSERT INTO teams (external_id, name, abbreviation, city, sport, logo_url, is_active)
		VALUES (NULLIF($1, ''), $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		team.ExternalID, team.Name, team.Abbreviation, team.City, team.Sport, team.LogoURL, team.IsActive,
	).Scan(&team.ID)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return fmt.Errorf("%w: team %s/%s", ErrDuplicate, team.Name, team.Sport)
		}
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

// UpdateDescriptive refreshes the non-identity fields of a team.
func (r *TeamRepo) UpdateDescriptive(ctx context.Context, id int64, abbreviation, city string, logoURL *string) error {
	const query = `
		UPDATE teams
		SET abbreviation = $2, city = $3, logo_url = $4
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, abbreviation, city, logoURL)
	if err != nil {
		return fmt.Errorf("failed to update team: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTeamNotFound
	}
	return nil
}

// List returns teams ordered by name, optionally limited to one sport.
func (r *TeamRepo) List(ctx context.Context, sport string) ([]*model.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE ($1 = '' OR sport = $1) ORDER BY sport, name`

	rows, err := r.db.Query(ctx, query, sport)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []*model.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teams: %w", err)
	}
	return teams, nil
}

// Count returns the number of teams.
func (r *TeamRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM teams`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count teams: %w", err)
	}
	return n, nil
}
