package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

var migrations = []struct {
	name string
	sql  string
}{
	{"users table", `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(50) NOT NULL,
			email VARCHAR(255) NOT NULL,
			password_hash TEXT NOT NULL,
			time_zone VARCHAR(64) NOT NULL DEFAULT 'America/New_York',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_premium BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(LOWER(username));
	`},
	{"teams table", `
		CREATE TABLE IF NOT EXISTS teams (
			id BIGSERIAL PRIMARY KEY,
			external_id VARCHAR(50),
			name VARCHAR(100) NOT NULL,
			abbreviation VARCHAR(10) NOT NULL,
			city VARCHAR(100) NOT NULL DEFAULT '',
			sport VARCHAR(10) NOT NULL,
			logo_url TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			UNIQUE (name, sport)
		);
	`},
	{"games table", `
		CREATE TABLE IF NOT EXISTS games (
			id BIGSERIAL PRIMARY KEY,
			external_id VARCHAR(50),
			home_team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE RESTRICT,
			away_team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE RESTRICT,
			game_time TIMESTAMPTZ NOT NULL,
			sport VARCHAR(10) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'Scheduled',
			home_score INT,
			away_score INT,
			game_period VARCHAR(20),
			last_updated TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_games_game_time ON games(game_time);
		CREATE INDEX IF NOT EXISTS idx_games_matchup ON games(home_team_id, away_team_id, game_time);
	`},
	{"bets table", `
		CREATE TABLE IF NOT EXISTS bets (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			game_id BIGINT NOT NULL REFERENCES games(id) ON DELETE RESTRICT,
			bet_type VARCHAR(20) NOT NULL,
			amount NUMERIC(18,2) NOT NULL,
			odds INT NOT NULL,
			potential_payout NUMERIC(18,2) NOT NULL,
			line NUMERIC(8,2),
			selection VARCHAR(50),
			description VARCHAR(500),
			status VARCHAR(20) NOT NULL DEFAULT 'Active',
			volatility VARCHAR(20) NOT NULL DEFAULT 'Medium',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			settled_at TIMESTAMPTZ,
			actual_payout NUMERIC(18,2)
		);
		CREATE INDEX IF NOT EXISTS idx_bets_user_time ON bets(user_id, created_at DESC);
	`},
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db DBTX) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := db.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
		}
		log.Info().Int("migration", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
