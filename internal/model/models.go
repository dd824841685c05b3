// Package model defines the data models for the wager tracker.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered account.
// TimeZone holds one of the catalog zone ids (see package timezone).
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	TimeZone     string    `db:"time_zone" json:"timeZone"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	IsPremium    bool      `db:"is_premium" json:"isPremium"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Team is identified by (Name, Sport). Abbreviation, City and LogoURL are
// descriptive and may be refreshed by a team sync.
type Team struct {
	ID           int64   `db:"id" json:"id"`
	ExternalID   string  `db:"external_id" json:"externalId,omitempty"`
	Name         string  `db:"name" json:"name"`
	Abbreviation string  `db:"abbreviation" json:"abbreviation"`
	City         string  `db:"city" json:"city"`
	Sport        string  `db:"sport" json:"sport"`
	LogoURL      *string `db:"logo_url" json:"logoUrl,omitempty"`
	IsActive     bool    `db:"is_active" json:"isActive"`
}

// Game is a scheduled or played matchup between two teams.
// GameTime is always a UTC instant.
type Game struct {
	ID          int64      `db:"id" json:"id"`
	ExternalID  string     `db:"external_id" json:"externalId,omitempty"`
	HomeTeamID  int64      `db:"home_team_id" json:"homeTeamId"`
	AwayTeamID  int64      `db:"away_team_id" json:"awayTeamId"`
	GameTime    time.Time  `db:"game_time" json:"gameTime"`
	Sport       string     `db:"sport" json:"sport"`
	Status      GameStatus `db:"status" json:"status"`
	HomeScore   *int       `db:"home_score" json:"homeScore"`
	AwayScore   *int       `db:"away_score" json:"awayScore"`
	GamePeriod  *string    `db:"game_period" json:"gamePeriod,omitempty"`
	LastUpdated *time.Time `db:"last_updated" json:"lastUpdated,omitempty"`

	// Populated by read queries that join teams.
	HomeTeam *Team `db:"-" json:"homeTeam,omitempty"`
	AwayTeam *Team `db:"-" json:"awayTeam,omitempty"`
}

// Bet is a user-entered wager on a single game.
// PotentialPayout is fixed at creation; ActualPayout is set once at settlement.
type Bet struct {
	ID              int64            `db:"id" json:"id"`
	UserID          int64            `db:"user_id" json:"userId"`
	GameID          int64            `db:"game_id" json:"gameId"`
	Type            BetType          `db:"bet_type" json:"betType"`
	Amount          decimal.Decimal  `db:"amount" json:"amount"`
	Odds            int              `db:"odds" json:"odds"`
	PotentialPayout decimal.Decimal  `db:"potential_payout" json:"potentialPayout"`
	Line            *decimal.Decimal `db:"line" json:"line,omitempty"`
	Selection       *string          `db:"selection" json:"selection,omitempty"`
	Description     *string          `db:"description" json:"description,omitempty"`
	Status          BetStatus        `db:"status" json:"status"`
	Volatility      Volatility       `db:"volatility" json:"volatility"`
	CreatedAt       time.Time        `db:"created_at" json:"createdAt"`
	SettledAt       *time.Time       `db:"settled_at" json:"settledAt,omitempty"`
	ActualPayout    *decimal.Decimal `db:"actual_payout" json:"actualPayout,omitempty"`

	Game *Game `db:"-" json:"game,omitempty"`
}

// IsSettled reports whether the bet has left the Active state.
func (b *Bet) IsSettled() bool {
	return b.Status != BetActive
}

// AuraColor is the display color of a bet card.
func (b *Bet) AuraColor() string {
	switch b.Status {
	case BetWon:
		return "green"
	case BetLost:
		return "red"
	default:
		return "yellow"
	}
}

// AuraSize is the display size of a bet card; riskier bets render smaller.
func (b *Bet) AuraSize() string {
	switch b.Volatility {
	case VolatilityLow:
		return "large"
	case VolatilityHigh:
		return "small"
	case VolatilityExtreme:
		return "tiny"
	default:
		return "medium"
	}
}

// ShouldPulse reports whether an open bet is volatile enough to animate.
func (b *Bet) ShouldPulse() bool {
	return b.Status == BetActive && b.Volatility.Rank() >= VolatilityHigh.Rank()
}

// Matchup returns the "AWAY @ HOME" label using team abbreviations.
// It requires HomeTeam and AwayTeam to be loaded.
func (g *Game) Matchup() string {
	if g.HomeTeam == nil || g.AwayTeam == nil {
		return ""
	}
	return g.AwayTeam.Abbreviation + " @ " + g.HomeTeam.Abbreviation
}

// FullName returns the "Away Name @ Home Name" label.
func (g *Game) FullName() string {
	if g.HomeTeam == nil || g.AwayTeam == nil {
		return ""
	}
	return g.AwayTeam.Name + " @ " + g.HomeTeam.Name
}
