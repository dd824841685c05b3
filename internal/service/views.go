package service

import (
	"math"
	"time"

	"wager-tracker/internal/model"
	"wager-tracker/internal/schedule"
	"wager-tracker/internal/timezone"
)

// GameView is a game with its time rendered in the caller's zone.
type GameView struct {
	*model.Game
	Matchup       string `json:"matchup"`
	FullName      string `json:"fullName"`
	GameTimeLocal string `json:"gameTimeLocal"`
	TimeZone      string `json:"timeZone"`
}

// NewGameView renders g for zone.
func NewGameView(g *model.Game, zone timezone.Zone) GameView {
	return GameView{
		Game:          g,
		Matchup:       g.Matchup(),
		FullName:      g.FullName(),
		GameTimeLocal: zone.FormatLocal(g.GameTime),
		TimeZone:      zone.ID,
	}
}

// Filters echoes the resolved window of a game listing.
type Filters struct {
	Window          string `json:"window"`
	FromTime        string `json:"fromTime"`
	ToTime          string `json:"toTime"`
	TimeZone        string `json:"timeZone"`
	CurrentUserTime string `json:"currentUserTime"`
	Sport           string `json:"sport"`
	Status          string `json:"status"`
}

// GameList is the result of a windowed game query.
type GameList struct {
	Count   int        `json:"count"`
	Games   []GameView `json:"games"`
	Filters Filters    `json:"filters"`
}

func newGameList(games []*model.Game, zone timezone.Zone, plan *schedule.Plan, sportKey, status string) *GameList {
	out := &GameList{
		Count: len(games),
		Games: make([]GameView, 0, len(games)),
		Filters: Filters{
			TimeZone: zone.ID,
			Sport:    sportKey,
			Status:   status,
		},
	}
	for _, g := range games {
		out.Games = append(out.Games, NewGameView(g, zone))
	}
	if plan != nil {
		out.Filters.Window = plan.Description()
		out.Filters.FromTime = plan.FromLabel
		out.Filters.ToTime = plan.ToLabel
		out.Filters.CurrentUserTime = plan.NowLabel
	}
	return out
}

// Opportunity is a scheduled game starting soon enough to bet on.
type Opportunity struct {
	GameID         int64       `json:"id"`
	Matchup        string      `json:"matchup"`
	FullName       string      `json:"fullName"`
	Sport          string      `json:"sport"`
	GameTime       time.Time   `json:"gameTimeUtc"`
	GameTimeLocal  string      `json:"gameTime"`
	HoursUntilGame float64     `json:"hoursUntilGame"`
	HomeTeam       *model.Team `json:"homeTeam"`
	AwayTeam       *model.Team `json:"awayTeam"`
}

// OpportunityList is the betting-opportunities response.
type OpportunityList struct {
	TimeWindow  string        `json:"timeWindow"`
	TimeZone    string        `json:"timeZone"`
	CurrentTime string        `json:"currentTime"`
	Count       int           `json:"count"`
	Games       []Opportunity `json:"games"`
}

// hoursUntil rounds the hours from now to t to one decimal.
func hoursUntil(now, t time.Time) float64 {
	return math.Round(t.Sub(now).Hours()*10) / 10
}

// ZoneInfo describes the caller's zone and the catalog.
type ZoneInfo struct {
	UserTimeZone       string          `json:"userTimeZone"`
	DisplayName        string          `json:"displayName"`
	UTCTime            string          `json:"utcTime"`
	UserTime           string          `json:"userTime"`
	AvailableTimeZones []timezone.Zone `json:"availableTimeZones"`
}

// BetView is a bet with display fields in the caller's zone.
type BetView struct {
	*model.Bet
	HomeTeam       string           `json:"homeTeam"`
	AwayTeam       string           `json:"awayTeam"`
	Matchup        string           `json:"matchup"`
	GameTimeLocal  string           `json:"gameTime"`
	GameStatus     model.GameStatus `json:"gameStatus"`
	HomeScore      *int             `json:"homeScore"`
	AwayScore      *int             `json:"awayScore"`
	CreatedAtLocal string           `json:"createdAtLocal"`
	SettledAtLocal string           `json:"settledAtLocal,omitempty"`
	AuraColor      string           `json:"auraColor"`
	AuraSize       string           `json:"auraSize"`
	ShouldPulse    bool             `json:"shouldPulse"`
}

// NewBetView renders b for zone. b.Game may be nil.
func NewBetView(b *model.Bet, zone timezone.Zone) BetView {
	v := BetView{
		Bet:            b,
		CreatedAtLocal: zone.FormatLocal(b.CreatedAt),
		AuraColor:      b.AuraColor(),
		AuraSize:       b.AuraSize(),
		ShouldPulse:    b.ShouldPulse(),
	}
	if b.SettledAt != nil {
		v.SettledAtLocal = zone.FormatLocal(*b.SettledAt)
	}
	if g := b.Game; g != nil {
		if g.HomeTeam != nil {
			v.HomeTeam = g.HomeTeam.Name
		}
		if g.AwayTeam != nil {
			v.AwayTeam = g.AwayTeam.Name
		}
		v.Matchup = g.Matchup()
		v.GameTimeLocal = zone.FormatLocal(g.GameTime)
		v.GameStatus = g.Status
		v.HomeScore, v.AwayScore = g.HomeScore, g.AwayScore
	}
	return v
}

// NewBetViews renders a slice of bets.
func NewBetViews(bets []*model.Bet, zone timezone.Zone) []BetView {
	out := make([]BetView, 0, len(bets))
	for _, b := range bets {
		out = append(out, NewBetView(b, zone))
	}
	return out
}
