package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"wager-tracker/internal/events"
	"wager-tracker/internal/model"
	"wager-tracker/internal/repository"
	"wager-tracker/internal/schedule"
	"wager-tracker/internal/timezone"
)

// Query limits.
const (
	MaxNextHours          = schedule.MaxHours
	DefaultCompletedLimit = 50
	statusFilterAll       = "all"
	sportFilterAll        = "all"
	defaultStatusLabel    = "scheduled"
)

// UpcomingQuery selects the window and filters of an upcoming-games listing.
// Hours takes precedence over Days; with neither the default window applies.
// An empty Status means Scheduled and "all" disables the status filter.
type UpcomingQuery struct {
	Hours  int
	Days   int
	Sport  string
	Status string
}

// ScoreUpdate is a manual score override. A nil Status keeps the current one.
type ScoreUpdate struct {
	HomeScore *int
	AwayScore *int
	Status    *model.GameStatus
	Period    *string
}

// GameService answers game queries in the caller's zone. Every window is
// planned by package schedule and filtered on UTC instants.
type GameService struct {
	store  repository.Store
	events events.Publisher
	clock  Clock
}

// NewGameService creates a GameService.
func NewGameService(store repository.Store, publisher events.Publisher, clock Clock) *GameService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &GameService{store: store, events: publisher, clock: clockOrSystem(clock)}
}

func normalizeSport(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, sportFilterAll) {
		return ""
	}
	return strings.ToUpper(s)
}

func sportLabel(s string) string {
	if s == "" {
		return sportFilterAll
	}
	return s
}

// parseStatusFilter maps the status query value. Empty means Scheduled.
func parseStatusFilter(s string) ([]model.GameStatus, string, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return []model.GameStatus{model.GameScheduled}, defaultStatusLabel, nil
	case strings.EqualFold(s, statusFilterAll):
		return nil, statusFilterAll, nil
	}
	st, err := model.ParseGameStatus(s)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return []model.GameStatus{st}, strings.ToLower(string(st)), nil
}

// windowed runs a planned query.
func (s *GameService) windowed(ctx context.Context, zone timezone.Zone, w schedule.Window, sportKey string, statuses []model.GameStatus, statusLabel string) (*GameList, error) {
	plan, err := schedule.Build(s.clock.Now(), zone, w)
	if err != nil {
		return nil, err
	}
	sportKey = normalizeSport(sportKey)
	games, err := s.store.Games().List(ctx, repository.GameFilter{
		From:     plan.Start,
		To:       plan.End,
		Sport:    sportKey,
		Statuses: statuses,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return newGameList(games, zone, &plan, sportLabel(sportKey), statusLabel), nil
}

// All lists every game, earliest first.
func (s *GameService) All(ctx context.Context, zone timezone.Zone) (*GameList, error) {
	games, err := s.store.Games().List(ctx, repository.GameFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return newGameList(games, zone, nil, sportFilterAll, statusFilterAll), nil
}

// Upcoming lists games in the requested window, Scheduled only unless the
// query overrides the status.
func (s *GameService) Upcoming(ctx context.Context, zone timezone.Zone, q UpcomingQuery) (*GameList, error) {
	w := schedule.Default()
	switch {
	case q.Hours != 0:
		w = schedule.NextHours(q.Hours)
	case q.Days != 0:
		w = schedule.NextDays(q.Days)
	}
	statuses, label, err := parseStatusFilter(q.Status)
	if err != nil {
		return nil, err
	}
	return s.windowed(ctx, zone, w, q.Sport, statuses, label)
}

// Today lists every game on the caller's local calendar day.
func (s *GameService) Today(ctx context.Context, zone timezone.Zone, sportKey string) (*GameList, error) {
	return s.windowed(ctx, zone, schedule.Today(), sportKey, nil, statusFilterAll)
}

// OnDate lists every game on a local calendar date given as YYYY-MM-DD.
func (s *GameService) OnDate(ctx context.Context, zone timezone.Zone, date, sportKey string) (*GameList, error) {
	w, err := schedule.ParseDate(date)
	if err != nil {
		return nil, err
	}
	return s.windowed(ctx, zone, w, sportKey, nil, statusFilterAll)
}

// NextHours lists Scheduled games starting within n hours, 1 <= n <= 168.
func (s *GameService) NextHours(ctx context.Context, zone timezone.Zone, n int, sportKey string) (*GameList, error) {
	if n < 1 || n > MaxNextHours {
		return nil, fmt.Errorf("%w: hours must be between 1 and %d", schedule.ErrInvalidWindow, MaxNextHours)
	}
	return s.windowed(ctx, zone, schedule.NextHours(n), sportKey,
		[]model.GameStatus{model.GameScheduled}, defaultStatusLabel)
}

// BettingOpportunities lists Scheduled games starting within hoursAhead
// (default 12) with the time left until kickoff.
func (s *GameService) BettingOpportunities(ctx context.Context, zone timezone.Zone, hoursAhead int) (*OpportunityList, error) {
	if hoursAhead == 0 {
		hoursAhead = schedule.DefaultOpportunityHours
	}
	if hoursAhead < 1 || hoursAhead > MaxNextHours {
		return nil, fmt.Errorf("%w: hoursAhead must be between 1 and %d", schedule.ErrInvalidWindow, MaxNextHours)
	}
	plan, err := schedule.Build(s.clock.Now(), zone, schedule.NextHours(hoursAhead))
	if err != nil {
		return nil, err
	}
	games, err := s.store.Games().List(ctx, repository.GameFilter{
		From:     plan.Start,
		To:       plan.End,
		Statuses: []model.GameStatus{model.GameScheduled},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	out := &OpportunityList{
		TimeWindow:  plan.Description(),
		TimeZone:    zone.ID,
		CurrentTime: plan.NowLabel,
		Count:       len(games),
		Games:       make([]Opportunity, 0, len(games)),
	}
	for _, g := range games {
		out.Games = append(out.Games, Opportunity{
			GameID:         g.ID,
			Matchup:        g.Matchup(),
			FullName:       g.FullName(),
			Sport:          g.Sport,
			GameTime:       g.GameTime,
			GameTimeLocal:  zone.FormatLocal(g.GameTime),
			HoursUntilGame: hoursUntil(plan.Now, g.GameTime),
			HomeTeam:       g.HomeTeam,
			AwayTeam:       g.AwayTeam,
		})
	}
	return out, nil
}

// Live lists games in progress or at halftime.
func (s *GameService) Live(ctx context.Context, zone timezone.Zone) (*GameList, error) {
	games, err := s.store.Games().List(ctx, repository.GameFilter{
		Statuses: []model.GameStatus{model.GameLive, model.GameHalftime},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list live games: %w", err)
	}
	return newGameList(games, zone, nil, sportFilterAll, "live"), nil
}

// Completed lists the most recent Final games, latest first.
func (s *GameService) Completed(ctx context.Context, zone timezone.Zone, limit int) (*GameList, error) {
	if limit <= 0 {
		limit = DefaultCompletedLimit
	}
	games, err := s.store.Games().List(ctx, repository.GameFilter{
		Statuses:   []model.GameStatus{model.GameFinal},
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list completed games: %w", err)
	}
	return newGameList(games, zone, nil, sportFilterAll, "final"), nil
}

// BySport lists every game of one sport, earliest first.
func (s *GameService) BySport(ctx context.Context, zone timezone.Zone, sportKey string) (*GameList, error) {
	sportKey = normalizeSport(sportKey)
	if sportKey == "" {
		return nil, fmt.Errorf("%w: sport is required", ErrValidationFailed)
	}
	games, err := s.store.Games().List(ctx, repository.GameFilter{Sport: sportKey})
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return newGameList(games, zone, nil, sportKey, statusFilterAll), nil
}

// Get returns one game.
func (s *GameService) Get(ctx context.Context, zone timezone.Zone, id int64) (*GameView, error) {
	g, err := s.store.Games().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := NewGameView(g, zone)
	return &v, nil
}

// UpdateScore applies a manual score override and stamps last-updated.
func (s *GameService) UpdateScore(ctx context.Context, id int64, u ScoreUpdate) (*model.Game, error) {
	if (u.HomeScore != nil && *u.HomeScore < 0) || (u.AwayScore != nil && *u.AwayScore < 0) {
		return nil, fmt.Errorf("%w: scores cannot be negative", ErrValidationFailed)
	}

	var game *model.Game
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		g, err := tx.Games().GetByID(ctx, id)
		if err != nil {
			return err
		}
		status := g.Status
		if u.Status != nil {
			status = *u.Status
		}
		now := s.clock.Now().UTC()
		if err := tx.Games().UpdateState(ctx, id, status, u.HomeScore, u.AwayScore, u.Period, now); err != nil {
			return err
		}
		game, err = tx.Games().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int64("game_id", id).Str("status", string(game.Status)).Msg("Game score overridden")
	if evt, err := newGameEvent(events.TypeGameUpdated, game); err == nil {
		if err := s.events.Publish(ctx, evt); err != nil {
			log.Warn().Err(err).Int64("game_id", id).Msg("Failed to publish score override")
		}
	}
	return game, nil
}

// TimeZoneInfo reports the caller's zone, the current time in UTC and in the
// zone, and the supported catalog.
func (s *GameService) TimeZoneInfo(zone timezone.Zone) ZoneInfo {
	now := s.clock.Now().UTC()
	return ZoneInfo{
		UserTimeZone:       zone.ID,
		DisplayName:        zone.DisplayName,
		UTCTime:            now.Format(timezone.LabelLayout),
		UserTime:           zone.FormatLabel(now),
		AvailableTimeZones: timezone.Catalog(),
	}
}
