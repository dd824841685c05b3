package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"wager-tracker/internal/events"
	"wager-tracker/internal/feed"
	"wager-tracker/internal/model"
	"wager-tracker/internal/pkg/lock"
	"wager-tracker/internal/pkg/metrics"
	"wager-tracker/internal/repository"
	"wager-tracker/internal/sport"
)

// Sync scopes.
const (
	ScopeTeams = "teams"
	ScopeGames = "games"
	ScopeLive  = "live"
	ScopeAll   = "all"
)

const (
	lockSyncGames = "sync:games"
	lockSyncTeams = "sync:teams"
)

// SportReport is the outcome of one sync pass for one league.
type SportReport struct {
	Sport         string `json:"sport"`
	Scope         string `json:"scope"`
	Fetched       int    `json:"fetched"`
	Created       int    `json:"created"`
	Updated       int    `json:"updated"`
	Unchanged     int    `json:"unchanged"`
	Skipped       int    `json:"skipped"`
	UpstreamError string `json:"upstreamError,omitempty"`
}

// SyncReport aggregates a sync pass over every followed league.
type SyncReport struct {
	Scope      string        `json:"scope"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Sports     []SportReport `json:"sports"`
	Created    int           `json:"created"`
	Updated    int           `json:"updated"`
	Unchanged  int           `json:"unchanged"`
	Skipped    int           `json:"skipped"`
}

func (r *SyncReport) add(sr SportReport) {
	r.Sports = append(r.Sports, sr)
	r.Created += sr.Created
	r.Updated += sr.Updated
	r.Unchanged += sr.Unchanged
	r.Skipped += sr.Skipped
}

func (sr *SportReport) tally(outcome string) {
	switch outcome {
	case metrics.OutcomeCreated:
		sr.Created++
	case metrics.OutcomeUpdated:
		sr.Updated++
	case metrics.OutcomeUnchanged:
		sr.Unchanged++
	default:
		sr.Skipped++
	}
}

// SyncDeps holds the collaborators of SyncService.
type SyncDeps struct {
	Store   repository.Store
	Feed    feed.Source
	Leagues *sport.Registry
	Locks   *lock.KeyLock
	Events  events.Publisher
	Metrics *metrics.Recorder
	Clock   Clock
}

// SyncService reconciles the upstream feed into the store.
//
// Feeds for all leagues are fetched concurrently; merging is serialized per
// scope by a keyed lock, and a second trigger of a running scope fails with
// ErrSyncInProgress instead of queueing. Each record is merged in its own
// unit of work so one bad record never rolls back the rest of the batch.
type SyncService struct {
	store   repository.Store
	feed    feed.Source
	leagues *sport.Registry
	locks   *lock.KeyLock
	events  events.Publisher
	metrics *metrics.Recorder
	clock   Clock
}

// NewSyncService creates a SyncService.
func NewSyncService(deps SyncDeps) *SyncService {
	s := &SyncService{
		store:   deps.Store,
		feed:    deps.Feed,
		leagues: deps.Leagues,
		locks:   deps.Locks,
		events:  deps.Events,
		metrics: deps.Metrics,
		clock:   clockOrSystem(deps.Clock),
	}
	if s.leagues == nil {
		s.leagues = sport.NewDefaultRegistry()
	}
	if s.locks == nil {
		s.locks = lock.New()
	}
	if s.events == nil {
		s.events = events.Noop{}
	}
	return s
}

// SyncTeams refreshes every league's team list.
func (s *SyncService) SyncTeams(ctx context.Context) (*SyncReport, error) {
	return s.run(ctx, lockSyncTeams, ScopeTeams, s.syncTeams)
}

// SyncGames reconciles every league's scoreboard, creating missing teams and
// games and updating the state of known games.
func (s *SyncService) SyncGames(ctx context.Context) (*SyncReport, error) {
	return s.run(ctx, lockSyncGames, ScopeGames, s.syncGames)
}

// SyncLiveScores updates only games the feed reports as started. It never
// creates teams or games.
func (s *SyncService) SyncLiveScores(ctx context.Context) (*SyncReport, error) {
	return s.run(ctx, lockSyncGames, ScopeLive, s.syncLive)
}

// SyncAll runs a team sync followed by a game sync.
func (s *SyncService) SyncAll(ctx context.Context) (*SyncReport, error) {
	started := s.clock.Now().UTC()

	teams, err := s.SyncTeams(ctx)
	if err != nil {
		return nil, err
	}
	games, err := s.SyncGames(ctx)
	if err != nil {
		return nil, err
	}

	rep := &SyncReport{Scope: ScopeAll, StartedAt: started}
	for _, sr := range teams.Sports {
		rep.add(sr)
	}
	for _, sr := range games.Sports {
		rep.add(sr)
	}
	rep.FinishedAt = s.clock.Now().UTC()
	return rep, nil
}

// feedCache is implemented by feed sources that keep a response cache.
type feedCache interface {
	Invalidate(ctx context.Context, league sport.League) error
}

// RefreshAll drops any cached feed responses and then runs SyncAll, so a
// manual sync always reads the upstream feed.
func (s *SyncService) RefreshAll(ctx context.Context) (*SyncReport, error) {
	if c, ok := s.feed.(feedCache); ok {
		for _, league := range s.leagues.List() {
			if err := c.Invalidate(ctx, league); err != nil {
				log.Warn().Err(err).Str("sport", league.Key).Msg("Failed to drop cached feed data")
			}
		}
	}
	return s.SyncAll(ctx)
}

func (s *SyncService) run(ctx context.Context, key, scope string, pass func(context.Context, *SyncReport) error) (*SyncReport, error) {
	rep := &SyncReport{Scope: scope, StartedAt: s.clock.Now().UTC()}

	err := s.locks.WithTryLock(key, func() error {
		return pass(ctx, rep)
	})
	if errors.Is(err, lock.ErrLocked) {
		return nil, ErrSyncInProgress
	}

	rep.FinishedAt = s.clock.Now().UTC()
	s.metrics.ObserveSync(scope, rep.FinishedAt.Sub(rep.StartedAt).Seconds())
	if err != nil {
		log.Error().Err(err).Str("scope", scope).Msg("Sync aborted")
		return nil, fmt.Errorf("%s sync failed: %w", scope, err)
	}

	log.Info().
		Str("scope", scope).
		Int("created", rep.Created).
		Int("updated", rep.Updated).
		Int("unchanged", rep.Unchanged).
		Int("skipped", rep.Skipped).
		Dur("took", rep.FinishedAt.Sub(rep.StartedAt)).
		Msg("Sync finished")
	return rep, nil
}

type fetchResult[T any] struct {
	league sport.League
	items  []T
	err    error
}

// fetchAll calls fetch for every league concurrently. Errors are kept per
// league; the group itself never fails.
func fetchAll[T any](ctx context.Context, leagues []sport.League, fetch func(context.Context, sport.League) ([]T, error)) []fetchResult[T] {
	results := make([]fetchResult[T], len(leagues))
	var g errgroup.Group
	for i, l := range leagues {
		g.Go(func() error {
			items, err := fetch(ctx, l)
			results[i] = fetchResult[T]{league: l, items: items, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *SyncService) upstreamFailed(sr *SportReport, err error) {
	sr.UpstreamError = err.Error()
	s.metrics.FetchError(sr.Sport)
	log.Warn().Err(err).Str("sport", sr.Sport).Str("scope", sr.Scope).Msg("Feed unavailable, skipping league")
}

func (s *SyncService) record(sr *SportReport, outcome string) {
	sr.tally(outcome)
	s.metrics.SyncRecord(sr.Sport, outcome)
}

func (s *SyncService) publish(ctx context.Context, evts []events.Event) {
	if len(evts) == 0 {
		return
	}
	if err := s.events.Publish(ctx, evts...); err != nil {
		log.Warn().Err(err).Int("count", len(evts)).Msg("Failed to publish events")
	}
}

// ==================== Teams ====================

func (s *SyncService) syncTeams(ctx context.Context, rep *SyncReport) error {
	for _, f := range fetchAll(ctx, s.leagues.List(), s.feed.Teams) {
		sr := SportReport{Sport: f.league.Key, Scope: ScopeTeams}
		if f.err != nil {
			s.upstreamFailed(&sr, f.err)
			rep.add(sr)
			continue
		}
		sr.Fetched = len(f.items)

		// One unit of work per league, one savepoint per team.
		var outcomes []string
		err := s.store.InTx(ctx, func(tx repository.Store) error {
			outcomes = outcomes[:0]
			for _, raw := range f.items {
				team := feed.NormalizeTeam(raw, f.league.Key)
				var outcome string
				err := tx.InTx(ctx, func(sp repository.Store) error {
					var err error
					outcome, err = refreshTeam(ctx, sp, team)
					return err
				})
				if err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return ctxErr
					}
					log.Warn().Err(err).Str("sport", f.league.Key).Str("team", team.Name).Msg("Skipping team")
					outcome = metrics.OutcomeSkipped
				}
				outcomes = append(outcomes, outcome)
			}
			return nil
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			log.Error().Err(err).Str("sport", f.league.Key).Msg("Team sync commit failed")
			sr.Skipped = sr.Fetched
			rep.add(sr)
			continue
		}
		for _, o := range outcomes {
			s.record(&sr, o)
		}
		rep.add(sr)
	}
	return nil
}

// refreshTeam creates the team or refreshes its descriptive fields. Identity
// (name, sport) is never changed.
func refreshTeam(ctx context.Context, st repository.Store, ct feed.CanonicalTeam) (string, error) {
	existing, err := st.Teams().FindByNameSport(ctx, ct.Name, ct.Sport)
	if errors.Is(err, repository.ErrNotFound) {
		if err := st.Teams().Create(ctx, teamFromCanonical(ct)); err != nil {
			return "", err
		}
		return metrics.OutcomeCreated, nil
	}
	if err != nil {
		return "", err
	}

	abbr := ct.Abbreviation
	if abbr == feed.UnknownTeamAbbr {
		abbr = existing.Abbreviation
	}
	city := ct.City
	if city == "" {
		city = existing.City
	}
	logo := ct.LogoURL
	if logo == nil {
		logo = existing.LogoURL
	}
	if abbr == existing.Abbreviation && city == existing.City && strPtrEqual(logo, existing.LogoURL) {
		return metrics.OutcomeUnchanged, nil
	}
	if err := st.Teams().UpdateDescriptive(ctx, existing.ID, abbr, city, logo); err != nil {
		return "", err
	}
	return metrics.OutcomeUpdated, nil
}

func teamFromCanonical(ct feed.CanonicalTeam) *model.Team {
	return &model.Team{
		ExternalID:   ct.ExternalID,
		Name:         ct.Name,
		Abbreviation: ct.Abbreviation,
		City:         ct.City,
		Sport:        ct.Sport,
		LogoURL:      ct.LogoURL,
		IsActive:     true,
	}
}

// ==================== Games ====================

func (s *SyncService) syncGames(ctx context.Context, rep *SyncReport) error {
	for _, f := range fetchAll(ctx, s.leagues.List(), s.feed.Events) {
		sr := SportReport{Sport: f.league.Key, Scope: ScopeGames}
		if f.err != nil {
			s.upstreamFailed(&sr, f.err)
			rep.add(sr)
			continue
		}
		sr.Fetched = len(f.items)

		now := s.clock.Now().UTC()
		var evts []events.Event
		for _, raw := range f.items {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcome, evt, err := s.reconcileEvent(ctx, raw, f.league.Key, now)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn().Err(err).Str("sport", f.league.Key).Str("event", raw.ID).Msg("Skipping event")
				s.record(&sr, metrics.OutcomeSkipped)
				continue
			}
			s.record(&sr, outcome)
			if evt != nil {
				evts = append(evts, *evt)
			}
		}
		s.publish(ctx, evts)
		rep.add(sr)
	}
	return nil
}

// reconcileEvent merges one feed event. Teams are resolved and committed
// first so the game can reference durable ids; the game is then created or
// updated in a second unit of work.
func (s *SyncService) reconcileEvent(ctx context.Context, raw feed.RawEvent, sportKey string, now time.Time) (string, *events.Event, error) {
	cg, err := feed.NormalizeEvent(raw, sportKey, now)
	if err != nil {
		return "", nil, err
	}
	if cg.TimeFallback {
		log.Warn().Str("sport", sportKey).Str("event", cg.ExternalID).Str("date", raw.Date).
			Msg("Unparseable event date, using fetch time")
	}

	home, away, err := s.ensureTeams(ctx, cg)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve teams for event %s: %w", cg.ExternalID, err)
	}

	var (
		outcome string
		game    *model.Game
	)
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		outcome, game, err = mergeGame(ctx, tx, cg, home, away, now, true)
		return err
	})
	if err != nil {
		return "", nil, err
	}
	return outcome, s.gameEvent(outcome, game), nil
}

// ensureTeams finds or creates both teams of an event in one committed unit
// of work. A duplicate from a concurrent team sync is retried once as a find.
func (s *SyncService) ensureTeams(ctx context.Context, cg feed.CanonicalGame) (*model.Team, *model.Team, error) {
	var home, away *model.Team
	resolve := func() error {
		return s.store.InTx(ctx, func(tx repository.Store) error {
			var err error
			if home, err = findOrCreateTeam(ctx, tx, cg.Home); err != nil {
				return err
			}
			away, err = findOrCreateTeam(ctx, tx, cg.Away)
			return err
		})
	}
	err := resolve()
	if errors.Is(err, repository.ErrDuplicate) {
		err = resolve()
	}
	if err != nil {
		return nil, nil, err
	}
	return home, away, nil
}

func findOrCreateTeam(ctx context.Context, st repository.Store, ct feed.CanonicalTeam) (*model.Team, error) {
	team, err := st.Teams().FindByNameSport(ctx, ct.Name, ct.Sport)
	if err == nil {
		return team, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	team = teamFromCanonical(ct)
	if err := st.Teams().Create(ctx, team); err != nil {
		return nil, err
	}
	log.Info().Str("sport", ct.Sport).Str("team", ct.Name).Msg("Created team from feed")
	return team, nil
}

// matchDay is the UTC calendar day containing t, as a half-open range.
func matchDay(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// mergeGame creates or updates the game matching (home, away, UTC day of
// the incoming time). When several games match, the earliest is updated.
// game_time is only ever set on creation. With create=false a missing game
// is reported as repository.ErrGameNotFound.
func mergeGame(ctx context.Context, st repository.Store, cg feed.CanonicalGame, home, away *model.Team, now time.Time, create bool) (string, *model.Game, error) {
	from, to := matchDay(cg.GameTime)
	existing, err := st.Games().FindByMatchup(ctx, home.ID, away.ID, from, to)
	if errors.Is(err, repository.ErrNotFound) {
		if !create {
			return "", nil, err
		}
		game := &model.Game{
			ExternalID:  cg.ExternalID,
			HomeTeamID:  home.ID,
			AwayTeamID:  away.ID,
			GameTime:    cg.GameTime,
			Sport:       cg.Sport,
			Status:      cg.Status,
			HomeScore:   cg.HomeScore,
			AwayScore:   cg.AwayScore,
			GamePeriod:  cg.Period,
			LastUpdated: &now,
		}
		if err := st.Games().Create(ctx, game); err != nil {
			return "", nil, err
		}
		game.HomeTeam, game.AwayTeam = home, away
		return metrics.OutcomeCreated, game, nil
	}
	if err != nil {
		return "", nil, err
	}

	period := cg.Period
	if period == nil {
		period = existing.GamePeriod
	}
	if existing.Status == cg.Status &&
		intPtrEqual(existing.HomeScore, cg.HomeScore) &&
		intPtrEqual(existing.AwayScore, cg.AwayScore) &&
		strPtrEqual(existing.GamePeriod, period) {
		return metrics.OutcomeUnchanged, existing, nil
	}

	if err := st.Games().UpdateState(ctx, existing.ID, cg.Status, cg.HomeScore, cg.AwayScore, period, now); err != nil {
		return "", nil, err
	}
	existing.Status = cg.Status
	existing.HomeScore, existing.AwayScore = cg.HomeScore, cg.AwayScore
	existing.GamePeriod = period
	existing.LastUpdated = &now
	return metrics.OutcomeUpdated, existing, nil
}

func (s *SyncService) gameEvent(outcome string, g *model.Game) *events.Event {
	var typ string
	switch outcome {
	case metrics.OutcomeCreated:
		typ = events.TypeGameCreated
	case metrics.OutcomeUpdated:
		typ = events.TypeGameUpdated
	default:
		return nil
	}
	evt, err := newGameEvent(typ, g)
	if err != nil {
		log.Warn().Err(err).Int64("game_id", g.ID).Msg("Failed to build game event")
		return nil
	}
	return &evt
}

func newGameEvent(typ string, g *model.Game) (events.Event, error) {
	return events.New(typ, strconv.FormatInt(g.ID, 10), events.GameChanged{
		GameID:     g.ID,
		ExternalID: g.ExternalID,
		Sport:      g.Sport,
		Matchup:    g.Matchup(),
		GameTime:   g.GameTime.UTC().Format(time.RFC3339),
		Status:     string(g.Status),
		HomeScore:  g.HomeScore,
		AwayScore:  g.AwayScore,
		Period:     g.GamePeriod,
	})
}

// ==================== Live scores ====================

func (s *SyncService) syncLive(ctx context.Context, rep *SyncReport) error {
	for _, f := range fetchAll(ctx, s.leagues.List(), s.feed.Events) {
		sr := SportReport{Sport: f.league.Key, Scope: ScopeLive}
		if f.err != nil {
			s.upstreamFailed(&sr, f.err)
			rep.add(sr)
			continue
		}
		sr.Fetched = len(f.items)

		now := s.clock.Now().UTC()
		var evts []events.Event
		for _, raw := range f.items {
			if err := ctx.Err(); err != nil {
				return err
			}
			cg, err := feed.NormalizeEvent(raw, f.league.Key, now)
			if err != nil {
				log.Warn().Err(err).Str("sport", f.league.Key).Str("event", raw.ID).Msg("Skipping event")
				s.record(&sr, metrics.OutcomeSkipped)
				continue
			}
			if cg.FeedStatus.IsScheduled() {
				continue
			}

			var (
				outcome string
				game    *model.Game
			)
			err = s.store.InTx(ctx, func(tx repository.Store) error {
				home, err := tx.Teams().FindByNameSport(ctx, cg.Home.Name, cg.Sport)
				if err != nil {
					return err
				}
				away, err := tx.Teams().FindByNameSport(ctx, cg.Away.Name, cg.Sport)
				if err != nil {
					return err
				}
				outcome, game, err = mergeGame(ctx, tx, cg, home, away, now, false)
				return err
			})
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Debug().Err(err).Str("sport", f.league.Key).Str("event", cg.ExternalID).Msg("No local game for live event")
				s.record(&sr, metrics.OutcomeSkipped)
				continue
			}
			s.record(&sr, outcome)
			if evt := s.gameEvent(outcome, game); evt != nil {
				evts = append(evts, *evt)
			}
		}
		s.publish(ctx, evts)
		rep.add(sr)
	}
	return nil
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
