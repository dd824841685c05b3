// Package memory is an in-process repository.Store used by tests and by
// the server when no database is configured.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"wager-tracker/internal/model"
	"wager-tracker/internal/repository"
)

type state struct {
	teams map[int64]model.Team
	games map[int64]model.Game
	bets  map[int64]model.Bet
	users map[int64]model.User
	seq   int64
}

func newState() *state {
	return &state{
		teams: make(map[int64]model.Team),
		games: make(map[int64]model.Game),
		bets:  make(map[int64]model.Bet),
		users: make(map[int64]model.User),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.teams {
		c.teams[k] = v
	}
	for k, v := range s.games {
		c.games[k] = v
	}
	for k, v := range s.bets {
		c.bets[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	c.seq = s.seq
	return c
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

type root struct {
	mu sync.Mutex
	st *state
}

// Store implements repository.Store over maps. Transactions work on a copy
// of the state that replaces the parent on commit; top-level transactions
// are serialized.
type Store struct {
	root *root
	tx   *state // nil outside a transaction
}

// New creates an empty store.
func New() *Store {
	return &Store{root: &root{st: newState()}}
}

func (s *Store) with(fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	return fn(s.root.st)
}

// InTx implements repository.Store.
func (s *Store) InTx(ctx context.Context, fn func(repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		child := &Store{root: s.root, tx: s.tx.clone()}
		if err := fn(child); err != nil {
			return err
		}
		*s.tx = *child.tx
		return nil
	}

	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	child := &Store{root: s.root, tx: s.root.st.clone()}
	if err := fn(child); err != nil {
		return err
	}
	s.root.st = child.tx
	return nil
}

// Ping implements repository.Store.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Teams implements repository.Store.
func (s *Store) Teams() repository.TeamRepository { return teamRepo{s} }

// Games implements repository.Store.
func (s *Store) Games() repository.GameRepository { return gameRepo{s} }

// Bets implements repository.Store.
func (s *Store) Bets() repository.BetRepository { return betRepo{s} }

// Users implements repository.Store.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// ============================================================================
// Teams
// ============================================================================

type teamRepo struct{ s *Store }

func (r teamRepo) GetByID(_ context.Context, id int64) (*model.Team, error) {
	var out *model.Team
	err := r.s.with(func(st *state) error {
		t, ok := st.teams[id]
		if !ok {
			return repository.ErrTeamNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (r teamRepo) FindByNameSport(_ context.Context, name, sport string) (*model.Team, error) {
	var out *model.Team
	err := r.s.with(func(st *state) error {
		for _, t := range st.teams {
			if t.Name == name && t.Sport == sport {
				t := t
				out = &t
				return nil
			}
		}
		return repository.ErrTeamNotFound
	})
	return out, err
}

func (r teamRepo) Create(_ context.Context, team *model.Team) error {
	return r.s.with(func(st *state) error {
		for _, t := range st.teams {
			if t.Name == team.Name && t.Sport == team.Sport {
				return repository.ErrDuplicate
			}
		}
		team.ID = st.nextID()
		st.teams[team.ID] = *team
		return nil
	})
}

func (r teamRepo) UpdateDescriptive(_ context.Context, id int64, abbreviation, city string, logoURL *string) error {
	return r.s.with(func(st *state) error {
		t, ok := st.teams[id]
		if !ok {
			return repository.ErrTeamNotFound
		}
		t.Abbreviation = abbreviation
		t.City = city
		t.LogoURL = logoURL
		st.teams[id] = t
		return nil
	})
}

func (r teamRepo) List(_ context.Context, sport string) ([]*model.Team, error) {
	var out []*model.Team
	err := r.s.with(func(st *state) error {
		for _, t := range st.teams {
			if sport == "" || t.Sport == sport {
				t := t
				out = append(out, &t)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sport != out[j].Sport {
			return out[i].Sport < out[j].Sport
		}
		return out[i].Name < out[j].Name
	})
	return out, err
}

func (r teamRepo) Count(_ context.Context) (int, error) {
	var n int
	err := r.s.with(func(st *state) error {
		n = len(st.teams)
		return nil
	})
	return n, err
}

// ============================================================================
// Games
// ============================================================================

type gameRepo struct{ s *Store }

func joinGame(st *state, g model.Game) *model.Game {
	home, away := st.teams[g.HomeTeamID], st.teams[g.AwayTeamID]
	g.HomeTeam = &home
	g.AwayTeam = &away
	return &g
}

func (r gameRepo) GetByID(_ context.Context, id int64) (*model.Game, error) {
	var out *model.Game
	err := r.s.with(func(st *state) error {
		g, ok := st.games[id]
		if !ok {
			return repository.ErrGameNotFound
		}
		out = joinGame(st, g)
		return nil
	})
	return out, err
}

func (r gameRepo) FindByMatchup(_ context.Context, homeTeamID, awayTeamID int64, from, to time.Time) (*model.Game, error) {
	var out *model.Game
	err := r.s.with(func(st *state) error {
		for _, g := range st.games {
			if g.HomeTeamID != homeTeamID || g.AwayTeamID != awayTeamID {
				continue
			}
			if g.GameTime.Before(from) || !g.GameTime.Before(to) {
				continue
			}
			if out == nil || g.GameTime.Before(out.GameTime) ||
				(g.GameTime.Equal(out.GameTime) && g.ID < out.ID) {
				out = joinGame(st, g)
			}
		}
		if out == nil {
			return repository.ErrGameNotFound
		}
		return nil
	})
	return out, err
}

func (r gameRepo) Create(_ context.Context, game *model.Game) error {
	return r.s.with(func(st *state) error {
		if _, ok := st.teams[game.HomeTeamID]; !ok {
			return repository.ErrTeamNotFound
		}
		if _, ok := st.teams[game.AwayTeamID]; !ok {
			return repository.ErrTeamNotFound
		}
		game.ID = st.nextID()
		g := *game
		g.GameTime = g.GameTime.UTC()
		g.HomeTeam, g.AwayTeam = nil, nil
		st.games[g.ID] = g
		return nil
	})
}

func (r gameRepo) UpdateState(_ context.Context, id int64, status model.GameStatus, homeScore, awayScore *int, period *string, at time.Time) error {
	return r.s.with(func(st *state) error {
		g, ok := st.games[id]
		if !ok {
			return repository.ErrGameNotFound
		}
		at = at.UTC()
		g.Status = status
		g.HomeScore = homeScore
		g.AwayScore = awayScore
		g.GamePeriod = period
		g.LastUpdated = &at
		st.games[id] = g
		return nil
	})
}

func (r gameRepo) List(_ context.Context, f repository.GameFilter) ([]*model.Game, error) {
	var out []*model.Game
	err := r.s.with(func(st *state) error {
		for _, g := range st.games {
			if !f.From.IsZero() && g.GameTime.Before(f.From) {
				continue
			}
			if !f.To.IsZero() && !g.GameTime.Before(f.To) {
				continue
			}
			if f.Sport != "" && !strings.EqualFold(g.Sport, f.Sport) {
				continue
			}
			if len(f.Statuses) > 0 && !containsStatus(f.Statuses, g.Status) {
				continue
			}
			out = append(out, joinGame(st, g))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if f.Descending {
			a, b = b, a
		}
		if !a.GameTime.Equal(b.GameTime) {
			return a.GameTime.Before(b.GameTime)
		}
		return a.ID < b.ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, err
}

func containsStatus(list []model.GameStatus, s model.GameStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r gameRepo) Count(_ context.Context) (int, error) {
	var n int
	err := r.s.with(func(st *state) error {
		n = len(st.games)
		return nil
	})
	return n, err
}

// ============================================================================
// Bets
// ============================================================================

type betRepo struct{ s *Store }

func joinBet(st *state, b model.Bet) *model.Bet {
	if g, ok := st.games[b.GameID]; ok {
		b.Game = joinGame(st, g)
	}
	return &b
}

func (r betRepo) Create(_ context.Context, bet *model.Bet) error {
	return r.s.with(func(st *state) error {
		if _, ok := st.games[bet.GameID]; !ok {
			return repository.ErrGameNotFound
		}
		if bet.CreatedAt.IsZero() {
			bet.CreatedAt = time.Now().UTC()
		}
		bet.ID = st.nextID()
		b := *bet
		b.Game = nil
		st.bets[b.ID] = b
		return nil
	})
}

func (r betRepo) GetByID(_ context.Context, id int64) (*model.Bet, error) {
	var out *model.Bet
	err := r.s.with(func(st *state) error {
		b, ok := st.bets[id]
		if !ok {
			return repository.ErrBetNotFound
		}
		out = joinBet(st, b)
		return nil
	})
	return out, err
}

func (r betRepo) list(match func(model.Bet) bool) ([]*model.Bet, error) {
	var out []*model.Bet
	err := r.s.with(func(st *state) error {
		for _, b := range st.bets {
			if match(b) {
				out = append(out, joinBet(st, b))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

func (r betRepo) ListByUser(_ context.Context, userID int64, scope model.BetScope) ([]*model.Bet, error) {
	return r.list(func(b model.Bet) bool {
		if b.UserID != userID {
			return false
		}
		switch scope {
		case model.ScopeActive:
			return !b.IsSettled()
		case model.ScopeSettled:
			return b.IsSettled()
		}
		return true
	})
}

func (r betRepo) ListByUserAndGame(_ context.Context, userID, gameID int64) ([]*model.Bet, error) {
	return r.list(func(b model.Bet) bool {
		return b.UserID == userID && b.GameID == gameID
	})
}

func (r betRepo) Settle(_ context.Context, id int64, status model.BetStatus, payout decimal.Decimal, at time.Time) error {
	return r.s.with(func(st *state) error {
		b, ok := st.bets[id]
		if !ok {
			return repository.ErrBetNotFound
		}
		if b.IsSettled() {
			return repository.ErrBetNotActive
		}
		at = at.UTC()
		b.Status = status
		b.ActualPayout = &payout
		b.SettledAt = &at
		st.bets[id] = b
		return nil
	})
}

func (r betRepo) UpdateVolatility(_ context.Context, id int64, v model.Volatility) error {
	return r.s.with(func(st *state) error {
		b, ok := st.bets[id]
		if !ok {
			return repository.ErrBetNotFound
		}
		b.Volatility = v
		st.bets[id] = b
		return nil
	})
}

func (r betRepo) Delete(_ context.Context, id int64) error {
	return r.s.with(func(st *state) error {
		if _, ok := st.bets[id]; !ok {
			return repository.ErrBetNotFound
		}
		delete(st.bets, id)
		return nil
	})
}

// ============================================================================
// Users
// ============================================================================

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *model.User) error {
	return r.s.with(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, user.Email) || strings.EqualFold(u.Username, user.Username) {
				return repository.ErrDuplicate
			}
		}
		user.ID = st.nextID()
		user.CreatedAt = time.Now().UTC()
		st.users[user.ID] = *user
		return nil
	})
}

func (r userRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	var out *model.User
	err := r.s.with(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrUserNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	var out *model.User
	err := r.s.with(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				u := u
				out = &u
				return nil
			}
		}
		return repository.ErrUserNotFound
	})
	return out, err
}

func (r userRepo) Exists(_ context.Context, email, username string) (emailTaken, usernameTaken bool, err error) {
	err = r.s.with(func(st *state) error {
		for _, u := range st.users {
			emailTaken = emailTaken || strings.EqualFold(u.Email, email)
			usernameTaken = usernameTaken || strings.EqualFold(u.Username, username)
		}
		return nil
	})
	return emailTaken, usernameTaken, err
}

func (r userRepo) UpdateTimeZone(_ context.Context, id int64, zone string) error {
	return r.s.with(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrUserNotFound
		}
		u.TimeZone = zone
		st.users[id] = u
		return nil
	})
}
