// Package httpapi exposes the tracker over a JSON HTTP API routed by chi.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"wager-tracker/internal/auth"
	"wager-tracker/internal/service"
)

// Request timeouts.
const (
	DefaultRequestTimeout = 30 * time.Second
	SyncRequestTimeout    = 5 * time.Minute
)

// Deps holds the services the API serves.
type Deps struct {
	Games          *service.GameService
	Bets           *service.BetService
	Sync           *service.SyncService
	Accounts       *service.AccountService
	Tokens         *auth.TokenIssuer
	RequestTimeout time.Duration
	// Health reports whether backing stores are reachable. Nil means healthy.
	Health func(ctx context.Context) error
}

// API is the HTTP surface.
type API struct {
	games    *service.GameService
	bets     *service.BetService
	sync     *service.SyncService
	accounts *service.AccountService
	tokens   *auth.TokenIssuer
	timeout  time.Duration
	health   func(ctx context.Context) error
}

// New creates an API.
func New(deps Deps) *API {
	a := &API{
		games:    deps.Games,
		bets:     deps.Bets,
		sync:     deps.Sync,
		accounts: deps.Accounts,
		tokens:   deps.Tokens,
		timeout:  deps.RequestTimeout,
		health:   deps.Health,
	}
	if a.timeout <= 0 {
		a.timeout = DefaultRequestTimeout
	}
	return a
}

// Router returns the HTTP handler with every route mounted.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(a.authenticate)

	r.Get("/healthz", a.healthz)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.Timeout(a.timeout))
			r.Get("/timezones", a.listTimeZones)
			r.Post("/register", a.register)
			r.Post("/login", a.login)
			r.With(requireUser).Get("/me", a.me)
			r.With(requireUser).Put("/timezone", a.updateTimeZone)
		})

		r.Route("/games", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(a.timeout))
				r.Get("/", a.listGames)
				r.Get("/upcoming", a.upcomingGames)
				r.Get("/today", a.todaysGames)
				r.Get("/on-date/{date}", a.gamesOnDate)
				r.Get("/next-hours/{hours}", a.gamesInNextHours)
				r.Get("/betting-opportunities", a.bettingOpportunities)
				r.Get("/live", a.liveGames)
				r.Get("/completed", a.completedGames)
				r.Get("/sport/{sport}", a.gamesBySport)
				r.Get("/timezone/info", a.timeZoneInfo)
				r.Get("/{id:\\d+}", a.getGame)
				r.With(requireUser).Put("/{id:\\d+}/score", a.updateScore)
				r.With(requireUser).Get("/{id:\\d+}/bets", a.gameBets)
			})

			// Syncs call the upstream feed for every league.
			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Use(middleware.Timeout(SyncRequestTimeout))
				r.Post("/sync/teams", a.syncHandler(a.sync.SyncTeams))
				r.Post("/sync/games", a.syncHandler(a.sync.SyncGames))
				r.Post("/sync/scores", a.syncHandler(a.sync.SyncLiveScores))
				r.Post("/sync/all", a.syncHandler(a.sync.RefreshAll))
			})
		})

		r.Route("/bets", func(r chi.Router) {
			r.Use(middleware.Timeout(a.timeout))
			r.Use(requireUser)
			r.Get("/", a.listBets)
			r.Post("/", a.createBet)
			r.Get("/stats", a.betStats)
			r.Get("/{id:\\d+}", a.getBet)
			r.Put("/{id:\\d+}/settle", a.settleBet)
			r.Put("/{id:\\d+}/volatility", a.updateVolatility)
			r.Delete("/{id:\\d+}", a.deleteBet)
		})
	})

	return r
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		if err := a.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
