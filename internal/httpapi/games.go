package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"wager-tracker/internal/model"
	"wager-tracker/internal/schedule"
	"wager-tracker/internal/service"
)

type scoreRequest struct {
	HomeScore  *int    `json:"homeScore"`
	AwayScore  *int    `json:"awayScore"`
	Status     *string `json:"status"`
	GamePeriod *string `json:"gamePeriod"`
}

func (a *API) listGames(w http.ResponseWriter, r *http.Request) {
	list, err := a.games.All(r.Context(), zoneFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) upcomingGames(w http.ResponseWriter, r *http.Request) {
	hours, err := queryInt(r, "hours")
	if err != nil {
		writeError(w, r, err)
		return
	}
	days, err := queryInt(r, "days")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	list, err := a.games.Upcoming(r.Context(), zoneFrom(r.Context()), service.UpcomingQuery{
		Hours:  hours,
		Days:   days,
		Sport:  q.Get("sport"),
		Status: q.Get("status"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) todaysGames(w http.ResponseWriter, r *http.Request) {
	list, err := a.games.Today(r.Context(), zoneFrom(r.Context()), r.URL.Query().Get("sport"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) gamesOnDate(w http.ResponseWriter, r *http.Request) {
	list, err := a.games.OnDate(r.Context(), zoneFrom(r.Context()), chi.URLParam(r, "date"), r.URL.Query().Get("sport"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) gamesInNextHours(w http.ResponseWriter, r *http.Request) {
	hours, err := strconv.Atoi(chi.URLParam(r, "hours"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: hours must be an integer", schedule.ErrInvalidWindow))
		return
	}
	list, err := a.games.NextHours(r.Context(), zoneFrom(r.Context()), hours, r.URL.Query().Get("sport"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) bettingOpportunities(w http.ResponseWriter, r *http.Request) {
	hours, err := queryInt(r, "hoursAhead")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := a.games.BettingOpportunities(r.Context(), zoneFrom(r.Context()), hours)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) liveGames(w http.ResponseWriter, r *http.Request) {
	list, err := a.games.Live(r.Context(), zoneFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) completedGames(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := a.games.Completed(r.Context(), zoneFrom(r.Context()), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) gamesBySport(w http.ResponseWriter, r *http.Request) {
	list, err := a.games.BySport(r.Context(), zoneFrom(r.Context()), chi.URLParam(r, "sport"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) getGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := a.games.Get(r.Context(), zoneFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) updateScore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req scoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u := service.ScoreUpdate{HomeScore: req.HomeScore, AwayScore: req.AwayScore, Period: req.GamePeriod}
	if req.Status != nil {
		st, err := model.ParseGameStatus(*req.Status)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", service.ErrValidationFailed, err))
			return
		}
		u.Status = &st
	}

	game, err := a.games.UpdateScore(r.Context(), id, u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewGameView(game, zoneFrom(r.Context())))
}

func (a *API) gameBets(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	bets, err := a.bets.ListForGame(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewBetViews(bets, zoneFrom(r.Context())))
}

func (a *API) timeZoneInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.games.TimeZoneInfo(zoneFrom(r.Context())))
}

// syncHandler runs one reconciliation pass and returns its report.
func (a *API) syncHandler(run func(context.Context) (*service.SyncReport, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := run(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}
