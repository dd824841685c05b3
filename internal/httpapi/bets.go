package httpapi

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"wager-tracker/internal/model"
	"wager-tracker/internal/service"
)

type createBetRequest struct {
	GameID      int64            `json:"gameId"`
	BetType     string           `json:"betType"`
	Amount      decimal.Decimal  `json:"amount"`
	Odds        int              `json:"odds"`
	Line        *decimal.Decimal `json:"line"`
	Selection   *string          `json:"selection"`
	Description *string          `json:"description"`
}

type settleRequest struct {
	Status string `json:"status"`
}

type volatilityRequest struct {
	Volatility string `json:"volatility"`
}

func (a *API) listBets(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	scope, err := model.ParseBetScope(r.URL.Query().Get("scope"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", service.ErrValidationFailed, err))
		return
	}
	bets, err := a.bets.List(r.Context(), uid, scope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewBetViews(bets, zoneFrom(r.Context())))
}

func (a *API) createBet(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createBetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	bet, err := a.bets.Create(r.Context(), uid, service.CreateBetInput{
		GameID:      req.GameID,
		Type:        model.BetType(req.BetType),
		Amount:      req.Amount,
		Odds:        req.Odds,
		Line:        req.Line,
		Selection:   req.Selection,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/bets/%d", bet.ID))
	writeJSON(w, http.StatusCreated, service.NewBetView(bet, zoneFrom(r.Context())))
}

func (a *API) getBet(w http.ResponseWriter, r *http.Request) {
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
	bet, err := a.bets.Get(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewBetView(bet, zoneFrom(r.Context())))
}

func (a *API) settleBet(w http.ResponseWriter, r *http.Request) {
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
	var req settleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	bet, err := a.bets.Settle(r.Context(), uid, id, model.BetStatus(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewBetView(bet, zoneFrom(r.Context())))
}

func (a *API) updateVolatility(w http.ResponseWriter, r *http.Request) {
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
	var req volatilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := model.ParseVolatility(req.Volatility)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", service.ErrValidationFailed, err))
		return
	}
	bet, err := a.bets.UpdateVolatility(r.Context(), uid, id, v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewBetView(bet, zoneFrom(r.Context())))
}

func (a *API) deleteBet(w http.ResponseWriter, r *http.Request) {
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
	if err := a.bets.Delete(r.Context(), uid, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) betStats(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := a.bets.Stats(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
