package httpapi

import (
	"net/http"

	"wager-tracker/internal/service"
	"wager-tracker/internal/timezone"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	TimeZone string `json:"timeZone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type timeZoneRequest struct {
	TimeZone string `json:"timeZone"`
}

func (a *API) listTimeZones(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"timeZones": timezone.Catalog(),
		"default":   timezone.DefaultZoneID,
	})
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := a.accounts.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		TimeZone: req.TimeZone,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := a.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := a.accounts.Me(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) updateTimeZone(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req timeZoneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := a.accounts.UpdateTimeZone(r.Context(), id, req.TimeZone)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
