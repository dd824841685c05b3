package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"wager-tracker/internal/auth"
	"wager-tracker/internal/timezone"
)

// requestLogger logs each request after it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			evt := log.Info()
			if status >= http.StatusInternalServerError {
				evt = log.Warn()
			}
			evt.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("HTTP request")
		}()
		next.ServeHTTP(ww, r)
	})
}

type zoneKey struct{}

// authenticate verifies a bearer token when one is sent and resolves the
// caller's zone once per request. Anonymous callers read in Eastern time.
// A token that fails verification is rejected outright.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		zone := timezone.Default()

		if token, ok := bearerToken(r); ok {
			claims, err := a.tokens.Verify(token)
			if err != nil {
				log.Debug().Err(err).Str("request_id", middleware.GetReqID(ctx)).Msg("Rejected token")
				writeError(w, r, err)
				return
			}
			ctx = auth.WithClaims(ctx, claims)
			zone = timezone.Resolve(claims.TimeZone)
		}

		ctx = context.WithValue(ctx, zoneKey{}, zone)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// requireUser rejects requests without verified claims.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			writeError(w, r, auth.ErrInvalidToken)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// zoneFrom returns the zone resolved by authenticate.
func zoneFrom(ctx context.Context) timezone.Zone {
	if z, ok := ctx.Value(zoneKey{}).(timezone.Zone); ok {
		return z
	}
	return timezone.Default()
}

// userID returns the caller's id. Routes reaching it are behind requireUser.
func userID(ctx context.Context) (int64, error) {
	claims, ok := auth.FromContext(ctx)
	if !ok {
		return 0, auth.ErrInvalidToken
	}
	return claims.UserID()
}
