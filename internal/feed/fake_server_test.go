package feed

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

const nflScoreboard = `{
  "events": [
    {
      "id": "401",
      "name": "Buffalo Bills at Kansas City Chiefs",
      "shortName": "BUF @ KC",
      "date": "2025-07-11T20:00Z",
      "status": {"period": 2, "type": {"name": "STATUS_IN_PROGRESS", "shortDetail": "7:32 - 2nd"}},
      "competitions": [{
        "competitors": [
          {"homeAway": "home", "score": "7",
           "team": {"id": "12", "displayName": "Kansas City Chiefs", "abbreviation": "KC", "location": "Kansas City",
                    "logo": "https://a.espncdn.com/kc.png"}},
          {"homeAway": "away", "score": 3,
           "team": {"id": "2", "displayName": "Buffalo Bills", "abbreviation": "BUF", "location": "Buffalo"}}
        ]
      }]
    },
    {
      "id": "402",
      "name": "Broken event",
      "date": "not a date",
      "status": {"type": {"name": "STATUS_SCHEDULED"}},
      "competitions": [{"competitors": [{"homeAway": "home", "team": {"displayName": "Solo"}}]}]
    }
  ]
}`

const nflTeams = `{
  "sports": [{
    "leagues": [{
      "teams": [
        {"team": {"id": "12", "displayName": "Kansas City Chiefs", "abbreviation": "KC", "location": "Kansas City",
                  "color": "e31837", "logos": [{"href": "https://a.espncdn.com/kc-500.png"}]}},
        {"team": {"id": "2", "displayName": "Buffalo Bills", "abbreviation": "BUF", "location": "Buffalo"}}
      ]
    }]
  }]
}`

// fakeFeedServer serves canned scoreboard and team responses.
type fakeFeedServer struct {
	s     *httptest.Server
	hits  atomic.Int64
	delay atomic.Int64 // nanoseconds
}

func newFakeFeedServer() *fakeFeedServer {
	f := &fakeFeedServer{}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.hits.Add(1)
			if d := time.Duration(f.delay.Load()); d > 0 {
				select {
				case <-time.After(d):
				case <-req.Context().Done():
					return
				}
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/{type}/{league}", func(r chi.Router) {
		r.Get("/scoreboard", func(w http.ResponseWriter, req *http.Request) {
			switch chi.URLParam(req, "league") {
			case "nfl":
				serveJSON(w, nflScoreboard)
			case "nhl":
				w.WriteHeader(http.StatusServiceUnavailable)
			default:
				serveJSON(w, `{"events": []}`)
			}
		})
		r.Get("/teams", func(w http.ResponseWriter, req *http.Request) {
			switch chi.URLParam(req, "league") {
			case "nfl":
				serveJSON(w, nflTeams)
			case "nhl":
				w.WriteHeader(http.StatusInternalServerError)
			default:
				serveJSON(w, `{"sports": []}`)
			}
		})
	})

	f.s = httptest.NewServer(r)
	return f
}

func (f *fakeFeedServer) Close() {
	f.s.Close()
}

func (f *fakeFeedServer) URL() string {
	return f.s.URL
}

func serveJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
