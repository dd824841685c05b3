// Package metrics exposes prometheus counters for sync and ledger activity
// and a small /metrics + /healthz server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Sync record outcomes.
const (
	OutcomeCreated   = "created"
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
	OutcomeSkipped   = "skipped"
)

// Recorder holds the application collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	syncRecords  *prometheus.CounterVec
	fetchErrors  *prometheus.CounterVec
	syncDuration *prometheus.HistogramVec
	betsCreated  prometheus.Counter
	betsSettled  *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		syncRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wager_sync_records_total",
			Help: "Feed records processed by reconciliation, by outcome.",
		}, []string{"sport", "outcome"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wager_feed_fetch_errors_total",
			Help: "Upstream feed fetch failures.",
		}, []string{"sport"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wager_sync_duration_seconds",
			Help:    "Duration of sync passes.",
			Buckets: prometheus.DefBuckets,
		}, []string{"scope"}),
		betsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wager_bets_created_total",
			Help: "Bets recorded.",
		}),
		betsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wager_bets_settled_total",
			Help: "Bets settled, by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(r.syncRecords, r.fetchErrors, r.syncDuration, r.betsCreated, r.betsSettled)
	return r
}

// SyncRecord counts one reconciled feed record.
func (r *Recorder) SyncRecord(sport, outcome string) {
	if r == nil {
		return
	}
	r.syncRecords.WithLabelValues(sport, outcome).Inc()
}

// FetchError counts one failed upstream fetch.
func (r *Recorder) FetchError(sport string) {
	if r == nil {
		return
	}
	r.fetchErrors.WithLabelValues(sport).Inc()
}

// ObserveSync records how long a sync pass took.
func (r *Recorder) ObserveSync(scope string, seconds float64) {
	if r == nil {
		return
	}
	r.syncDuration.WithLabelValues(scope).Observe(seconds)
}

// BetCreated counts one recorded bet.
func (r *Recorder) BetCreated() {
	if r == nil {
		return
	}
	r.betsCreated.Inc()
}

// BetSettled counts one settlement.
func (r *Recorder) BetSettled(outcome string) {
	if r == nil {
		return
	}
	r.betsSettled.WithLabelValues(outcome).Inc()
}
