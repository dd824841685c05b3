// Package scheduler runs the periodic feed syncs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"wager-tracker/internal/service"
)

// DefaultJobTimeout bounds a single scheduled sync.
const DefaultJobTimeout = 5 * time.Minute

// Syncer is the part of the sync service the scheduler drives.
type Syncer interface {
	SyncLiveScores(ctx context.Context) (*service.SyncReport, error)
	SyncAll(ctx context.Context) (*service.SyncReport, error)
}

// Config holds the cron specs. Specs use the standard five-field format and
// are evaluated in Location (an IANA zone id).
type Config struct {
	LiveSpec   string
	FullSpec   string
	Location   string
	JobTimeout time.Duration
}

// Scheduler owns the cron runner. Every job runs under a context that Stop
// cancels.
type Scheduler struct {
	cron    *cron.Cron
	syncer  Syncer
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	runs   sync.WaitGroup
}

// New registers the live-score and full sync jobs. It does not start them.
func New(cfg Config, syncer Syncer) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("invalid sync location %q: %w", cfg.Location, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		syncer:  syncer,
		timeout: cfg.JobTimeout,
		ctx:     ctx,
		cancel:  cancel,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultJobTimeout
	}

	if _, err := s.cron.AddFunc(cfg.LiveSpec, s.job(service.ScopeLive, syncer.SyncLiveScores)); err != nil {
		return nil, fmt.Errorf("invalid live sync schedule %q: %w", cfg.LiveSpec, err)
	}
	if _, err := s.cron.AddFunc(cfg.FullSpec, s.job(service.ScopeAll, syncer.SyncAll)); err != nil {
		return nil, fmt.Errorf("invalid full sync schedule %q: %w", cfg.FullSpec, err)
	}
	return s, nil
}

// job wraps a sync pass with a timeout and logging. A pass skipped because
// another one holds the lock is not an error.
func (s *Scheduler) job(scope string, run func(context.Context) (*service.SyncReport, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()

		rep, err := run(ctx)
		switch {
		case errors.Is(err, service.ErrSyncInProgress):
			log.Debug().Str("scope", scope).Msg("Sync already running, skipping scheduled run")
		case err != nil:
			log.Error().Err(err).Str("scope", scope).Msg("Scheduled sync failed")
		default:
			log.Info().
				Str("scope", scope).
				Int("created", rep.Created).
				Int("updated", rep.Updated).
				Int("unchanged", rep.Unchanged).
				Int("skipped", rep.Skipped).
				Dur("duration", rep.FinishedAt.Sub(rep.StartedAt)).
				Msg("Scheduled sync completed")
		}
	}
}

// RunFull starts one full sync in the background, outside the schedule.
// Stop cancels and waits for it like a scheduled run.
func (s *Scheduler) RunFull() {
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		s.job(service.ScopeAll, s.syncer.SyncAll)()
	}()
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		log.Info().Time("next", e.Next).Msg("Sync job scheduled")
	}
}

// Stop halts the schedule, cancels running jobs and waits for them until
// ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	stopped := s.cron.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		s.runs.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Msg("Timed out waiting for running sync jobs")
	}
}
