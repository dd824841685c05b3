package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wager-tracker/internal/service"
)

type fakeSyncer struct {
	mu        sync.Mutex
	live      int
	full      int
	deadlines []time.Duration
	err       error
}

func (f *fakeSyncer) record(ctx context.Context, counter *int) (*service.SyncReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	*counter++
	if dl, ok := ctx.Deadline(); ok {
		f.deadlines = append(f.deadlines, time.Until(dl))
	}
	if f.err != nil {
		return nil, f.err
	}
	now := time.Now()
	return &service.SyncReport{StartedAt: now, FinishedAt: now}, nil
}

func (f *fakeSyncer) SyncLiveScores(ctx context.Context) (*service.SyncReport, error) {
	return f.record(ctx, &f.live)
}

func (f *fakeSyncer) SyncAll(ctx context.Context) (*service.SyncReport, error) {
	return f.record(ctx, &f.full)
}

func validConfig() Config {
	return Config{LiveSpec: "*/2 * * * *", FullSpec: "0 6 * * *", Location: "America/New_York"}
}

func TestNew(t *testing.T) {
	s, err := New(validConfig(), &fakeSyncer{})
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 2)
	assert.Equal(t, DefaultJobTimeout, s.timeout)
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Location = "Mars/Olympus"
	_, err := New(cfg, &fakeSyncer{})
	assert.Error(t, err)

	cfg = validConfig()
	cfg.LiveSpec = "every two minutes"
	_, err = New(cfg, &fakeSyncer{})
	assert.ErrorContains(t, err, "live sync schedule")

	cfg = validConfig()
	cfg.FullSpec = "0 6 * *"
	_, err = New(cfg, &fakeSyncer{})
	assert.ErrorContains(t, err, "full sync schedule")
}

func TestJob_RunsUnderTimeout(t *testing.T) {
	f := &fakeSyncer{}
	cfg := validConfig()
	cfg.JobTimeout = time.Minute
	s, err := New(cfg, f)
	require.NoError(t, err)

	s.job(service.ScopeLive, f.SyncLiveScores)()
	s.RunFull()
	s.runs.Wait()

	assert.Equal(t, 1, f.live)
	assert.Equal(t, 1, f.full)
	require.Len(t, f.deadlines, 2)
	for _, d := range f.deadlines {
		assert.LessOrEqual(t, d, time.Minute)
		assert.Greater(t, d, 50*time.Second)
	}
}

func TestJob_AbsorbsErrors(t *testing.T) {
	for _, err := range []error{service.ErrSyncInProgress, errors.New("feed down")} {
		f := &fakeSyncer{err: err}
		s, nerr := New(validConfig(), f)
		require.NoError(t, nerr)
		assert.NotPanics(t, s.job(service.ScopeLive, f.SyncLiveScores))
		assert.Equal(t, 1, f.live)
	}
}

func TestStartStop(t *testing.T) {
	s, err := New(validConfig(), &fakeSyncer{})
	require.NoError(t, err)
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.NoError(t, ctx.Err())
}

// blockingSyncer holds a full sync open until its context ends.
type blockingSyncer struct {
	entered chan struct{}
	ended   chan error
}

func (b *blockingSyncer) SyncLiveScores(ctx context.Context) (*service.SyncReport, error) {
	return b.SyncAll(ctx)
}

func (b *blockingSyncer) SyncAll(ctx context.Context) (*service.SyncReport, error) {
	b.entered <- struct{}{}
	<-ctx.Done()
	b.ended <- ctx.Err()
	return nil, ctx.Err()
}

func TestStop_CancelsRunningSync(t *testing.T) {
	b := &blockingSyncer{entered: make(chan struct{}, 1), ended: make(chan error, 1)}
	s, err := New(validConfig(), b)
	require.NoError(t, err)
	s.Start()
	s.RunFull()

	select {
	case <-b.entered:
	case <-time.After(time.Second):
		t.Fatal("full sync never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.NoError(t, ctx.Err(), "Stop waited for the whole shutdown budget")

	select {
	case err := <-b.ended:
		assert.ErrorIs(t, err, context.Canceled)
	default:
		t.Fatal("Stop returned before the running sync ended")
	}
}
