package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wager-tracker/internal/model"
	"wager-tracker/internal/repository"
	"wager-tracker/internal/repository/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store { return New() })
}

func TestReadsReturnCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _, game := storetest.SeedMatchup(t, s, time.Date(2025, 7, 11, 20, 0, 0, 0, time.UTC))

	got, err := s.Games().GetByID(ctx, game.ID)
	require.NoError(t, err)
	got.Status = model.GameFinal
	got.HomeTeam.Name = "Changed"

	again, err := s.Games().GetByID(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, model.GameScheduled, again.Status)
	assert.Equal(t, "Kansas City Chiefs", again.HomeTeam.Name)
}

func TestConcurrentTransactionsSerialize(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.InTx(ctx, func(tx repository.Store) error {
				return tx.Teams().Create(ctx, &model.Team{Name: "Team", Abbreviation: "T", Sport: []string{"NFL", "NBA"}[i%2]})
			})
		}(i)
	}
	wg.Wait()

	n, err := s.Teams().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "the (name, sport) key must stay unique under concurrency")
}

func TestInTxHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := New().InTx(ctx, func(repository.Store) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
