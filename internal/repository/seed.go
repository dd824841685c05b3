package repository

import (
	"context"
	"errors"
	"fmt"

	"wager-tracker/internal/model"
)

// SeedTeams are created on first start so a fresh install has something to
// show before the first feed sync.
var SeedTeams = []model.Team{
	{Name: "Kansas City Chiefs", Abbreviation: "KC", City: "Kansas City", Sport: "NFL"},
	{Name: "Buffalo Bills", Abbreviation: "BUF", City: "Buffalo", Sport: "NFL"},
	{Name: "Philadelphia Eagles", Abbreviation: "PHI", City: "Philadelphia", Sport: "NFL"},
	{Name: "San Francisco 49ers", Abbreviation: "SF", City: "San Francisco", Sport: "NFL"},
	{Name: "Dallas Cowboys", Abbreviation: "DAL", City: "Dallas", Sport: "NFL"},
	{Name: "Baltimore Ravens", Abbreviation: "BAL", City: "Baltimore", Sport: "NFL"},
}

// Seed inserts SeedTeams that are missing. It is safe to run on every start
// and reports how many teams it created.
func Seed(ctx context.Context, s Store) (int, error) {
	created := 0
	err := s.InTx(ctx, func(tx Store) error {
		for _, t := range SeedTeams {
			_, err := tx.Teams().FindByNameSport(ctx, t.Name, t.Sport)
			if err == nil {
				continue
			}
			if !errors.Is(err, ErrNotFound) {
				return err
			}
			team := t
			team.IsActive = true
			if err := tx.Teams().Create(ctx, &team); err != nil {
				return fmt.Errorf("failed to seed team %s: %w", t.Abbreviation, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
