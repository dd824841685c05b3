package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"wager-tracker/internal/events"
	"wager-tracker/internal/model"
	"wager-tracker/internal/pkg/lock"
	"wager-tracker/internal/pkg/metrics"
	"wager-tracker/internal/repository"
)

// Ledger limits.
const (
	MaxSelectionLen   = 50
	MaxDescriptionLen = 500

	defaultSettleLockWait = 5 * time.Second

	// American odds never sit strictly between -100 and +100.
	MinAbsOdds = 100
	MaxAbsOdds = 100000
)

var (
	minStake        = decimal.New(1, -2)
	defaultMaxStake = decimal.NewFromInt(10000)
	hundred         = decimal.NewFromInt(100)

	// Column limits: line NUMERIC(8,2), payouts NUMERIC(18,2).
	maxAbsLine = decimal.New(1, 6)
	maxPayout  = decimal.New(1, 16)
)

// PotentialPayout returns stake plus profit at American odds, rounded half
// away from zero to cents. Positive odds pay odds per 100 staked; negative
// odds pay 100 per |odds| staked.
func PotentialPayout(amount decimal.Decimal, odds int) decimal.Decimal {
	o := decimal.NewFromInt(int64(odds))
	var profit decimal.Decimal
	if odds > 0 {
		profit = amount.Mul(o).Div(hundred)
	} else {
		profit = amount.Mul(hundred).Div(o.Abs())
	}
	return amount.Add(profit).Round(2)
}

// settlementPayout is the actual payout for a terminal outcome.
func settlementPayout(b *model.Bet, outcome model.BetStatus) decimal.Decimal {
	switch outcome {
	case model.BetWon:
		return b.PotentialPayout
	case model.BetPush, model.BetCancelled:
		return b.Amount
	default:
		return decimal.Zero
	}
}

// CreateBetInput is a new bet as entered by a user.
type CreateBetInput struct {
	GameID      int64
	Type        model.BetType
	Amount      decimal.Decimal
	Odds        int
	Line        *decimal.Decimal
	Selection   *string
	Description *string
}

// BetStats summarizes a user's ledger. Percentages are rounded to cents.
type BetStats struct {
	TotalBets    int             `json:"totalBets"`
	ActiveBets   int             `json:"activeBets"`
	WonBets      int             `json:"wonBets"`
	LostBets     int             `json:"lostBets"`
	PushBets     int             `json:"pushBets"`
	TotalWagered decimal.Decimal `json:"totalWagered"`
	TotalWon     decimal.Decimal `json:"totalWon"`
	WinRate      decimal.Decimal `json:"winRate"`
	ROI          decimal.Decimal `json:"roi"`
}

// BetDeps holds the collaborators of BetService.
// LockTimeout bounds the wait for a bet held by another settlement.
type BetDeps struct {
	Store       repository.Store
	Locks       *lock.KeyLock
	Events      events.Publisher
	Metrics     *metrics.Recorder
	Clock       Clock
	MaxStake    decimal.Decimal
	LockTimeout time.Duration
}

// BetService is the betting ledger. Every write is one unit of work and a
// bet belonging to another user is reported as not found.
type BetService struct {
	store    repository.Store
	locks    *lock.KeyLock
	events   events.Publisher
	metrics  *metrics.Recorder
	clock    Clock
	maxStake decimal.Decimal
	lockWait time.Duration
}

// NewBetService creates a BetService.
func NewBetService(deps BetDeps) *BetService {
	s := &BetService{
		store:    deps.Store,
		locks:    deps.Locks,
		events:   deps.Events,
		metrics:  deps.Metrics,
		clock:    clockOrSystem(deps.Clock),
		maxStake: deps.MaxStake,
		lockWait: deps.LockTimeout,
	}
	if s.locks == nil {
		s.locks = lock.New()
	}
	if s.events == nil {
		s.events = events.Noop{}
	}
	if !s.maxStake.IsPositive() {
		s.maxStake = defaultMaxStake
	}
	if s.lockWait <= 0 {
		s.lockWait = defaultSettleLockWait
	}
	return s
}

func betLockKey(id int64) string {
	return "bet:" + strconv.FormatInt(id, 10)
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (s *BetService) validate(in CreateBetInput) error {
	if _, err := model.ParseBetType(string(in.Type)); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if in.Amount.LessThan(minStake) || in.Amount.GreaterThan(s.maxStake) {
		return fmt.Errorf("%w: amount must be between %s and %s", ErrValidationFailed, minStake.StringFixed(2), s.maxStake.StringFixed(2))
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return fmt.Errorf("%w: amount has more than two decimal places", ErrValidationFailed)
	}
	if in.Odds == 0 {
		return fmt.Errorf("%w: odds cannot be zero", ErrValidationFailed)
	}
	if abs := absInt(in.Odds); abs < MinAbsOdds || abs > MaxAbsOdds {
		return fmt.Errorf("%w: odds must be between %d and %d in magnitude", ErrValidationFailed, MinAbsOdds, MaxAbsOdds)
	}
	if !PotentialPayout(in.Amount, in.Odds).LessThan(maxPayout) {
		return fmt.Errorf("%w: potential payout is too large", ErrValidationFailed)
	}
	if in.Line != nil {
		if !in.Line.Abs().LessThan(maxAbsLine) {
			return fmt.Errorf("%w: line must be below %s in magnitude", ErrValidationFailed, maxAbsLine)
		}
		if !in.Line.Equal(in.Line.Round(2)) {
			return fmt.Errorf("%w: line has more than two decimal places", ErrValidationFailed)
		}
	}
	if in.Selection != nil && utf8.RuneCountInString(*in.Selection) > MaxSelectionLen {
		return fmt.Errorf("%w: selection exceeds %d characters", ErrValidationFailed, MaxSelectionLen)
	}
	if in.Description != nil && utf8.RuneCountInString(*in.Description) > MaxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrValidationFailed, MaxDescriptionLen)
	}
	return nil
}

// Create records a new Active bet with its potential payout fixed.
func (s *BetService) Create(ctx context.Context, userID int64, in CreateBetInput) (*model.Bet, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	betType, _ := model.ParseBetType(string(in.Type))

	var bet *model.Bet
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Games().GetByID(ctx, in.GameID); err != nil {
			return err
		}
		b := &model.Bet{
			UserID:          userID,
			GameID:          in.GameID,
			Type:            betType,
			Amount:          in.Amount,
			Odds:            in.Odds,
			PotentialPayout: PotentialPayout(in.Amount, in.Odds),
			Line:            in.Line,
			Selection:       in.Selection,
			Description:     in.Description,
			Status:          model.BetActive,
			Volatility:      model.VolatilityMedium,
			CreatedAt:       s.clock.Now().UTC(),
		}
		if err := tx.Bets().Create(ctx, b); err != nil {
			return err
		}
		var err error
		bet, err = tx.Bets().GetByID(ctx, b.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.BetCreated()
	log.Info().
		Int64("user_id", userID).
		Int64("bet_id", bet.ID).
		Int64("game_id", bet.GameID).
		Str("amount", bet.Amount.StringFixed(2)).
		Int("odds", bet.Odds).
		Msg("Bet created")
	return bet, nil
}

// owned loads a bet and hides bets of other users.
func owned(ctx context.Context, st repository.Store, userID, betID int64) (*model.Bet, error) {
	b, err := st.Bets().GetByID(ctx, betID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, repository.ErrBetNotFound
	}
	return b, nil
}

// Get returns one of the user's bets.
func (s *BetService) Get(ctx context.Context, userID, betID int64) (*model.Bet, error) {
	return owned(ctx, s.store, userID, betID)
}

// List returns the user's bets in scope. all and active are newest first;
// settled is most recently settled first.
func (s *BetService) List(ctx context.Context, userID int64, scope model.BetScope) ([]*model.Bet, error) {
	bets, err := s.store.Bets().ListByUser(ctx, userID, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	if scope == model.ScopeSettled {
		sort.SliceStable(bets, func(i, j int) bool {
			a, b := bets[i].SettledAt, bets[j].SettledAt
			if a == nil || b == nil {
				return b == nil && a != nil
			}
			return a.After(*b)
		})
	}
	return bets, nil
}

// ListForGame returns the user's bets on one game.
func (s *BetService) ListForGame(ctx context.Context, userID, gameID int64) ([]*model.Bet, error) {
	if _, err := s.store.Games().GetByID(ctx, gameID); err != nil {
		return nil, err
	}
	bets, err := s.store.Bets().ListByUserAndGame(ctx, userID, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	return bets, nil
}

// Settle moves an Active bet to outcome and fixes its actual payout: Won
// pays the potential payout, Lost pays nothing, Push and Cancelled refund
// the stake. A bet can be settled once.
func (s *BetService) Settle(ctx context.Context, userID, betID int64, outcome model.BetStatus) (*model.Bet, error) {
	outcome, err := model.ParseOutcome(string(outcome))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	var bet *model.Bet
	err = s.locks.WithLockContext(ctx, betLockKey(betID), s.lockWait, func() error {
		return s.store.InTx(ctx, func(tx repository.Store) error {
			b, err := owned(ctx, tx, userID, betID)
			if err != nil {
				return err
			}
			if b.IsSettled() {
				return ErrAlreadySettled
			}
			err = tx.Bets().Settle(ctx, betID, outcome, settlementPayout(b, outcome), s.clock.Now().UTC())
			if errors.Is(err, repository.ErrBetNotActive) {
				return ErrAlreadySettled
			}
			if err != nil {
				return err
			}
			bet, err = tx.Bets().GetByID(ctx, betID)
			return err
		})
	})
	if errors.Is(err, lock.ErrLockTimeout) {
		return nil, fmt.Errorf("%w: bet %d", ErrSettlementBusy, betID)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.BetSettled(string(outcome))
	log.Info().Int64("user_id", userID).Int64("bet_id", betID).Str("outcome", string(outcome)).Msg("Bet settled")

	evt, err := events.New(events.TypeBetSettled, strconv.FormatInt(bet.ID, 10), events.BetSettled{
		BetID:   bet.ID,
		UserID:  bet.UserID,
		GameID:  bet.GameID,
		Outcome: string(bet.Status),
		Payout:  bet.ActualPayout.StringFixed(2),
	})
	if err == nil {
		err = s.events.Publish(ctx, evt)
	}
	if err != nil {
		log.Warn().Err(err).Int64("bet_id", betID).Msg("Failed to publish settlement")
	}
	return bet, nil
}

// UpdateVolatility changes the display tier of one of the user's bets.
func (s *BetService) UpdateVolatility(ctx context.Context, userID, betID int64, v model.Volatility) (*model.Bet, error) {
	if v.Rank() == 0 {
		return nil, fmt.Errorf("%w: unknown volatility %q", ErrValidationFailed, v)
	}
	var bet *model.Bet
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := owned(ctx, tx, userID, betID); err != nil {
			return err
		}
		if err := tx.Bets().UpdateVolatility(ctx, betID, v); err != nil {
			return err
		}
		var err error
		bet, err = tx.Bets().GetByID(ctx, betID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bet, nil
}

// Delete removes one of the user's bets.
func (s *BetService) Delete(ctx context.Context, userID, betID int64) error {
	return s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := owned(ctx, tx, userID, betID); err != nil {
			return err
		}
		return tx.Bets().Delete(ctx, betID)
	})
}

// Stats summarizes the user's ledger. TotalWagered counts every stake,
// TotalWon counts every actual payout including refunds, WinRate is won
// over settled bets and ROI is (TotalWon - TotalWagered) / TotalWagered.
// Both are percentages and zero when their denominator is zero.
func (s *BetService) Stats(ctx context.Context, userID int64) (*BetStats, error) {
	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		return nil, err
	}
	bets, err := s.store.Bets().ListByUser(ctx, userID, model.ScopeAll)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	return computeStats(bets), nil
}

func computeStats(bets []*model.Bet) *BetStats {
	st := &BetStats{
		TotalBets:    len(bets),
		TotalWagered: decimal.Zero,
		TotalWon:     decimal.Zero,
		WinRate:      decimal.Zero,
		ROI:          decimal.Zero,
	}
	settled := 0
	for _, b := range bets {
		st.TotalWagered = st.TotalWagered.Add(b.Amount)
		if b.IsSettled() {
			settled++
		}
		if b.ActualPayout != nil {
			st.TotalWon = st.TotalWon.Add(*b.ActualPayout)
		}
		switch b.Status {
		case model.BetActive:
			st.ActiveBets++
		case model.BetWon:
			st.WonBets++
		case model.BetLost:
			st.LostBets++
		case model.BetPush:
			st.PushBets++
		}
	}
	if settled > 0 {
		st.WinRate = decimal.NewFromInt(int64(st.WonBets)).
			Div(decimal.NewFromInt(int64(settled))).Mul(hundred).Round(2)
	}
	if st.TotalWagered.IsPositive() {
		st.ROI = st.TotalWon.Sub(st.TotalWagered).Div(st.TotalWagered).Mul(hundred).Round(2)
	}
	return st
}
