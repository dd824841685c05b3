package model

import (
	"fmt"
	"strings"
)

// GameStatus is the lifecycle state of a game.
type GameStatus string

// Game statuses.
const (
	GameScheduled GameStatus = "Scheduled"
	GameLive      GameStatus = "Live"
	GameHalftime  GameStatus = "Halftime"
	GameFinal     GameStatus = "Final"
	GamePostponed GameStatus = "Postponed"
	GameCancelled GameStatus = "Cancelled"
)

var gameStatuses = []GameStatus{GameScheduled, GameLive, GameHalftime, GameFinal, GamePostponed, GameCancelled}

// ParseGameStatus parses a status name case-insensitively.
func ParseGameStatus(s string) (GameStatus, error) {
	for _, st := range gameStatuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown game status %q", s)
}

// FeedStatus is the closed set of status codes the upstream feed reports.
// Anything the feed sends that is not listed maps to FeedUnrecognized.
type FeedStatus int

// Upstream feed statuses.
const (
	FeedUnrecognized FeedStatus = iota
	FeedScheduled
	FeedInProgress
	FeedHalftime
	FeedFinal
	FeedPostponed
	FeedCanceled
)

var feedStatusNames = map[string]FeedStatus{
	"STATUS_SCHEDULED":   FeedScheduled,
	"STATUS_IN_PROGRESS": FeedInProgress,
	"STATUS_HALFTIME":    FeedHalftime,
	"STATUS_FINAL":       FeedFinal,
	"STATUS_POSTPONED":   FeedPostponed,
	"STATUS_CANCELED":    FeedCanceled,
}

// ParseFeedStatus maps an upstream status code, ignoring case.
func ParseFeedStatus(code string) FeedStatus {
	if st, ok := feedStatusNames[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return st
	}
	return FeedUnrecognized
}

// GameStatus converts the feed status into the local lifecycle state.
// Unrecognized codes fall back to Scheduled.
func (f FeedStatus) GameStatus() GameStatus {
	switch f {
	case FeedInProgress:
		return GameLive
	case FeedHalftime:
		return GameHalftime
	case FeedFinal:
		return GameFinal
	case FeedPostponed:
		return GamePostponed
	case FeedCanceled:
		return GameCancelled
	default:
		return GameScheduled
	}
}

// IsScheduled reports whether the feed explicitly marked the event as not started.
func (f FeedStatus) IsScheduled() bool {
	return f == FeedScheduled
}

// BetType is the market a bet was placed on.
type BetType string

// Bet types.
const (
	BetMoneyline BetType = "Moneyline"
	BetSpread    BetType = "Spread"
	BetOverUnder BetType = "OverUnder"
	BetParlay    BetType = "Parlay"
	BetProp      BetType = "Prop"
)

var betTypes = []BetType{BetMoneyline, BetSpread, BetOverUnder, BetParlay, BetProp}

// ParseBetType parses a bet type case-insensitively. "PointSpread" is accepted as Spread.
func ParseBetType(s string) (BetType, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "PointSpread") {
		return BetSpread, nil
	}
	for _, bt := range betTypes {
		if strings.EqualFold(string(bt), s) {
			return bt, nil
		}
	}
	return "", fmt.Errorf("unknown bet type %q", s)
}

// BetStatus is the settlement state of a bet.
type BetStatus string

// Bet statuses. Active is the only non-terminal state.
const (
	BetActive    BetStatus = "Active"
	BetWon       BetStatus = "Won"
	BetLost      BetStatus = "Lost"
	BetPush      BetStatus = "Push"
	BetCancelled BetStatus = "Cancelled"
)

// ParseOutcome parses a terminal bet status. Active is rejected.
func ParseOutcome(s string) (BetStatus, error) {
	for _, st := range []BetStatus{BetWon, BetLost, BetPush, BetCancelled} {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid settlement outcome %q", s)
}

// Volatility is a display-only risk tier.
type Volatility string

// Volatility tiers.
const (
	VolatilityLow     Volatility = "Low"
	VolatilityMedium  Volatility = "Medium"
	VolatilityHigh    Volatility = "High"
	VolatilityExtreme Volatility = "Extreme"
)

// Rank orders tiers from Low (1) to Extreme (4); unknown tiers rank 0.
func (v Volatility) Rank() int {
	switch v {
	case VolatilityLow:
		return 1
	case VolatilityMedium:
		return 2
	case VolatilityHigh:
		return 3
	case VolatilityExtreme:
		return 4
	}
	return 0
}

// ParseVolatility parses a tier case-insensitively.
func ParseVolatility(s string) (Volatility, error) {
	for _, v := range []Volatility{VolatilityLow, VolatilityMedium, VolatilityHigh, VolatilityExtreme} {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown volatility %q", s)
}

// BetScope selects which of a user's bets to list.
type BetScope string

// Bet listing scopes.
const (
	ScopeAll     BetScope = "all"
	ScopeActive  BetScope = "active"
	ScopeSettled BetScope = "settled"
)

// ParseBetScope parses a scope; empty means all.
func ParseBetScope(s string) (BetScope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return ScopeAll, nil
	case "active":
		return ScopeActive, nil
	case "settled":
		return ScopeSettled, nil
	}
	return "", fmt.Errorf("unknown bet scope %q", s)
}
