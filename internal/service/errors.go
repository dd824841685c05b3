// Package service implements the tracker's use cases on top of the store:
// feed reconciliation, the betting ledger, game queries and accounts.
package service

import (
	"errors"
	"time"
)

// Service errors. Store lookups surface as repository.ErrNotFound (wrapped)
// and zone/window problems as timezone.ErrInvalidZone and
// schedule.ErrInvalidWindow.
var (
	ErrValidationFailed   = errors.New("validation failed")
	ErrAlreadySettled     = errors.New("bet already settled")
	ErrSettlementBusy     = errors.New("bet is being settled")
	ErrSyncInProgress     = errors.New("sync already in progress")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is inactive")
)

// Clock supplies the current instant. go-clock's clock.Clock satisfies it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func clockOrSystem(c Clock) Clock {
	if c == nil {
		return systemClock{}
	}
	return c
}
