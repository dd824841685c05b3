package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"wager-tracker/internal/auth"
	"wager-tracker/internal/model"
	"wager-tracker/internal/repository"
	"wager-tracker/internal/timezone"
)

// Account field limits.
const (
	MinUsernameLen = 3
	MaxUsernameLen = 50
	MinPasswordLen = 6
	MaxEmailLen    = 255

	// bcrypt rejects longer passwords.
	MaxPasswordBytes = 72
)

// RegisterInput is a new account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	TimeZone string // empty means Eastern
}

// Session is an issued token with the account it belongs to.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

// AccountService registers users and issues their tokens.
type AccountService struct {
	store  repository.Store
	tokens *auth.TokenIssuer
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(store repository.Store, tokens *auth.TokenIssuer) *AccountService {
	return &AccountService{store: store, tokens: tokens}
}

func (s *AccountService) session(user *model.User) (*Session, error) {
	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, User: user}, nil
}

func validateRegistration(in *RegisterInput) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.TimeZone = strings.TrimSpace(in.TimeZone)

	if n := utf8.RuneCountInString(in.Username); n < MinUsernameLen || n > MaxUsernameLen {
		return fmt.Errorf("%w: username must be %d-%d characters", ErrValidationFailed, MinUsernameLen, MaxUsernameLen)
	}
	if len(in.Email) > MaxEmailLen {
		return fmt.Errorf("%w: email exceeds %d characters", ErrValidationFailed, MaxEmailLen)
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return fmt.Errorf("%w: invalid email address", ErrValidationFailed)
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidationFailed, MinPasswordLen)
	}
	if len(in.Password) > MaxPasswordBytes {
		return fmt.Errorf("%w: password exceeds %d bytes", ErrValidationFailed, MaxPasswordBytes)
	}
	if in.TimeZone == "" {
		in.TimeZone = timezone.DefaultZoneID
	}
	// Write path: an unknown zone is rejected, never substituted.
	return timezone.Validate(in.TimeZone)
}

// Register creates an account and signs the user in.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if err := validateRegistration(&in); err != nil {
		return nil, err
	}

	emailTaken, usernameTaken, err := s.store.Users().Exists(ctx, in.Email, in.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check account: %w", err)
	}
	if emailTaken {
		return nil, fmt.Errorf("%w: email already registered", repository.ErrDuplicate)
	}
	if usernameTaken {
		return nil, fmt.Errorf("%w: username already taken", repository.ErrDuplicate)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		TimeZone:     in.TimeZone,
		IsActive:     true,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}

	log.Info().Int64("user_id", user.ID).Str("username", user.Username).Str("tz", user.TimeZone).Msg("Account registered")
	return s.session(user)
}

// Login checks credentials and issues a token.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.store.Users().GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	return s.session(user)
}

// Me returns the caller's account.
func (s *AccountService) Me(ctx context.Context, userID int64) (*model.User, error) {
	return s.store.Users().GetByID(ctx, userID)
}

// UpdateTimeZone validates and stores a new zone, returning a token that
// carries it.
func (s *AccountService) UpdateTimeZone(ctx context.Context, userID int64, zoneID string) (*Session, error) {
	zoneID = strings.TrimSpace(zoneID)
	if err := timezone.Validate(zoneID); err != nil {
		return nil, err
	}

	var user *model.User
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().UpdateTimeZone(ctx, userID, zoneID); err != nil {
			return err
		}
		var err error
		user, err = tx.Users().GetByID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int64("user_id", userID).Str("tz", zoneID).Msg("Time zone updated")
	return s.session(user)
}
