package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wager-tracker/internal/model"
)

// UserRepo handles user data persistence.
type UserRepo struct {
	db DBTX
}

// NewUserRepository creates a new UserRepo instance.
func NewUserRepository(db DBTX) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, username, email, password_hash, time_zone, is_active, is_premium, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.TimeZone,
		&user.IsActive,
		&user.IsPremium,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new account and fills ID and CreatedAt.
// Returns ErrDuplicate if the email or username is taken.
func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	const query = `
		INSERT INTO users (username, email, password_hash, time_zone, is_active, is_premium, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.TimeZone, user.IsActive, user.IsPremium,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return fmt.Errorf("%w: user %s", ErrDuplicate, user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by id.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email, ignoring case.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Exists reports whether the email or the username is already registered.
func (r *UserRepo) Exists(ctx context.Context, email, username string) (emailTaken, usernameTaken bool, err error) {
	const query = `
		SELECT
			EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1)),
			EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($2))
	`

	if err := r.db.QueryRow(ctx, query, email, username).Scan(&emailTaken, &usernameTaken); err != nil {
		return false, false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return emailTaken, usernameTaken, nil
}

// UpdateTimeZone sets the user's preferred zone.
func (r *UserRepo) UpdateTimeZone(ctx context.Context, id int64, zone string) error {
	const query = `
		UPDATE users
		SET time_zone = $2
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, zone)
	if err != nil {
		return fmt.Errorf("failed to update time zone: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}
