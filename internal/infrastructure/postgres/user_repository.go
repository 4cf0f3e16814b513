package postgres

import (
	"context"
	"errors"
	"time"

	domain "taskboard/backend/internal/domain/auth"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository persists credential records in PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository constructs a repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

var _ domain.UserRepository = (*UserRepository)(nil)

// Create inserts a new user record. A duplicate-check race that loses at the
// uniqueness constraint still surfaces as the matching conflict error.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
INSERT INTO users (id, username, email, password_hash, roles, refresh_token, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	_, err := r.pool.Exec(ctx, query,
		user.UserID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Roles,
		user.RefreshToken,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		switch violatedConstraint(err) {
		case "users_email_key":
			return domain.ErrEmailExists
		case "users_username_key":
			return domain.ErrUsernameExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email = $1", email)
}

// GetByUsername fetches a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, "username = $1", username)
}

// GetByRefreshToken fetches the single user currently holding the token.
func (r *UserRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.User, error) {
	return r.getBy(ctx, "refresh_token = $1 AND refresh_token <> ''", refreshToken)
}

// SaveRefreshToken overwrites the stored refresh token for a user.
func (r *UserRepository) SaveRefreshToken(ctx context.Context, userID, refreshToken string, updatedAt time.Time) error {
	const query = `
UPDATE users
SET refresh_token = $2, updated_at = $3
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, query, userID, refreshToken, updatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) getBy(ctx context.Context, where string, arg any) (*domain.User, error) {
	query := `
SELECT id, username, email, password_hash, roles, refresh_token, created_at, updated_at
FROM users WHERE ` + where
	row := r.pool.QueryRow(ctx, query, arg)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.UserID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Roles,
		&u.RefreshToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
