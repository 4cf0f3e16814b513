package auth

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for credential records.
// Lookups return ErrUserNotFound when no record matches; each lookup matches
// at most one record (userId, username, email, and live refresh tokens are
// unique across all users).
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (*User, error)
	// SaveRefreshToken overwrites the stored refresh token. An empty token
	// clears the session.
	SaveRefreshToken(ctx context.Context, userID, refreshToken string, updatedAt time.Time) error
}
