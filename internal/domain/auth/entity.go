package auth

import (
	"errors"
	"time"
)

var (
	// ErrMissingFields indicates a required registration or login field was absent.
	ErrMissingFields = errors.New("required fields missing")
	// ErrInvalidEmail indicates the supplied email is not syntactically valid.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrEmailExists signals a duplicate email registration.
	ErrEmailExists = errors.New("email already exists")
	// ErrUsernameExists signals a duplicate username registration.
	ErrUsernameExists = errors.New("username already exists")
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound indicates missing user.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound means no user currently holds the presented refresh token.
	ErrSessionNotFound = errors.New("no session for refresh token")
	// ErrTokenExpired means a token's expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed means a token could not be parsed at all.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenSignature means a token's signature did not verify.
	ErrTokenSignature = errors.New("token signature invalid")
	// ErrTokenMismatch means a verified token's claims do not match the session owner.
	ErrTokenMismatch = errors.New("token subject mismatch")
)

// RoleUser names the role assigned to every new account.
const RoleUser = "User"

// DefaultUserRank is the rank bound to RoleUser at creation.
const DefaultUserRank = 2001

// User models the credential record persisted in storage. RefreshToken is the
// empty string when the user has no active session.
type User struct {
	UserID       string
	Username     string
	Email        string
	PasswordHash string
	Roles        map[string]int
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleRanks returns the numeric ranks carried in access-token claims.
func (u *User) RoleRanks() []int {
	ranks := make([]int, 0, len(u.Roles))
	for _, rank := range u.Roles {
		ranks = append(ranks, rank)
	}
	return ranks
}

// Credentials captures raw credential input for login.
type Credentials struct {
	Email    string
	Password string
}

// TokenSubject is the identity decoded from a verified token. Roles is nil
// for refresh tokens, which do not carry role claims.
type TokenSubject struct {
	UserID string
	Email  string
	Roles  []int
}
