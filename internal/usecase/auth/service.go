package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "taskboard/backend/internal/domain/auth"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the work factor the system has always used.
const bcryptCost = 10

// Service coordinates the session lifecycle between domain and infrastructure.
// It holds no mutable state of its own; all session state lives in the user
// repository.
type Service struct {
	users    domain.UserRepository
	tokens   TokenManager
	validate *validator.Validate
	nowFunc  func() time.Time
}

// NewService constructs an auth service.
func NewService(users domain.UserRepository, tokens TokenManager) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		validate: validator.New(),
		nowFunc:  time.Now,
	}
}

// RegisterInput is the payload required to create an account.
type RegisterInput struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
	Email    string `validate:"required,email"`
}

// Session is the result of a successful register or login.
type Session struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
}

// Register creates a new user and logs them in. The user record is persisted
// before tokens are minted so the claims reference a stored userId; the
// freshly issued refresh token is then written back in a second save.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if err := s.checkInput(input); err != nil {
		return nil, err
	}

	// Email first, then username; both before any write.
	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, domain.ErrEmailExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	if _, err := s.users.GetByUsername(ctx, input.Username); err == nil {
		return nil, domain.ErrUsernameExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc().UTC()
	user := &domain.User{
		UserID:       uuid.NewString(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashed),
		Roles:        map[string]int{domain.RoleUser: domain.DefaultUserRank},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.openSession(ctx, user)
}

// Login validates credentials and opens a new session, rotating the stored
// refresh token so any prior session for the user is invalidated.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (*Session, error) {
	email := strings.TrimSpace(strings.ToLower(creds.Email))
	password := creds.Password
	if email == "" || password == "" {
		return nil, domain.ErrMissingFields
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.openSession(ctx, user)
}

// Logout clears the stored refresh token for whichever user holds the
// presented one. ErrSessionNotFound means the token was already invalid;
// callers treat that as a successful no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	user, err := s.users.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrSessionNotFound
		}
		return err
	}
	return s.users.SaveRefreshToken(ctx, user.UserID, "", s.nowFunc().UTC())
}

// Refresh exchanges a live refresh token for a new access token. The lookup
// by stored value runs before cryptographic verification, so a token revoked
// by logout or superseded by a later login is rejected without reaching
// signature checks. The stored refresh token is not rotated here.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	user, err := s.users.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrSessionNotFound
		}
		return "", err
	}

	subject, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", err
	}
	if subject.UserID != user.UserID {
		return "", domain.ErrTokenMismatch
	}

	return s.tokens.IssueAccessToken(user)
}

// VerifyAccess validates an access token and returns its subject.
func (s *Service) VerifyAccess(tokenString string) (*domain.TokenSubject, error) {
	return s.tokens.VerifyAccessToken(tokenString)
}

func (s *Service) openSession(ctx context.Context, user *domain.User) (*Session, error) {
	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, err
	}
	if err := s.users.SaveRefreshToken(ctx, user.UserID, refreshToken, s.nowFunc().UTC()); err != nil {
		return nil, err
	}
	user.RefreshToken = refreshToken

	return &Session{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *Service) checkInput(input RegisterInput) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		// Absent fields outrank a malformed email.
		for _, fe := range fieldErrs {
			if fe.Tag() == "required" {
				return domain.ErrMissingFields
			}
		}
		return domain.ErrInvalidEmail
	}
	return err
}
