package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	domain "taskboard/backend/internal/domain/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// memoryUserRepo is an in-memory UserRepository for tests.
type memoryUserRepo struct {
	users   map[string]*domain.User
	creates int
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[string]*domain.User{}}
}

func (r *memoryUserRepo) Create(_ context.Context, user *domain.User) error {
	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrEmailExists
		}
		if u.Username == user.Username {
			return domain.ErrUsernameExists
		}
	}
	clone := *user
	r.users[user.UserID] = &clone
	r.creates++
	return nil
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memoryUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memoryUserRepo) GetByRefreshToken(_ context.Context, refreshToken string) (*domain.User, error) {
	if refreshToken == "" {
		return nil, domain.ErrUserNotFound
	}
	for _, u := range r.users {
		if u.RefreshToken == refreshToken {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memoryUserRepo) SaveRefreshToken(_ context.Context, userID, refreshToken string, updatedAt time.Time) error {
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.RefreshToken = refreshToken
	u.UpdatedAt = updatedAt
	return nil
}

// stubTokens issues deterministic tokens and verifies them from a map.
type stubTokens struct {
	counter  int
	subjects map[string]*domain.TokenSubject
	badSigs  map[string]bool
}

func newStubTokens() *stubTokens {
	return &stubTokens{
		subjects: map[string]*domain.TokenSubject{},
		badSigs:  map[string]bool{},
	}
}

func (s *stubTokens) IssueAccessToken(user *domain.User) (string, error) {
	s.counter++
	return fmt.Sprintf("access-%s-%d", user.UserID, s.counter), nil
}

func (s *stubTokens) IssueRefreshToken(user *domain.User) (string, error) {
	s.counter++
	tok := fmt.Sprintf("refresh-%s-%d", user.UserID, s.counter)
	s.subjects[tok] = &domain.TokenSubject{UserID: user.UserID, Email: user.Email}
	return tok, nil
}

func (s *stubTokens) VerifyAccessToken(tokenString string) (*domain.TokenSubject, error) {
	if subject, ok := s.subjects[tokenString]; ok {
		return subject, nil
	}
	return nil, domain.ErrTokenSignature
}

func (s *stubTokens) VerifyRefreshToken(tokenString string) (*domain.TokenSubject, error) {
	if s.badSigs[tokenString] {
		return nil, domain.ErrTokenSignature
	}
	if subject, ok := s.subjects[tokenString]; ok {
		return subject, nil
	}
	return nil, domain.ErrTokenSignature
}

func newTestService() (*Service, *memoryUserRepo, *stubTokens) {
	repo := newMemoryUserRepo()
	tokens := newStubTokens()
	return NewService(repo, tokens), repo, tokens
}

func registerAlice(t *testing.T, svc *Service) *Session {
	t.Helper()
	session, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Password: "secret1",
		Email:    "a@x.com",
	})
	require.NoError(t, err)
	return session
}

func TestRegister_CreatesUserAndSession(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService()
	session := registerAlice(t, svc)

	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	require.NotNil(t, session.User)
	assert.NotEmpty(t, session.User.UserID)
	assert.Equal(t, map[string]int{domain.RoleUser: domain.DefaultUserRank}, session.User.Roles)

	stored, err := repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))
	// The stored refresh token is exactly the issued one.
	assert.Equal(t, session.RefreshToken, stored.RefreshToken)
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name  string
		input RegisterInput
		want  error
	}{
		{"missing username", RegisterInput{Password: "p", Email: "a@x.com"}, domain.ErrMissingFields},
		{"missing password", RegisterInput{Username: "u", Email: "a@x.com"}, domain.ErrMissingFields},
		{"missing email", RegisterInput{Username: "u", Password: "p"}, domain.ErrMissingFields},
		{"malformed email", RegisterInput{Username: "u", Password: "p", Email: "not-an-email"}, domain.ErrInvalidEmail},
	}
	for _, tc := range cases {
		_, err := svc.Register(ctx, tc.input)
		assert.ErrorIs(t, err, tc.want, tc.name)
	}
	assert.Zero(t, repo.creates, "no user may be written on invalid input")
}

func TestRegister_DuplicateChecksBeforeWrite(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService()
	ctx := context.Background()
	registerAlice(t, svc)

	_, err := svc.Register(ctx, RegisterInput{Username: "bob", Password: "p", Email: "a@x.com"})
	assert.ErrorIs(t, err, domain.ErrEmailExists)

	_, err = svc.Register(ctx, RegisterInput{Username: "alice", Password: "p", Email: "b@x.com"})
	assert.ErrorIs(t, err, domain.ErrUsernameExists)

	// Email is checked before username when both collide.
	_, err = svc.Register(ctx, RegisterInput{Username: "alice", Password: "p", Email: "a@x.com"})
	assert.ErrorIs(t, err, domain.ErrEmailExists)

	assert.Equal(t, 1, repo.creates, "duplicates must not reach the store")
}

func TestLogin_Succeeds(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService()
	registered := registerAlice(t, svc)

	session, err := svc.Login(context.Background(), domain.Credentials{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEqual(t, registered.RefreshToken, session.RefreshToken, "login must rotate the refresh token")

	stored, err := repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, session.RefreshToken, stored.RefreshToken)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	registerAlice(t, svc)
	ctx := context.Background()

	_, errUnknown := svc.Login(ctx, domain.Credentials{Email: "nobody@x.com", Password: "secret1"})
	_, errWrongPwd := svc.Login(ctx, domain.Credentials{Email: "a@x.com", Password: "wrong"})

	assert.ErrorIs(t, errUnknown, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPwd, domain.ErrInvalidCredentials)
	assert.Equal(t, errUnknown, errWrongPwd)
}

func TestLogin_MissingFields(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Login(ctx, domain.Credentials{Email: "a@x.com"})
	assert.ErrorIs(t, err, domain.ErrMissingFields)
	_, err = svc.Login(ctx, domain.Credentials{Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrMissingFields)
}

func TestRefresh_IssuesNewAccessTokenWithoutRotation(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService()
	session := registerAlice(t, svc)
	ctx := context.Background()

	accessToken, err := svc.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.NotEqual(t, session.AccessToken, accessToken)

	stored, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, session.RefreshToken, stored.RefreshToken, "refresh must not rotate the stored token")
}

func TestRefresh_RotatedTokenIsRejectedAtLookup(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	session := registerAlice(t, svc)
	ctx := context.Background()

	// A second login supersedes the first session's refresh token.
	_, err := svc.Login(ctx, domain.Credentials{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRefresh_StoredButUnverifiableTokenIsRejected(t *testing.T) {
	t.Parallel()

	svc, _, tokens := newTestService()
	session := registerAlice(t, svc)

	// The literal value is still stored on the user, but its signature no
	// longer verifies; the claims must not be trusted.
	tokens.badSigs[session.RefreshToken] = true

	_, err := svc.Refresh(context.Background(), session.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenSignature)
}

func TestRefresh_SubjectMismatchIsRejected(t *testing.T) {
	t.Parallel()

	svc, _, tokens := newTestService()
	session := registerAlice(t, svc)

	tokens.subjects[session.RefreshToken] = &domain.TokenSubject{UserID: "someone-else", Email: "a@x.com"}

	_, err := svc.Refresh(context.Background(), session.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenMismatch)
}

func TestLogout_ClearsStoredToken(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService()
	session := registerAlice(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.Logout(ctx, session.RefreshToken))

	stored, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Empty(t, stored.RefreshToken)

	// Second logout with the same token is already invalid.
	err = svc.Logout(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = svc.Refresh(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
