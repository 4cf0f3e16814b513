package token

import (
	"errors"
	"time"

	domain "taskboard/backend/internal/domain/auth"
	usecase "taskboard/backend/internal/usecase/auth"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager issues and validates the two token families. Access and refresh
// tokens are signed with independent secrets so that a leaked access secret
// cannot mint long-lived refresh tokens.
type JWTManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	nowFunc       func() time.Time
}

// NewJWTManager constructs a manager with the provided secrets and lifetimes.
func NewJWTManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		nowFunc:       time.Now,
	}
}

// Ensure JWTManager implements the TokenManager interface.
var _ usecase.TokenManager = (*JWTManager)(nil)

// UserInfo is the claim block embedded in access tokens.
type UserInfo struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Roles  []int  `json:"roles"`
}

// AccessClaims represents access-token claims.
type AccessClaims struct {
	UserInfo UserInfo `json:"UserInfo"`
	jwt.RegisteredClaims
}

// RefreshClaims represents refresh-token claims.
type RefreshClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// IssueAccessToken creates a signed access token for the user.
func (m *JWTManager) IssueAccessToken(user *domain.User) (string, error) {
	now := m.nowFunc().UTC()
	claims := AccessClaims{
		UserInfo: UserInfo{
			UserID: user.UserID,
			Email:  user.Email,
			Roles:  user.RoleRanks(),
		},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.accessSecret)
}

// IssueRefreshToken creates a signed refresh token for the user.
func (m *JWTManager) IssueRefreshToken(user *domain.User) (string, error) {
	now := m.nowFunc().UTC()
	claims := RefreshClaims{
		UserID: user.UserID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.refreshSecret)
}

// VerifyAccessToken parses and validates an access token.
func (m *JWTManager) VerifyAccessToken(tokenString string) (*domain.TokenSubject, error) {
	claims := &AccessClaims{}
	if err := m.parse(tokenString, claims, m.accessSecret); err != nil {
		return nil, err
	}
	return &domain.TokenSubject{
		UserID: claims.UserInfo.UserID,
		Email:  claims.UserInfo.Email,
		Roles:  claims.UserInfo.Roles,
	}, nil
}

// VerifyRefreshToken parses and validates a refresh token.
func (m *JWTManager) VerifyRefreshToken(tokenString string) (*domain.TokenSubject, error) {
	claims := &RefreshClaims{}
	if err := m.parse(tokenString, claims, m.refreshSecret); err != nil {
		return nil, err
	}
	return &domain.TokenSubject{
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}

func (m *JWTManager) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.nowFunc() }))
	if err != nil {
		return mapJWTError(err)
	}
	if !token.Valid {
		return domain.ErrTokenMalformed
	}
	return nil
}

// mapJWTError folds jwt/v5 sentinel errors into the domain taxonomy so
// callers can log expiry, tampering, and garbage distinctly.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return domain.ErrTokenMalformed
	default:
		return domain.ErrTokenMalformed
	}
}
