package auth

import domain "taskboard/backend/internal/domain/auth"

// TokenManager abstracts token issuance and verification. The two token
// families are signed with distinct secrets; Verify* fail with the domain
// token errors (expired, malformed, signature invalid).
type TokenManager interface {
	IssueAccessToken(user *domain.User) (string, error)
	IssueRefreshToken(user *domain.User) (string, error)
	VerifyAccessToken(tokenString string) (*domain.TokenSubject, error)
	VerifyRefreshToken(tokenString string) (*domain.TokenSubject, error)
}
