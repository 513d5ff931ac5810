package jwt

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Role is the caller role carried in the "role" claim.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"
)

var ErrInvalidToken = errors.New("invalid or revoked token")

// Claims are the fields this service reads from an access token.
type Claims struct {
	UserID    string
	CompanyID string
	Role      Role
}

type Service interface {
	// GenerateAccessToken signs a token for operators and service callers.
	GenerateAccessToken(claims Claims) (token string, expiresAt int64, err error)
	ParseClaims(claims map[string]interface{}) (Claims, error)
	JWTAuth() *jwtauth.JWTAuth
	RevokeToken(token string)
	IsTokenRevoked(token string) bool
}

type JWTService struct {
	accessTokenTTL time.Duration
	tokenAuth      *jwtauth.JWTAuth
	revokedTokens  map[string]int64
	mu             sync.RWMutex
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenTTL time.Duration) Service {
	return &JWTService{
		accessTokenTTL: accessTokenTTL,
		tokenAuth:      jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		revokedTokens:  make(map[string]int64),
	}
}

func (j *JWTService) GenerateAccessToken(claims Claims) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(j.accessTokenTTL).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":    claims.UserID,
		"company_id": claims.CompanyID,
		"role":       string(claims.Role),
		"type":       "access",
		"exp":        expiresAt,
	})
	return tokenString, expiresAt, err
}

// ParseClaims reads an access token claim map as produced by jwtauth.FromContext.
func (j *JWTService) ParseClaims(claims map[string]interface{}) (Claims, error) {
	tokenType, _ := claims["type"].(string)
	if tokenType != "access" {
		return Claims{}, ErrInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	companyID, _ := claims["company_id"].(string)
	role, _ := claims["role"].(string)
	if userID == "" || role == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{UserID: userID, CompanyID: companyID, Role: Role(role)}, nil
}

// CompanyIDFromContext returns the company_id claim of the verified token in ctx.
// It reports false for calls without a token or with an unbound one.
func CompanyIDFromContext(ctx context.Context) (string, bool) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", false
	}
	companyID, ok := claims["company_id"].(string)
	return companyID, ok && companyID != ""
}

func (j *JWTService) RevokeToken(token string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.revokedTokens[token] = time.Now().Unix()
}

func (j *JWTService) IsTokenRevoked(token string) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	_, revoked := j.revokedTokens[token]
	return revoked
}
