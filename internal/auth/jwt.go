package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrWrongTokenType     = errors.New("wrong token type")
	ErrMaxRefreshExceeded = errors.New("maximum refresh count exceeded")
)

// Claims represents the JWT claims structure
type Claims struct {
	UserID       string    `json:"uid"`
	AccountID    string    `json:"account_id"`
	Roles        []string  `json:"roles"`
	TokenType    TokenType `json:"token_type"`
	RefreshCount int       `json:"refresh_count,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair is what login and refresh hand back to the caller.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// JWTManager handles JWT operations
type JWTManager struct {
	secret          string
	refreshSecret   string
	issuer          string
	audience        string
	expiry          time.Duration
	refreshExpiry   time.Duration
	maxRefreshCount int
}

// NewJWTManager creates a new JWT manager. An empty refreshSecret reuses
// the access secret; zero refreshExpiry or maxRefresh get sane defaults.
func NewJWTManager(secret, refreshSecret, issuer, audience string, expiry, refreshExpiry time.Duration, maxRefresh int) *JWTManager {
	if refreshSecret == "" {
		refreshSecret = secret
	}
	if refreshExpiry <= 0 {
		refreshExpiry = 7 * 24 * time.Hour
	}
	if maxRefresh <= 0 {
		maxRefresh = 10
	}
	return &JWTManager{
		secret:          secret,
		refreshSecret:   refreshSecret,
		issuer:          issuer,
		audience:        audience,
		expiry:          expiry,
		refreshExpiry:   refreshExpiry,
		maxRefreshCount: maxRefresh,
	}
}

// GenerateToken creates a single access token.
func (j *JWTManager) GenerateToken(userID, accountID string, roles []string) (string, error) {
	claims := j.claims(userID, accountID, roles, AccessToken, 0, j.expiry)
	return j.sign(claims, j.secret)
}

// GeneratePair issues a fresh access/refresh pair.
func (j *JWTManager) GeneratePair(userID, accountID string, roles []string) (*TokenPair, error) {
	return j.pair(userID, accountID, roles, 0)
}

func (j *JWTManager) pair(userID, accountID string, roles []string, refreshCount int) (*TokenPair, error) {
	access := j.claims(userID, accountID, roles, AccessToken, refreshCount, j.expiry)
	refresh := j.claims(userID, accountID, roles, RefreshToken, refreshCount, j.refreshExpiry)

	accessToken, err := j.sign(access, j.secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refreshToken, err := j.sign(refresh, j.refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  access.ExpiresAt.Time,
		RefreshExpiresAt: refresh.ExpiresAt.Time,
	}, nil
}

func (j *JWTManager) claims(userID, accountID string, roles []string, typ TokenType, refreshCount int, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		UserID:       userID,
		AccountID:    accountID,
		Roles:        roles,
		TokenType:    typ,
		RefreshCount: refreshCount,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.issuer,
			Audience:  []string{j.audience},
			Subject:   userID,
		},
	}
}

func (j *JWTManager) sign(claims *Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken validates and parses an access token
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, j.secret, AccessToken)
}

// ValidateRefreshToken validates and parses a refresh token
func (j *JWTManager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, j.refreshSecret, RefreshToken)
}

func (j *JWTManager) validate(tokenString, secret string, want TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(j.issuer), jwt.WithAudience(j.audience))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != want {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// Refresh rotates a refresh token into a new pair. The caller supplies the
// current roles so a role change takes effect at the next refresh.
func (j *JWTManager) Refresh(refreshToken string, roles []string) (*TokenPair, *Claims, error) {
	claims, err := j.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, err
	}
	if claims.RefreshCount >= j.maxRefreshCount {
		return nil, claims, ErrMaxRefreshExceeded
	}
	if roles == nil {
		roles = claims.Roles
	}
	pair, err := j.pair(claims.UserID, claims.AccountID, roles, claims.RefreshCount+1)
	if err != nil {
		return nil, claims, err
	}
	return pair, claims, nil
}

// Expiry returns the access token lifetime.
func (j *JWTManager) Expiry() time.Duration { return j.expiry }

// HasRole checks if the user has any of the required roles
func (c *Claims) HasRole(requiredRoles ...string) bool {
	for _, required := range requiredRoles {
		for _, userRole := range c.Roles {
			if userRole == required {
				return true
			}
		}
	}
	return false
}

// RemainingTTL is how long until the token expires, never negative.
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	if d := time.Until(c.ExpiresAt.Time); d > 0 {
		return d
	}
	return 0
}
