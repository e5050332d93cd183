package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"
	// UserIDKey is the context key for user ID
	UserIDKey contextKey = "userID"
	// AccountIDKey is the context key for the tenant account ID
	AccountIDKey contextKey = "accountID"
	// RolesKey is the context key for user roles
	RolesKey contextKey = "roles"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ClaimsFromContext extracts the JWT claims from the request context
func ClaimsFromContext(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(ClaimsKey).(*Claims); ok {
		return claims
	}
	return nil
}

// UserIDFromContext extracts the user ID from the request context
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// AccountIDFromContext extracts the account ID from the request context
func AccountIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(AccountIDKey).(string); ok {
		return id
	}
	return ""
}

// RolesFromContext extracts the user roles from the request context
func RolesFromContext(ctx context.Context) []string {
	if roles, ok := ctx.Value(RolesKey).([]string); ok {
		return roles
	}
	return nil
}

// WithClaims stores claims and the values derived from them on ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, AccountIDKey, claims.AccountID)
	return context.WithValue(ctx, RolesKey, claims.Roles)
}

// Public paths that don't require authentication
var publicPaths = map[string]bool{
	"/health":       true,
	"/dbping":       true,
	"/auth/login":   true,
	"/auth/refresh": true,
	"/metrics":      true,
	"/openapi.yaml": true,
	"/docs":         true,
}

// isPublicPath checks if the given path is public (no auth required)
func isPublicPath(path string) bool {
	return publicPaths[path]
}

// SendErrorResponse writes a standardized error response.
func SendErrorResponse(w http.ResponseWriter, message, code string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := ErrorResponse{
		Error: message,
		Code:  code,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// sendTokenExpirationWarning adds a warning header when token expires soon
func sendTokenExpirationWarning(w http.ResponseWriter, expiresAt time.Time) {
	timeUntilExpiry := time.Until(expiresAt)
	if timeUntilExpiry <= 5*time.Minute && timeUntilExpiry > 0 {
		w.Header().Set("X-Token-Expires-At", expiresAt.Format(time.RFC3339))
		w.Header().Set("X-Token-Expires-In", timeUntilExpiry.Round(time.Second).String())
	}
}

// validateTokenFormat performs basic token format validation
func validateTokenFormat(tokenString string) error {
	if len(tokenString) == 0 {
		return errors.New("token cannot be empty")
	}
	if len(tokenString) > 8192 {
		return errors.New("token size exceeds maximum allowed")
	}
	if strings.Count(tokenString, ".") != 2 {
		return errors.New("invalid JWT token format")
	}
	return nil
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")), true
}

// classifyTokenError maps a parse failure to a message and code.
func classifyTokenError(err error) (string, string) {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "Token has expired", "TOKEN_EXPIRED"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return "Invalid token signature", "INVALID_SIGNATURE"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "Token is malformed", "MALFORMED_TOKEN"
	case errors.Is(err, ErrWrongTokenType):
		return "Access token required", "WRONG_TOKEN_TYPE"
	default:
		return "Invalid or expired token", "INVALID_TOKEN"
	}
}

// AuthMiddleware validates JWT access tokens and sets user context. A nil
// store disables the revocation check.
func AuthMiddleware(jwtManager *JWTManager, store RevocationStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if r.Header.Get("Authorization") == "" {
				SendErrorResponse(w, "Authorization header required", "MISSING_AUTH_HEADER", http.StatusUnauthorized)
				return
			}
			tokenString, ok := BearerToken(r)
			if !ok {
				SendErrorResponse(w, "Invalid authorization header format. Expected: Bearer <token>", "INVALID_AUTH_FORMAT", http.StatusUnauthorized)
				return
			}
			if err := validateTokenFormat(tokenString); err != nil {
				SendErrorResponse(w, "Invalid token format: "+err.Error(), "INVALID_TOKEN_FORMAT", http.StatusUnauthorized)
				return
			}

			claims, err := jwtManager.ValidateToken(tokenString)
			if err != nil {
				msg, code := classifyTokenError(err)
				SendErrorResponse(w, msg, code, http.StatusUnauthorized)
				return
			}

			if claims.UserID == "" {
				SendErrorResponse(w, "Invalid user ID in token", "INVALID_USER_ID", http.StatusUnauthorized)
				return
			}
			if claims.AccountID == "" {
				SendErrorResponse(w, "Invalid account ID in token", "INVALID_ACCOUNT_ID", http.StatusUnauthorized)
				return
			}
			if len(claims.Roles) == 0 {
				SendErrorResponse(w, "No roles assigned to user", "NO_ROLES", http.StatusUnauthorized)
				return
			}

			if store != nil {
				revoked, err := store.IsRevoked(r.Context(), claims.ID)
				if err != nil {
					SendErrorResponse(w, "Unable to verify session", "REVOCATION_CHECK_FAILED", http.StatusServiceUnavailable)
					return
				}
				if revoked {
					SendErrorResponse(w, "Session has been logged out", "TOKEN_REVOKED", http.StatusUnauthorized)
					return
				}
			}

			if claims.ExpiresAt != nil {
				sendTokenExpirationWarning(w, claims.ExpiresAt.Time)
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// MustRole creates middleware that requires specific roles
func MustRole(requiredRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				SendErrorResponse(w, "Authentication required", "AUTHENTICATION_REQUIRED", http.StatusUnauthorized)
				return
			}
			if len(requiredRoles) == 0 {
				SendErrorResponse(w, "No roles specified for this endpoint", "NO_ROLES_SPECIFIED", http.StatusInternalServerError)
				return
			}
			if !claims.HasRole(requiredRoles...) {
				SendErrorResponse(w, "Insufficient permissions", "INSUFFICIENT_PERMISSIONS", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
