package internal

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"shop-admin-api/internal/auth"
	"shop-admin-api/internal/logger"
	"shop-admin-api/internal/models"
)

// refreshSession rotates a refresh token. The presented token is consumed so
// it cannot be replayed, and roles are re-read so changes apply on refresh.
func (s *Server) refreshSession(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !decodeInput(w, r, &req) {
		return
	}
	ctx := r.Context()
	log := logger.FromContext(ctx)

	claims, err := s.JWTManager.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		s.Metrics.recordRefresh("invalid")
		auth.SendErrorResponse(w, "Invalid refresh token", "INVALID_REFRESH_TOKEN", http.StatusUnauthorized)
		return
	}
	revoked, err := s.Revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		log.Error("revocation lookup", zap.Error(err))
		auth.SendErrorResponse(w, "Revocation check failed", "REVOCATION_CHECK_FAILED", http.StatusServiceUnavailable)
		return
	}
	if revoked {
		s.Metrics.recordRefresh("revoked")
		log.Warn("revoked refresh token presented", zap.String("user_id", claims.UserID))
		auth.SendErrorResponse(w, "Refresh token has been revoked", "TOKEN_REVOKED", http.StatusUnauthorized)
		return
	}

	var roles pq.StringArray
	var active bool
	err = s.DB.QueryRowContext(ctx, `SELECT roles, is_active FROM users WHERE id = $1 AND account_id = $2`,
		claims.UserID, claims.AccountID).Scan(&roles, &active)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
		s.Metrics.recordRefresh("inactive")
		auth.SendErrorResponse(w, "User is no longer active", "USER_INACTIVE", http.StatusUnauthorized)
		return
	}
	if err != nil {
		writeDBError(w, r, err, "user")
		return
	}

	// The lookup above only turns away known replays early. Consume is the
	// rotation itself, so of concurrent refreshes with one token only one wins.
	fresh, err := s.Revocations.Consume(ctx, claims.ID, claims.RemainingTTL())
	if err != nil {
		log.Error("consume refresh token", zap.Error(err))
		auth.SendErrorResponse(w, "Revocation check failed", "REVOCATION_CHECK_FAILED", http.StatusServiceUnavailable)
		return
	}
	if !fresh {
		s.Metrics.recordRefresh("revoked")
		log.Warn("revoked refresh token presented", zap.String("user_id", claims.UserID))
		auth.SendErrorResponse(w, "Refresh token has been revoked", "TOKEN_REVOKED", http.StatusUnauthorized)
		return
	}

	pair, _, err := s.JWTManager.Refresh(req.RefreshToken, []string(roles))
	if errors.Is(err, auth.ErrMaxRefreshExceeded) {
		s.Metrics.recordRefresh("exhausted")
		auth.SendErrorResponse(w, "Session has reached its refresh limit, sign in again", "MAX_REFRESH_EXCEEDED", http.StatusUnauthorized)
		return
	}
	if err != nil {
		s.Metrics.recordRefresh("error")
		log.Error("refresh token pair", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to generate token", "TOKEN_ERROR")
		return
	}
	s.Metrics.recordRefresh("ok")
	log.Debug("token refreshed", zap.String("user_id", claims.UserID), zap.Int("refresh_count", claims.RefreshCount+1))
	writeJSON(w, http.StatusOK, models.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// logoutSession revokes the refresh token and, when a bearer token comes
// along, the access token too. Invalid tokens are ignored so logout always
// succeeds from the client's point of view.
func (s *Server) logoutSession(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !decodeInput(w, r, &req) {
		return
	}
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if claims, err := s.JWTManager.ValidateRefreshToken(req.RefreshToken); err == nil {
		if err := s.Revocations.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
			log.Error("revoke refresh token", zap.Error(err))
			auth.SendErrorResponse(w, "Revocation failed", "REVOCATION_FAILED", http.StatusServiceUnavailable)
			return
		}
		log.Info("logout", zap.String("user_id", claims.UserID))
	}
	if token, ok := auth.BearerToken(r); ok {
		if claims, err := s.JWTManager.ValidateToken(token); err == nil {
			if err := s.Revocations.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
				log.Warn("revoke access token", zap.Error(err))
			}
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
