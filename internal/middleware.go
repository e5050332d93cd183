package internal

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"shop-admin-api/internal/auth"
	"shop-admin-api/internal/logger"
)

// requestLogger attaches a request-scoped zap logger to the context and
// logs one line per request once it completes.
func requestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			l := base.With(zap.String("request_id", middleware.GetReqID(r.Context())))
			rw := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

			next.ServeHTTP(rw, r.WithContext(logger.WithContext(r.Context(), l)))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", routePattern(r)),
				zap.Int("status", rw.code),
				zap.Int("bytes", rw.bytes),
				zap.Duration("duration", time.Since(start)),
			}
			switch {
			case rw.code >= 500:
				l.Error("request", fields...)
			case rw.code >= 400:
				l.Warn("request", fields...)
			default:
				l.Info("request", fields...)
			}
		})
	}
}

// withRLSSession pins a connection carrying the caller's account for the
// row level security policies. It runs after the auth middleware.
func (s *Server) withRLSSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID := auth.AccountIDFromContext(r.Context())
		conn, ctx, err := withDBConn(r.Context(), s.DB, s.cfg.RLSEnabled, accountID)
		if err != nil {
			logger.FromContext(r.Context()).Error("acquire rls connection", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Database connection error", "DB_ERROR")
			return
		}
		if conn != nil {
			defer releaseDBConn(conn)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
