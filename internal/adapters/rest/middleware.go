package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// UserIDHeader carries the authenticated user id set by the gateway
const UserIDHeader = "X-User-ID"

type userIDKey struct{}

// WithUserID returns a context carrying the authenticated user id
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFrom returns the authenticated user id stored by the identity middleware
func UserIDFrom(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return userID, ok
}

// identityMiddleware rejects requests without a valid user id header
func identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(UserIDHeader)
		if raw == "" {
			respondErrorCode(w, http.StatusUnauthorized, codeUnauthorized, "missing "+UserIDHeader+" header")
			return
		}

		userID, err := uuid.Parse(raw)
		if err != nil || userID == uuid.Nil {
			respondErrorCode(w, http.StatusUnauthorized, codeUnauthorized, "invalid "+UserIDHeader+" header")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs all HTTP requests
func loggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				if p := recover(); p != nil {
					logger.Error().Interface("panic", p).Str("path", r.URL.Path).Msg("Handler panic")
					respondErrorCode(rec, http.StatusInternalServerError, codeInternal, "internal server error")
				}

				logger.Debug().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", rec.status).
					Dur("duration", time.Since(start)).
					Msg("HTTP request")
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
