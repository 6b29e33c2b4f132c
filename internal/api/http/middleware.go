package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/ibndev/citystaff-backend/internal/logger"
	"github.com/ibndev/citystaff-backend/internal/observability"
	"github.com/ibndev/citystaff-backend/internal/security"
)

type contextKey string

const claimsKey contextKey = "claims"

// claimsFrom returns the validated claims the auth middleware stored.
func claimsFrom(ctx context.Context) *security.Claims {
	c, _ := ctx.Value(claimsKey).(*security.Claims)
	return c
}

// bearerToken extracts the token from the Authorization header, falling
// back to the "token" query parameter for websocket upgrades where
// browsers cannot set headers.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// authMiddleware validates the access token and requires one of the
// given roles when any are listed.
func authMiddleware(tokens security.TokenManager, roles ...security.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondJSON(w, http.StatusUnauthorized, apiError{Error: "missing token"})
				return
			}
			claims, err := tokens.ValidateToken(token)
			if err != nil || claims.Type != security.TokenTypeAccess {
				respondJSON(w, http.StatusUnauthorized, apiError{Error: "invalid token"})
				return
			}
			if len(roles) > 0 {
				allowed := false
				for _, role := range roles {
					if claims.Role == role {
						allowed = true
						break
					}
				}
				if !allowed {
					respondJSON(w, http.StatusForbidden, apiError{Error: "forbidden"})
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrumentMiddleware records latency per route and logs each request.
func instrumentMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		elapsed := time.Since(start)
		observability.HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).
			Observe(elapsed.Seconds())
		logger.Debug("http request",
			"method", r.Method,
			"route", route,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}
