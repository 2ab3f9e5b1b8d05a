package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nexfreight/broker/internal/audit"
	"github.com/nexfreight/broker/internal/brokererr"
)

type ctxKey int

const (
	ctxClaimsKey ctxKey = iota
)

func withClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ctxClaimsKey, claims)
}

// ClaimsFromContext returns the authenticated session's claims, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ctxClaimsKey).(*Claims)
	return claims, ok && claims != nil
}

// authMiddleware validates the bearer token and attaches its claims to the
// request context. Public routes are mounted outside this middleware's
// sub-router rather than special-cased by path here.
func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			writeError(w, http.StatusUnauthorized, brokererr.ErrAuthenticationRequired)
			return
		}
		claims, err := a.sessions.Validate(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, brokererr.ErrAuthenticationRequired)
			return
		}
		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

// requirePermission rejects requests whose session role lacks perm, and
// requests targeting a critical operation without a verified 2FA step-up.
func (a *API) requirePermission(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, brokererr.ErrAuthenticationRequired)
				return
			}
			if !claims.Role.Allows(perm) {
				writeError(w, http.StatusForbidden, brokererr.ErrAuthorizationDenied)
				return
			}
			if RequiresStepUp(perm) && !claims.StepUpVerified {
				writeError(w, http.StatusForbidden, brokererr.ErrAuthenticationRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireRole rejects requests whose session role isn't exactly one of
// allowed, regardless of what permissions that role otherwise holds. Used
// for the handful of operations restricted to a specific role plus 2FA
// rather than to anyone holding the associated permission.
func (a *API) requireRole(allowed ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, brokererr.ErrAuthenticationRequired)
				return
			}
			for _, role := range allowed {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, brokererr.ErrAuthorizationDenied)
		})
	}
}

// rateLimitMiddleware gates by (route pattern, caller identity) using the
// shared token-bucket limiter; unauthenticated callers are keyed by remote
// address.
func (a *API) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if claims, ok := ClaimsFromContext(r.Context()); ok {
			key = claims.UserID
		}
		endpoint := r.Method + " " + routePattern(r)
		if !a.limiter.Allow(endpoint, key) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, brokererr.ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}

// auditMiddleware records every request's caller, route, and resulting
// status as an audit entry once the handler completes. Recorded rather
// than pre-empted: the middleware digests the request/response it sees,
// it does not change whether the operation runs.
func (a *API) auditMiddleware(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			claims, _ := ClaimsFromContext(r.Context())
			actor := "anonymous"
			if claims != nil {
				actor = claims.UserID
			}
			a.audit.Append(r.Context(), audit.Record{
				AgentKind:      "api",
				ResourceID:     r.URL.Path,
				Action:         action,
				Input:          []byte(r.Method + " " + r.URL.String()),
				Output:         []byte(strconv.Itoa(rec.status)),
				Rationale:      "operator " + actor + " invoked " + action,
				RetentionUntil: time.Now().AddDate(1, 0, 0),
			})
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
