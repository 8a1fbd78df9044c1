package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/parley/parley/internal/auth"
	"github.com/parley/parley/internal/cache"
	"github.com/parley/parley/internal/metrics"
	"github.com/parley/parley/internal/model"
)

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Verifier auth.Verifier
	Cache    *cache.Cache
	Metrics  metrics.Recorder
}

// Auth returns a middleware that authenticates requests. It extracts the
// bearer credential from the Authorization header, resolves it to a
// principal via the cache or the identity verifier, and injects the
// principal into the request context.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, reason := resolvePrincipal(r, cfg)
			if principal == nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", reason),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			ctx := auth.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves a principal when a credential is present but
// lets anonymous requests through. A present-but-invalid credential is
// still rejected so a client never silently loses its identity.
func OptionalAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if extractBearerToken(r) == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, reason := resolvePrincipal(r, cfg)
			if principal == nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", reason),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			ctx := auth.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolvePrincipal turns the request credential into a principal, or
// returns a failure reason for the log line.
func resolvePrincipal(r *http.Request, cfg AuthConfig) (*model.Principal, string) {
	token := extractBearerToken(r)
	if token == "" {
		return nil, "missing_token"
	}

	// Cache first; the digest keeps raw credentials out of Redis
	digest := auth.TokenDigest(token)
	if cfg.Cache != nil {
		if cached, err := cfg.Cache.GetPrincipal(r.Context(), digest); err == nil && cached != nil {
			cfg.Metrics.IncPrincipalCacheHit()
			return cached, ""
		}
		cfg.Metrics.IncPrincipalCacheMiss()
	}

	principal, err := cfg.Verifier.Verify(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return nil, "invalid_token"
		}
		return nil, "verifier_error"
	}

	if cfg.Cache != nil {
		_ = cfg.Cache.SetPrincipal(r.Context(), digest, principal)
	}

	return principal, ""
}

// extractBearerToken extracts the credential from the Authorization header.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"message":"Invalid or missing credentials"}`))
}
