package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// Middleware authenticates every RPC request via Bearer token: a service
// PAT first (self-issued, HMAC-signed), falling back to an OIDC ID token
// verified against the configured identity provider (e.g. Firebase Auth).
// The resulting Identity is stored in the request context; if neither
// succeeds, the request is rejected with 401.
func Middleware(patMgr *PATManager, oidcAuth *OIDCAuthenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") && !strings.HasPrefix(authHeader, "bearer ") {
				respondErr(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			rawToken := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(authHeader, "Bearer "), "bearer "))

			var identity *Identity

			if patMgr != nil {
				if claims, err := patMgr.ValidateToken(rawToken); err == nil {
					identity = &Identity{
						Subject:  claims.Subject,
						UserID:   claims.UserID,
						TenantID: claims.TenantID,
						Method:   MethodPAT,
					}
					logger.Debug("authenticated via PAT", "sub", claims.Subject)
				}
			}

			if identity == nil && oidcAuth != nil {
				claims, err := oidcAuth.Authenticate(r.Context(), authHeader)
				if err != nil {
					logger.Warn("OIDC authentication failed", "error", err)
					respondErr(w, http.StatusUnauthorized, "unauthorized", "invalid token")
					return
				}
				identity = &Identity{
					Subject: claims.Subject,
					Email:   claims.Email,
					UserID:  claims.Subject,
					Method:  MethodOIDC,
				}
				logger.Debug("authenticated via OIDC", "sub", claims.Subject, "email", claims.Email)
			}

			if identity == nil {
				respondErr(w, http.StatusUnauthorized, "unauthorized", "no valid authentication provided")
				return
			}

			ctx := NewContext(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CallbackAuth authenticates the Jobber's HTTP callback with a pre-shared
// bearer key (spec §6) — a separate, much narrower trust boundary than
// the frontend-facing RPC endpoint.
func CallbackAuth(bearerKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			rawToken := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(authHeader, "Bearer "), "bearer "))

			if bearerKey == "" || rawToken != bearerKey {
				logger.Warn("rejected jobber callback: invalid bearer key")
				respondErr(w, http.StatusUnauthorized, "unauthorized", "invalid callback credential")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func respondErr(w http.ResponseWriter, status int, errStr, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errStr,
		"message": message,
	})
}
