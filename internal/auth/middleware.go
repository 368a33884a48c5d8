package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

type contextKey string

const UserContextKey contextKey = "user"

// CookieName is the cookie the login handler sets
const CookieName = "insights_session"

// DevSessionID is the fixed session used when the gate is bypassed
const DevSessionID = "dev"

// Gate rejects requests without a valid session token
type Gate struct {
	tokens   *Tokens
	skipAuth bool
	logger   zerolog.Logger
}

// NewGate creates a Gate. With skipAuth set every request runs as a dev admin.
func NewGate(tokens *Tokens, skipAuth bool, logger zerolog.Logger) *Gate {
	return &Gate{
		tokens:   tokens,
		skipAuth: skipAuth,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// SkipAuth reports whether the gate is bypassed
func (g *Gate) SkipAuth() bool {
	return g.skipAuth
}

// Middleware validates the session token and puts its claims in the context
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.skipAuth {
			ctx := context.WithValue(r.Context(), UserContextKey, &Claims{
				Username:  "dev",
				Role:      "admin",
				SessionID: DevSessionID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		tokenString := extractToken(r)
		if tokenString == "" {
			g.logger.Debug().Str("path", r.URL.Path).Msg("missing session token")
			unauthorized(w, "missing token")
			return
		}

		claims, err := g.tokens.Parse(tokenString)
		if err != nil {
			g.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("token validation failed")
			unauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken gets the token from the Authorization header, the token query
// parameter or the session cookie, in that order
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString != authHeader {
			return tokenString
		}
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}

	return ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","message":"` + message + `"}`))
}

// GetUserFromContext retrieves user claims from request context
func GetUserFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*Claims)
	return claims, ok
}
