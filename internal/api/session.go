package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/insights/internal/auth"
	"github.com/dennisdiepolder/monti/insights/internal/session"
)

type sessionKey struct{}

// SessionMiddleware loads the caller's session. It must run behind the auth gate.
func SessionMiddleware(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.GetUserFromContext(r.Context())
			if !ok {
				unauthorized(w, "")
				return
			}

			var s *session.Session
			if claims.SessionID == auth.DevSessionID {
				s = sessions.Ensure(auth.DevSessionID, claims.Username, claims.Role)
			} else {
				var err error
				s, err = sessions.Get(claims.SessionID)
				if err != nil {
					unauthorized(w, "session expired")
					return
				}
			}

			ctx := context.WithValue(r.Context(), sessionKey{}, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFrom(r *http.Request) *session.Session {
	s, _ := r.Context().Value(sessionKey{}).(*session.Session)
	return s
}

// AuthHandler serves the mock login and logout endpoints
type AuthHandler struct {
	authn    *auth.Authenticator
	tokens   *auth.Tokens
	sessions *session.Manager
	logger   zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authn *auth.Authenticator, tokens *auth.Tokens, sessions *session.Manager, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authn:    authn,
		tokens:   tokens,
		sessions: sessions,
		logger:   logger.With().Str("component", "auth_handler").Logger(),
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// Login checks credentials and starts a session
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body", err)
		return
	}

	role, err := h.authn.Authenticate(req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.logger.Warn().Str("user", req.Username).Msg("login rejected")
		unauthorized(w, err.Error())
		return
	}
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	s := h.sessions.Create(req.Username, role)
	token, expires, err := h.tokens.Issue(req.Username, role, s.ID)
	if err != nil {
		h.sessions.Delete(s.ID)
		respondError(w, r, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expires,
		Username:  req.Username,
		Role:      role,
	})
}

// Logout ends the caller's session and clears the cookie
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := auth.GetUserFromContext(r.Context()); ok {
		h.sessions.Delete(claims.SessionID)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}
