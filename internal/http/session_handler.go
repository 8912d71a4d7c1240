package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"pressgate/internal/auth"
	"pressgate/internal/identity"
	"pressgate/internal/session"
)

const sessionCookieName = "pressgate_session"

type sessionStore interface {
	CreateSession(ctx context.Context, claims identity.Claims, userAgent, ipAddress string) (string, error)
	ValidateSession(ctx context.Context, token string) (*auth.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// sessionCookies issues and clears the delegated session cookie.
type sessionCookies struct {
	ttl    time.Duration
	secure bool
}

func (c sessionCookies) set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.ttl.Seconds()),
		Expires:  time.Now().Add(c.ttl),
	})
}

func (c sessionCookies) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

// endDelegatedSession deletes the session named by the request cookie and clears the
// cookie. It reports whether a session cookie was present.
func endDelegatedSession(w http.ResponseWriter, r *http.Request, sessions sessionStore, cookies sessionCookies, logger *slog.Logger) bool {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	if sessions != nil {
		if err := sessions.DeleteSession(r.Context(), cookie.Value); err != nil {
			logger.Error("failed to delete session", "error", err)
		}
	}
	cookies.clear(w)
	return true
}

// SessionHandler reports and ends the delegated session carried by the browser cookie.
type SessionHandler struct {
	sessions  sessionStore
	delegated delegatedAuthenticator
	merger    session.Merger
	cookies   sessionCookies
	logger    *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions sessionStore, delegated delegatedAuthenticator, merger session.Merger, cookies sessionCookies, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions:  sessions,
		delegated: delegated,
		merger:    merger,
		cookies:   cookies,
		logger:    logger,
	}
}

type sessionStatusResponse struct {
	Authenticated bool            `json:"authenticated"`
	Session       *session.Merged `json:"session,omitempty"`
	ExpiresAt     *time.Time      `json:"expiresAt,omitempty"`
}

// Status handles GET /api/session.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	s := DelegatedFromContext(r.Context())
	if s == nil {
		writeJSON(w, http.StatusOK, sessionStatusResponse{})
		return
	}

	merged := h.merger.Merge(s.Claims, nil)
	expiresAt := s.ExpiresAt
	writeJSON(w, http.StatusOK, sessionStatusResponse{
		Authenticated: merged.Present(),
		Session:       &merged,
		ExpiresAt:     &expiresAt,
	})
}

// Logout handles DELETE /api/session.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if !endDelegatedSession(w, r, h.sessions, h.cookies, h.logger) {
		writeJSON(w, http.StatusOK, map[string]string{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"logoutUrl": h.delegated.LogoutURL()})
}
