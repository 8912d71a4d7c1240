package http

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pressgate/internal/identity"
)

// oauthStatePayload travels through the provider in the state parameter.
type oauthStatePayload struct {
	State      string `json:"s"`
	RedirectTo string `json:"r,omitempty"`
}

// oauthTransaction is kept in an HttpOnly cookie for the duration of the redirect.
type oauthTransaction struct {
	State        string `json:"s"`
	Nonce        string `json:"n"`
	CodeVerifier string `json:"v"`
}

// isValidRedirectPath validates that a path is a safe relative redirect.
// It prevents open redirect attacks by ensuring the path:
// - Starts with a single "/" (not "//")
// - Has no scheme or host component
// - Cannot be bypassed via URL encoding
func isValidRedirectPath(path string) bool {
	if path == "" {
		return false
	}

	decoded, err := url.QueryUnescape(path)
	if err != nil {
		return false
	}

	if !strings.HasPrefix(decoded, "/") || strings.HasPrefix(decoded, "//") || strings.Contains(decoded, `\`) {
		return false
	}

	parsed, err := url.Parse(decoded)
	if err != nil {
		return false
	}

	return parsed.Scheme == "" && parsed.Host == ""
}

const (
	oauthStateCookieName = "pressgate_oauth"
	oauthStateCookieTTL  = 10 * time.Minute
)

type delegatedAuthenticator interface {
	AuthURL(state, nonce, codeVerifier string) string
	Exchange(ctx context.Context, code, codeVerifier, nonce string) (identity.Claims, error)
	LogoutURL() string
}

// OAuthHandler runs the Universal Login redirect: it sends the browser to the hosted
// login page and turns the returning authorization code into a delegated session.
type OAuthHandler struct {
	delegated   delegatedAuthenticator
	sessions    sessionStore
	cookies     sessionCookies
	logger      *slog.Logger
	frontendURL string
}

// NewOAuthHandler creates a new OAuthHandler.
func NewOAuthHandler(delegated delegatedAuthenticator, sessions sessionStore, cookies sessionCookies, frontendURL string, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		delegated:   delegated,
		sessions:    sessions,
		cookies:     cookies,
		logger:      logger,
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
	}
}

// Login handles GET /api/auth/login.
func (h *OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := identity.GenerateState()
	if err != nil {
		h.logger.Error("failed to generate state", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	nonce, err := identity.GenerateState()
	if err != nil {
		h.logger.Error("failed to generate nonce", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	tx := oauthTransaction{State: state, Nonce: nonce, CodeVerifier: identity.NewCodeVerifier()}

	txValue, err := encodeCookiePayload(tx)
	if err != nil {
		h.logger.Error("failed to encode oauth transaction", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    txValue,
		Path:     "/api/auth",
		HttpOnly: true,
		Secure:   h.cookies.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(oauthStateCookieTTL.Seconds()),
	})

	payload := oauthStatePayload{State: state}
	if redirectTo := r.URL.Query().Get("redirectTo"); isValidRedirectPath(redirectTo) {
		payload.RedirectTo = redirectTo
	}
	fullState, err := encodeCookiePayload(payload)
	if err != nil {
		h.logger.Error("failed to encode state", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.Redirect(w, r, h.delegated.AuthURL(fullState, tx.Nonce, tx.CodeVerifier), http.StatusTemporaryRedirect)
}

// Callback handles GET /api/auth/callback.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	txCookie, err := r.Cookie(oauthStateCookieName)
	if err != nil {
		h.logger.Warn("oauth callback: missing transaction cookie")
		h.redirectWithError(w, r, "invalid_request", "Session expired. Please try again.")
		return
	}

	var tx oauthTransaction
	if err := decodeCookiePayload(txCookie.Value, &tx); err != nil {
		h.logger.Warn("oauth callback: invalid transaction cookie")
		h.redirectWithError(w, r, "invalid_request", "Session expired. Please try again.")
		return
	}

	var statePayload oauthStatePayload
	if err := decodeCookiePayload(r.URL.Query().Get("state"), &statePayload); err != nil {
		h.logger.Warn("oauth callback: invalid state encoding")
		h.redirectWithError(w, r, "invalid_request", "Invalid state. Please try again.")
		return
	}

	redirectTo := "/"
	if isValidRedirectPath(statePayload.RedirectTo) {
		redirectTo = statePayload.RedirectTo
	}

	if subtle.ConstantTimeCompare([]byte(statePayload.State), []byte(tx.State)) != 1 {
		h.logger.Warn("oauth callback: state mismatch")
		h.redirectWithError(w, r, "invalid_request", "Invalid state. Please try again.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.secure,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Warn("oauth callback: provider error", "error", errParam)
		h.redirectWithError(w, r, errParam, r.URL.Query().Get("error_description"))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectWithError(w, r, "invalid_request", "Missing authorization code.")
		return
	}

	claims, err := h.delegated.Exchange(r.Context(), code, tx.CodeVerifier, tx.Nonce)
	if err != nil {
		h.logger.Error("oauth callback: exchange failed", "error", err)
		h.redirectWithError(w, r, "exchange_error", "Failed to complete authentication.")
		return
	}

	token, err := h.sessions.CreateSession(r.Context(), claims, r.UserAgent(), clientIPFromRequest(r))
	if err != nil {
		h.logger.Error("oauth callback: session creation failed", "error", err)
		h.redirectWithError(w, r, "internal_error", "Failed to create session.")
		return
	}
	h.cookies.set(w, token)

	h.logger.Info("universal login successful", "subject", claims.String(identity.ClaimSubject))

	http.Redirect(w, r, h.frontendURL+redirectTo, http.StatusTemporaryRedirect)
}

// redirectWithError sends the browser back to the page with error details.
func (h *OAuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, code, message string) {
	q := url.Values{"error": {code}}
	if message != "" {
		q.Set("message", message)
	}
	http.Redirect(w, r, h.frontendURL+"/?"+q.Encode(), http.StatusTemporaryRedirect)
}

func encodeCookiePayload(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func decodeCookiePayload(value string, dst any) error {
	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
