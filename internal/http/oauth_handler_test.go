package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"pressgate/internal/auth"
	"pressgate/internal/identity"
)

func encodeOAuthState(t *testing.T, state, redirectTo string) string {
	t.Helper()
	value, err := encodeCookiePayload(oauthStatePayload{State: state, RedirectTo: redirectTo})
	if err != nil {
		t.Fatalf("encode state: %v", err)
	}
	return value
}

func transactionCookie(t *testing.T, tx oauthTransaction) *http.Cookie {
	t.Helper()
	value, err := encodeCookiePayload(tx)
	if err != nil {
		t.Fatalf("encode transaction: %v", err)
	}
	return &http.Cookie{Name: oauthStateCookieName, Value: value}
}

func newTestOAuthHandler(delegated *fakeDelegated, repo *authRepoStub) *OAuthHandler {
	var sessions sessionStore
	if repo != nil {
		sessions = auth.NewService(repo, time.Hour)
	}
	return NewOAuthHandler(delegated, sessions, sessionCookies{ttl: time.Hour}, "http://frontend.test/", discardLogger())
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestOAuthLoginSetsTransactionCookieAndRedirects(t *testing.T) {
	delegated := &fakeDelegated{}
	handler := newTestOAuthHandler(delegated, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/login?redirectTo=/profile", nil)
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected status 307, got %d", rec.Code)
	}
	cookie := findCookie(rec, oauthStateCookieName)
	if cookie == nil || cookie.Value == "" || !cookie.HttpOnly {
		t.Fatal("expected HttpOnly transaction cookie to be set")
	}

	var tx oauthTransaction
	if err := decodeCookiePayload(cookie.Value, &tx); err != nil {
		t.Fatalf("decode transaction: %v", err)
	}
	var payload oauthStatePayload
	if err := decodeCookiePayload(delegated.lastState, &payload); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if payload.State != tx.State || payload.RedirectTo != "/profile" {
		t.Fatalf("unexpected state payload %+v (tx %+v)", payload, tx)
	}
	if delegated.lastNonce != tx.Nonce || delegated.lastVerifier != tx.CodeVerifier || tx.CodeVerifier == "" {
		t.Fatalf("expected nonce and verifier from the transaction, got %q/%q", delegated.lastNonce, delegated.lastVerifier)
	}
	if !strings.HasPrefix(rec.Header().Get("Location"), "https://tenant.example/authorize") {
		t.Fatalf("unexpected redirect %q", rec.Header().Get("Location"))
	}
}

func TestOAuthLoginDropsUnsafeRedirect(t *testing.T) {
	delegated := &fakeDelegated{}
	handler := newTestOAuthHandler(delegated, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/login?redirectTo=//evil.example", nil)
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	var payload oauthStatePayload
	if err := decodeCookiePayload(delegated.lastState, &payload); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if payload.RedirectTo != "" {
		t.Fatalf("expected unsafe redirect to be dropped, got %q", payload.RedirectTo)
	}
}

func TestOAuthCallbackRejectsMissingTransactionCookie(t *testing.T) {
	handler := newTestOAuthHandler(&fakeDelegated{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?state=abc", nil)
	rec := httptest.NewRecorder()

	handler.Callback(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected status 307, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Location"), "error=invalid_request") {
		t.Fatalf("expected invalid_request redirect, got %q", rec.Header().Get("Location"))
	}
}

func TestOAuthCallbackRejectsStateMismatch(t *testing.T) {
	handler := newTestOAuthHandler(&fakeDelegated{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?state="+url.QueryEscape(encodeOAuthState(t, "other", ""))+"&code=1", nil)
	req.AddCookie(transactionCookie(t, oauthTransaction{State: "expected", Nonce: "n", CodeVerifier: "v"}))
	rec := httptest.NewRecorder()

	handler.Callback(rec, req)

	if !strings.Contains(rec.Header().Get("Location"), "error=invalid_request") {
		t.Fatalf("expected invalid_request redirect, got %q", rec.Header().Get("Location"))
	}
}

func TestOAuthCallbackPropagatesProviderError(t *testing.T) {
	handler := newTestOAuthHandler(&fakeDelegated{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?state="+url.QueryEscape(encodeOAuthState(t, "abc", ""))+"&error=access_denied&error_description=Denied", nil)
	req.AddCookie(transactionCookie(t, oauthTransaction{State: "abc"}))
	rec := httptest.NewRecorder()

	handler.Callback(rec, req)

	location := rec.Header().Get("Location")
	if !strings.Contains(location, "error=access_denied") || !strings.Contains(location, "message=Denied") {
		t.Fatalf("expected provider error redirect, got %q", location)
	}
}

func TestOAuthCallbackRequiresCode(t *testing.T) {
	handler := newTestOAuthHandler(&fakeDelegated{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?state="+url.QueryEscape(encodeOAuthState(t, "abc", "")), nil)
	req.AddCookie(transactionCookie(t, oauthTransaction{State: "abc"}))
	rec := httptest.NewRecorder()

	handler.Callback(rec, req)

	if !strings.Contains(rec.Header().Get("Location"), "error=invalid_request") {
		t.Fatalf("expected invalid_request redirect, got %q", rec.Header().Get("Location"))
	}
}

func TestOAuthCallbackHandlesExchangeError(t *testing.T) {
	handler := newTestOAuthHandler(&fakeDelegated{exchangeErr: errors.New("boom")}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?state="+url.QueryEscape(encodeOAuthState(t, "abc", ""))+"&code=123", nil)
	req.AddCookie(transactionCookie(t, oauthTransaction{State: "abc", Nonce: "n", CodeVerifier: "v"}))
	rec := httptest.NewRecorder()

	handler.Callback(rec, req)

	if !strings.Contains(rec.Header().Get("Location"), "error=exchange_error") {
		t.Fatalf("expected exchange_error redirect, got %q", rec.Header().Get("Location"))
	}
}

func TestOAuthCallbackHandlesSessionCreationError(t *testing.T) {
	delegated := &fakeDelegated{exchangeClaims: identity.Claims{"sub": "auth0|1"}}
	repo := &authRepoStub{
		createSession: func(ctx context.Context, session auth.Session, tokenHash string) error {
			return errors.New("session fail")
		},
	}
	handler := newTestOAuthHandler(delegated, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?state="+url.QueryEscape(encodeOAuthState(t, "abc", ""))+"&code=123", nil)
	req.AddCookie(transactionCookie(t, oauthTransaction{State: "abc", Nonce: "n", CodeVerifier: "v"}))
	rec := httptest.NewRecorder()

	handler.Callback(rec, req)

	if !strings.Contains(rec.Header().Get("Location"), "error=internal_error") {
		t.Fatalf("expected internal_error redirect, got %q", rec.Header().Get("Location"))
	}
}

func TestOAuthCallbackCreatesSessionAndRedirects(t *testing.T) {
	delegated := &fakeDelegated{exchangeClaims: identity.Claims{"sub": "auth0|1", "name": "Ada"}}
	var stored auth.Session
	repo := &authRepoStub{
		createSession: func(ctx context.Context, session auth.Session, tokenHash string) error {
			stored = session
			return nil
		},
	}
	handler := newTestOAuthHandler(delegated, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?state="+url.QueryEscape(encodeOAuthState(t, "abc", "/profile"))+"&code=123", nil)
	req.AddCookie(transactionCookie(t, oauthTransaction{State: "abc", Nonce: "n1", CodeVerifier: "v1"}))
	rec := httptest.NewRecorder()

	handler.Callback(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected status 307, got %d", rec.Code)
	}
	if rec.Header().Get("Location") != "http://frontend.test/profile" {
		t.Fatalf("unexpected redirect %q", rec.Header().Get("Location"))
	}
	if delegated.exchangedWith != [3]string{"123", "v1", "n1"} {
		t.Fatalf("unexpected exchange arguments %v", delegated.exchangedWith)
	}
	if stored.Subject != "auth0|1" {
		t.Fatalf("expected session for auth0|1, got %+v", stored)
	}
	if cookie := findCookie(rec, sessionCookieName); cookie == nil || cookie.Value == "" {
		t.Fatal("expected session cookie to be set")
	}
	if cookie := findCookie(rec, oauthStateCookieName); cookie == nil || cookie.MaxAge != -1 {
		t.Fatal("expected transaction cookie to be cleared")
	}
}

func TestIsValidRedirectPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/profile", true},
		{"/profile?tab=1", true},
		{"", false},
		{"profile", false},
		{"//evil.example", false},
		{"/%2f%2fevil.example", false},
		{`/\evil.example`, false},
		{"https://evil.example", false},
	}
	for _, tt := range tests {
		if got := isValidRedirectPath(tt.path); got != tt.want {
			t.Errorf("isValidRedirectPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
