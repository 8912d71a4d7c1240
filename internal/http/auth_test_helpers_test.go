package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pressgate/internal/auth"
	"pressgate/internal/identity"
	"pressgate/internal/page"
	"pressgate/internal/platform/logging"
	"pressgate/internal/platform/metrics"
	"pressgate/internal/session"
)

const testNamespace = "https://a24press.com/"

type authRepoStub struct {
	createSession         func(ctx context.Context, session auth.Session, tokenHash string) error
	findSessionByHash     func(ctx context.Context, tokenHash string) (*auth.Session, error)
	deleteSession         func(ctx context.Context, id uuid.UUID) error
	deleteExpiredSessions func(ctx context.Context) (int64, error)
}

func (r *authRepoStub) CreateSession(ctx context.Context, session auth.Session, tokenHash string) error {
	if r.createSession != nil {
		return r.createSession(ctx, session, tokenHash)
	}
	return nil
}

func (r *authRepoStub) FindSessionByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	if r.findSessionByHash != nil {
		return r.findSessionByHash(ctx, tokenHash)
	}
	return nil, nil
}

func (r *authRepoStub) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if r.deleteSession != nil {
		return r.deleteSession(ctx, id)
	}
	return nil
}

func (r *authRepoStub) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	if r.deleteExpiredSessions != nil {
		return r.deleteExpiredSessions(ctx)
	}
	return 0, nil
}

type fakeDelegated struct {
	lastState, lastNonce, lastVerifier string
	exchangeClaims                     identity.Claims
	exchangeErr                        error
	exchangedWith                      [3]string
}

func (f *fakeDelegated) AuthURL(state, nonce, codeVerifier string) string {
	f.lastState, f.lastNonce, f.lastVerifier = state, nonce, codeVerifier
	return "https://tenant.example/authorize?state=" + state
}

func (f *fakeDelegated) Exchange(ctx context.Context, code, codeVerifier, nonce string) (identity.Claims, error) {
	f.exchangedWith = [3]string{code, codeVerifier, nonce}
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.exchangeClaims, nil
}

func (f *fakeDelegated) LogoutURL() string {
	return "https://tenant.example/v2/logout?client_id=abc"
}

type parserStub struct {
	parse func(ctx context.Context, location string, expect identity.Expectation) (*identity.AuthResult, string, error)
}

func (p *parserStub) Parse(ctx context.Context, location string, expect identity.Expectation) (*identity.AuthResult, string, error) {
	if p.parse != nil {
		return p.parse(ctx, location, expect)
	}
	return nil, location, nil
}

type gatewayStub struct {
	signUp        func(ctx context.Context, req identity.SignUpRequest) error
	signIn        func(ctx context.Context, email, password string) (*identity.SignInResult, error)
	passwordReset func(ctx context.Context, email string) error
}

func (g *gatewayStub) SignUp(ctx context.Context, req identity.SignUpRequest) error {
	if g.signUp != nil {
		return g.signUp(ctx, req)
	}
	return nil
}

func (g *gatewayStub) SignIn(ctx context.Context, email, password string) (*identity.SignInResult, error) {
	if g.signIn != nil {
		return g.signIn(ctx, email, password)
	}
	return &identity.SignInResult{RedirectURL: "https://tenant.example/authorize", State: "s", Nonce: "n"}, nil
}

func (g *gatewayStub) RequestPasswordReset(ctx context.Context, email string) error {
	if g.passwordReset != nil {
		return g.passwordReset(ctx, email)
	}
	return nil
}

func discardLogger() *slog.Logger {
	return logging.Discard()
}

func liveSession(claims identity.Claims) *auth.Session {
	return &auth.Session{ID: uuid.New(), Claims: claims, ExpiresAt: time.Now().Add(time.Hour)}
}

func newTestPages(gateway *gatewayStub, parser *parserStub, m *metrics.Metrics) *page.Registry {
	return page.NewRegistry(page.Dependencies{
		Gateway: gateway,
		Parser:  parser,
		Merger:  session.NewMerger(testNamespace),
		Logger:  discardLogger(),
		Metrics: m,
	}, time.Minute)
}
