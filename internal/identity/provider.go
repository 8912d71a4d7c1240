// Package identity talks to the external identity provider: it verifies ID tokens,
// parses implicit-grant redirect fragments, submits direct credential requests and
// drives the delegated authorization-code flow.
package identity

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Scopes requested by both sign-in pathways.
var defaultScopes = []string{oidc.ScopeOpenID, "profile", "email"}

// Provider describes one identity provider tenant.
type Provider struct {
	Domain         string
	ClientID       string
	ClientSecret   string
	Connection     string
	ClaimNamespace string
	HTTPClient     *http.Client
}

// Issuer returns the expected "iss" claim of ID tokens minted by the tenant.
func (p Provider) Issuer() string {
	return "https://" + p.Domain + "/"
}

// Endpoint returns the OAuth2 endpoints of the tenant.
func (p Provider) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   p.url("/authorize"),
		TokenURL:  p.url("/oauth/token"),
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// JWKSURL returns the tenant's signing key set location.
func (p Provider) JWKSURL() string {
	return p.url("/.well-known/jwks.json")
}

// LogoutURL returns the delegated logout entry point, sending the browser back to returnTo.
func (p Provider) LogoutURL(returnTo string) string {
	q := url.Values{"client_id": {p.ClientID}}
	if returnTo != "" {
		q.Set("returnTo", returnTo)
	}
	return p.url("/v2/logout") + "?" + q.Encode()
}

// NewVerifier builds an ID token verifier backed by the tenant's remote key set.
// Keys are fetched lazily, so an unconfigured tenant fails on first use rather than here.
func (p Provider) NewVerifier() *oidc.IDTokenVerifier {
	keyCtx := oidc.ClientContext(context.Background(), p.client())
	keySet := oidc.NewRemoteKeySet(keyCtx, p.JWKSURL())
	return oidc.NewVerifier(p.Issuer(), keySet, &oidc.Config{ClientID: p.ClientID})
}

func (p Provider) url(path string) string {
	return "https://" + p.Domain + path
}

func (p Provider) client() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}

// Verifier validates a raw ID token. *oidc.IDTokenVerifier satisfies it.
type Verifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}
