package identity

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// DelegatedAuthenticator drives the provider-hosted ("Universal Login") flow using the
// authorization code grant with PKCE.
type DelegatedAuthenticator struct {
	provider        Provider
	config          *oauth2.Config
	verifier        Verifier
	logoutReturnURL string
}

// NewDelegatedAuthenticator creates a DelegatedAuthenticator. callbackURL receives the
// authorization code; logoutReturnURL is where the provider sends the browser after logout.
func NewDelegatedAuthenticator(provider Provider, verifier Verifier, callbackURL, logoutReturnURL string) *DelegatedAuthenticator {
	return &DelegatedAuthenticator{
		provider: provider,
		verifier: verifier,
		config: &oauth2.Config{
			ClientID:     provider.ClientID,
			ClientSecret: provider.ClientSecret,
			RedirectURL:  callbackURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       defaultScopes,
		},
		logoutReturnURL: logoutReturnURL,
	}
}

// AuthURL generates the provider's login URL for the given transaction.
func (d *DelegatedAuthenticator) AuthURL(state, nonce, codeVerifier string) string {
	return d.config.AuthCodeURL(
		state,
		oauth2.S256ChallengeOption(codeVerifier),
		oauth2.SetAuthURLParam("nonce", nonce),
	)
}

// Exchange trades the authorization code for tokens and returns the verified ID token claims.
func (d *DelegatedAuthenticator) Exchange(ctx context.Context, code, codeVerifier, nonce string) (Claims, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, d.provider.client())

	token, err := d.config.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("no id_token in response")
	}

	idToken, err := d.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}
	if idToken.Nonce != nonce {
		return nil, ErrNonceMismatch
	}

	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	return claims, nil
}

// LogoutURL returns the provider logout entry point.
func (d *DelegatedAuthenticator) LogoutURL() string {
	return d.provider.LogoutURL(d.logoutReturnURL)
}

// NewCodeVerifier returns a fresh PKCE code verifier.
func NewCodeVerifier() string {
	return oauth2.GenerateVerifier()
}
