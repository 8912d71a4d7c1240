package identity

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// AuthResult is the payload recovered from an implicit-grant redirect fragment.
type AuthResult struct {
	AccessToken string
	IDToken     string
	TokenType   string
	ExpiresIn   int
	Scope       string
	State       string
	Claims      Claims
}

// Expectation carries the transaction recorded when the redirect was started.
type Expectation struct {
	State string
	Nonce string
}

// responseKeys are the fragment parameters that mark an authorization response.
var responseKeys = []string{"access_token", "id_token", "error", "state"}

// TokenParser extracts an AuthResult from the location the browser landed on after
// an implicit-grant redirect.
type TokenParser struct {
	verifier Verifier
}

// NewTokenParser creates a TokenParser that checks ID tokens with verifier.
func NewTokenParser(verifier Verifier) *TokenParser {
	return &TokenParser{verifier: verifier}
}

// Parse decodes the fragment of location.
//
// A location without a fragment yields (nil, location, nil). Once an authorization
// response has been seen in the fragment, the returned location has the fragment
// removed whether or not parsing succeeded, so the tokens cannot be replayed by a
// reload. Fragments that are not authorization responses are left in place.
func (p *TokenParser) Parse(ctx context.Context, location string, expect Expectation) (*AuthResult, string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, location, fmt.Errorf("parse location: %w", err)
	}

	fragment := u.EscapedFragment()
	if fragment == "" {
		return nil, location, nil
	}

	values, err := url.ParseQuery(fragment)
	if err != nil {
		return nil, location, fmt.Errorf("%w: %v", ErrNotAuthResponse, err)
	}
	if !isAuthResponse(values) {
		return nil, location, ErrNotAuthResponse
	}

	u.Fragment = ""
	u.RawFragment = ""
	cleaned := u.String()

	result, err := p.decode(ctx, values, expect)
	if err != nil {
		return nil, cleaned, err
	}
	return result, cleaned, nil
}

func (p *TokenParser) decode(ctx context.Context, values url.Values, expect Expectation) (*AuthResult, error) {
	if code := values.Get("error"); code != "" {
		return nil, &ProviderError{Code: code, Description: values.Get("error_description")}
	}

	if expect.State == "" {
		return nil, ErrNoTransaction
	}
	if values.Get("state") != expect.State {
		return nil, ErrStateMismatch
	}

	result := &AuthResult{
		AccessToken: values.Get("access_token"),
		IDToken:     values.Get("id_token"),
		TokenType:   values.Get("token_type"),
		Scope:       values.Get("scope"),
		State:       values.Get("state"),
	}
	if result.AccessToken == "" || result.IDToken == "" {
		return nil, ErrMissingToken
	}
	if raw := values.Get("expires_in"); raw != "" {
		expiresIn, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid expires_in %q: %w", raw, err)
		}
		result.ExpiresIn = expiresIn
	}

	idToken, err := p.verifier.Verify(ctx, result.IDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}
	if expect.Nonce != "" && idToken.Nonce != expect.Nonce {
		return nil, ErrNonceMismatch
	}
	if idToken.AccessTokenHash != "" {
		if err := idToken.VerifyAccessToken(result.AccessToken); err != nil {
			return nil, fmt.Errorf("verify access_token: %w", err)
		}
	}

	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	result.Claims = claims

	return result, nil
}

// IsAuthResponse reports whether the fragment of location holds an authorization
// response, as opposed to an ordinary in-page anchor.
func IsAuthResponse(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	values, err := url.ParseQuery(u.EscapedFragment())
	if err != nil {
		return false
	}
	return isAuthResponse(values)
}

func isAuthResponse(values url.Values) bool {
	for _, key := range responseKeys {
		if values.Has(key) {
			return true
		}
	}
	return false
}
