package identity

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// passwordRealmGrant is the credential type accepted by the cross-origin authenticate API.
const passwordRealmGrant = "http://auth0.com/oauth/grant-type/password-realm"

// implicitResponseType asks the authorize endpoint to return tokens in the fragment.
const implicitResponseType = "token id_token"

// Metadata holds the profile fields stored on the provider's user record at sign-up.
type Metadata struct {
	PhoneNumber string `json:"phone_number,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
}

// SignUpRequest is a direct credential sign-up submission.
type SignUpRequest struct {
	Email    string
	Password string
	Username string
	Metadata Metadata
}

// SignInResult tells the caller where to send the browser to finish signing in, and
// the transaction values the returning fragment must match.
type SignInResult struct {
	RedirectURL string
	State       string
	Nonce       string
}

// Gateway submits direct credential operations to the provider's database connection.
type Gateway struct {
	provider Provider
	oauth    *oauth2.Config
	origin   string
}

// NewGateway creates a Gateway. redirectURL is where the provider returns the browser
// after sign-in; origin is sent as the Origin header of cross-origin authentication.
func NewGateway(provider Provider, redirectURL, origin string) *Gateway {
	return &Gateway{
		provider: provider,
		origin:   origin,
		oauth: &oauth2.Config{
			ClientID:    provider.ClientID,
			RedirectURL: redirectURL,
			Endpoint:    provider.Endpoint(),
			Scopes:      defaultScopes,
		},
	}
}

type signUpBody struct {
	ClientID     string   `json:"client_id"`
	Connection   string   `json:"connection"`
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	Username     string   `json:"username,omitempty"`
	UserMetadata Metadata `json:"user_metadata"`
}

// SignUp creates a user in the database connection. The provider is expected to
// require email verification before the user can sign in.
func (g *Gateway) SignUp(ctx context.Context, req SignUpRequest) error {
	body := signUpBody{
		ClientID:     g.provider.ClientID,
		Connection:   g.provider.Connection,
		Email:        req.Email,
		Password:     req.Password,
		Username:     req.Username,
		UserMetadata: req.Metadata,
	}
	if err := g.postJSON(ctx, "/dbconnections/signup", body, nil); err != nil {
		return fmt.Errorf("sign up: %w", err)
	}
	return nil
}

type authenticateBody struct {
	ClientID       string `json:"client_id"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	Realm          string `json:"realm"`
	CredentialType string `json:"credential_type"`
}

type authenticateResponse struct {
	LoginTicket string `json:"login_ticket"`
}

// SignIn authenticates the credentials and returns the authorize URL that exchanges the
// resulting login ticket for tokens. It does not return a session: the provider
// establishes it through the redirect.
func (g *Gateway) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	body := authenticateBody{
		ClientID:       g.provider.ClientID,
		Username:       email,
		Password:       password,
		Realm:          g.provider.Connection,
		CredentialType: passwordRealmGrant,
	}

	var resp authenticateResponse
	if err := g.postJSON(ctx, "/co/authenticate", body, &resp); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if resp.LoginTicket == "" {
		return nil, fmt.Errorf("sign in: %w", &ProviderError{StatusCode: http.StatusOK, Code: "invalid_response", Description: "Missing login ticket."})
	}

	state, err := GenerateState()
	if err != nil {
		return nil, fmt.Errorf("sign in: generate state: %w", err)
	}
	nonce, err := GenerateState()
	if err != nil {
		return nil, fmt.Errorf("sign in: generate nonce: %w", err)
	}

	redirect := g.oauth.AuthCodeURL(
		state,
		oauth2.SetAuthURLParam("response_type", implicitResponseType),
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("realm", g.provider.Connection),
		oauth2.SetAuthURLParam("login_ticket", resp.LoginTicket),
	)

	return &SignInResult{RedirectURL: redirect, State: state, Nonce: nonce}, nil
}

type changePasswordBody struct {
	ClientID   string `json:"client_id"`
	Email      string `json:"email"`
	Connection string `json:"connection"`
}

// RequestPasswordReset asks the provider to email a password reset link.
func (g *Gateway) RequestPasswordReset(ctx context.Context, email string) error {
	body := changePasswordBody{
		ClientID:   g.provider.ClientID,
		Email:      email,
		Connection: g.provider.Connection,
	}
	if err := g.postJSON(ctx, "/dbconnections/change_password", body, nil); err != nil {
		return fmt.Errorf("request password reset: %w", err)
	}
	return nil
}

func (g *Gateway) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.provider.url(path), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.origin != "" {
		req.Header.Set("Origin", g.origin)
	}

	resp, err := g.provider.client().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newProviderError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// GenerateState generates a cryptographically secure random state string.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
