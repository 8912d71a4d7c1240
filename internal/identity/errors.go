package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrNotAuthResponse is returned when a fragment carries no authorization response fields.
	ErrNotAuthResponse = errors.New("identity: fragment is not an authorization response")
	// ErrMissingToken is returned when an authorization response lacks id_token or access_token.
	ErrMissingToken = errors.New("identity: authorization response is missing id_token or access_token")
	// ErrNoTransaction is returned when a fragment arrives without a recorded sign-in transaction.
	ErrNoTransaction = errors.New("identity: no sign-in transaction to match the response against")
	// ErrStateMismatch is returned when the response state differs from the recorded one.
	ErrStateMismatch = errors.New("identity: state does not match")
	// ErrNonceMismatch is returned when the ID token nonce differs from the recorded one.
	ErrNonceMismatch = errors.New("identity: nonce does not match")
)

// ProviderError is a failure reported by the identity provider.
type ProviderError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("identity provider: %s: %s", e.Code, e.Description)
	case e.Description != "":
		return "identity provider: " + e.Description
	case e.Code != "":
		return "identity provider: " + e.Code
	default:
		return fmt.Sprintf("identity provider: status %d", e.StatusCode)
	}
}

// Describe returns the message to show the user for err: the provider's own description
// when err is a ProviderError, otherwise a generic message.
func Describe(err error) string {
	var perr *ProviderError
	if errors.As(err, &perr) {
		if perr.Description != "" {
			return perr.Description
		}
		if perr.Code != "" {
			return perr.Code
		}
	}
	return "Something went wrong. Please try again."
}

// providerErrorBody covers the error shapes used across the provider's APIs.
type providerErrorBody struct {
	Code             string          `json:"code"`
	Error            string          `json:"error"`
	Name             string          `json:"name"`
	Description      json.RawMessage `json:"description"`
	ErrorDescription string          `json:"error_description"`
	Message          string          `json:"message"`
	Policy           string          `json:"policy"`
}

const maxErrorBodyBytes = 64 << 10

func newProviderError(resp *http.Response) *ProviderError {
	perr := &ProviderError{StatusCode: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	var body providerErrorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		perr.Description = strings.TrimSpace(string(raw))
		if perr.Description == "" {
			perr.Description = http.StatusText(resp.StatusCode)
		}
		return perr
	}

	perr.Code = firstNonEmpty(body.Code, body.Error, body.Name)

	var description string
	if len(body.Description) > 0 {
		_ = json.Unmarshal(body.Description, &description)
	}
	perr.Description = firstNonEmpty(description, body.ErrorDescription, body.Message, body.Policy, http.StatusText(resp.StatusCode))
	return perr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
