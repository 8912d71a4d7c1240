// Package session resolves the identity shown to the user from the two places it can
// come from: the delegated session kept by the SSO runtime, and the custom session
// parsed from an implicit-grant redirect after a direct credential sign-in.
package session

import (
	"pressgate/internal/identity"
)

// Source names the slot a Session was resolved from.
type Source string

const (
	SourceCustom    Source = "custom"
	SourceDelegated Source = "delegated"
)

// Session is the canonical identity shown to the user.
type Session struct {
	Source      Source `json:"source"`
	Subject     string `json:"subject,omitempty"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
}

// Merged holds both slots and the identity to display.
type Merged struct {
	Display       *Session `json:"display"`
	Custom        *Session `json:"custom,omitempty"`
	Delegated     *Session `json:"delegated,omitempty"`
	ViaCustomForm bool     `json:"viaCustomForm"`
}

// Present reports whether any identity source has resolved.
func (m Merged) Present() bool {
	return m.Display != nil
}

// Merger resolves sessions from claims using a fixed custom-claim namespace.
type Merger struct {
	namespace string
}

// NewMerger creates a Merger for the given custom-claim namespace.
func NewMerger(namespace string) Merger {
	return Merger{namespace: namespace}
}

// Merge combines the delegated snapshot claims and the parsed custom result. Either may
// be empty. The custom slot is displayed when both are present.
func (m Merger) Merge(delegated identity.Claims, custom *identity.AuthResult) Merged {
	var out Merged

	if custom != nil && !custom.Claims.Empty() {
		out.Custom = m.FromClaims(custom.Claims, SourceCustom)
		out.ViaCustomForm = true
	}
	if !delegated.Empty() {
		out.Delegated = m.FromClaims(delegated, SourceDelegated)
	}

	switch {
	case out.Custom != nil:
		out.Display = out.Custom
	case out.Delegated != nil:
		out.Display = out.Delegated
	}
	return out
}

// FromClaims builds a Session from ID token claims.
func (m Merger) FromClaims(claims identity.Claims, source Source) *Session {
	s := &Session{
		Source:    source,
		Subject:   claims.String(identity.ClaimSubject),
		Name:      DisplayName(claims),
		Email:     claims.String(identity.ClaimEmail),
		AvatarURL: claims.String(identity.ClaimPicture),
	}
	s.PhoneNumber, _ = identity.ResolveAttribute(claims, m.namespace, identity.ClaimPhoneNumber)
	s.DateOfBirth, _ = identity.ResolveAttribute(claims, m.namespace, identity.ClaimDateOfBirth)
	return s
}

// DisplayName picks name, then nickname, then email.
func DisplayName(claims identity.Claims) string {
	for _, key := range []string{identity.ClaimName, identity.ClaimNickname, identity.ClaimEmail} {
		if v := claims.String(key); v != "" {
			return v
		}
	}
	return ""
}
