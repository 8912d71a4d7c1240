package identity

import (
	"fmt"
	"strings"
)

// Claim keys read from ID tokens.
const (
	ClaimName        = "name"
	ClaimNickname    = "nickname"
	ClaimEmail       = "email"
	ClaimPicture     = "picture"
	ClaimSubject     = "sub"
	ClaimPhoneNumber = "phone_number"
	ClaimDateOfBirth = "date_of_birth"
)

// Claims is the decoded payload of an ID token.
type Claims map[string]any

// String returns the claim as a trimmed string, or "" when it is missing or not a scalar.
func (c Claims) String(key string) string {
	if c == nil {
		return ""
	}
	switch v := c[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64, bool, int, int64:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

// Empty reports whether no claims are present.
func (c Claims) Empty() bool {
	return len(c) == 0
}

// ResolveAttribute looks up an application attribute that the provider may emit either
// under namespace+key or under the bare key. The namespaced form wins; an empty value
// counts as absent.
func ResolveAttribute(claims Claims, namespace, key string) (string, bool) {
	if namespace != "" {
		if v := claims.String(namespace + key); v != "" {
			return v, true
		}
	}
	if v := claims.String(key); v != "" {
		return v, true
	}
	return "", false
}
