package identity

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testClientID  = "client-id"
	testNamespace = "https://a24press.com/"
)

// testIssuer mints RS256 ID tokens for a fake tenant and verifies them through go-oidc.
type testIssuer struct {
	key      *rsa.PrivateKey
	provider Provider
	verifier *oidc.IDTokenVerifier
}

func newTestIssuer(t *testing.T, srv *httptest.Server) *testIssuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	provider := Provider{
		Domain:         "press.test.auth0.com",
		ClientID:       testClientID,
		Connection:     "Username-Password-Authentication",
		ClaimNamespace: testNamespace,
	}
	if srv != nil {
		provider.Domain = strings.TrimPrefix(srv.URL, "https://")
		provider.HTTPClient = srv.Client()
	}

	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	return &testIssuer{
		key:      key,
		provider: provider,
		verifier: oidc.NewVerifier(provider.Issuer(), keySet, &oidc.Config{ClientID: provider.ClientID}),
	}
}

func (ti *testIssuer) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	return signWith(t, ti.key, ti.provider, claims)
}

func signWith(t *testing.T, key *rsa.PrivateKey, provider Provider, claims jwt.MapClaims) string {
	t.Helper()

	now := time.Now()
	full := jwt.MapClaims{
		"iss": provider.Issuer(),
		"aud": provider.ClientID,
		"sub": "auth0|abc123",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	for k, v := range claims {
		full[k] = v
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, full).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
