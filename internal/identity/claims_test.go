package identity

import "testing"

func TestResolveAttribute(t *testing.T) {
	cases := []struct {
		name   string
		claims Claims
		want   string
		found  bool
	}{
		{
			name:   "namespaced only",
			claims: Claims{testNamespace + ClaimPhoneNumber: "+44 20 7946 0000"},
			want:   "+44 20 7946 0000",
			found:  true,
		},
		{
			name:   "bare only",
			claims: Claims{ClaimPhoneNumber: "+1 555 0100"},
			want:   "+1 555 0100",
			found:  true,
		},
		{
			name: "namespaced wins over bare",
			claims: Claims{
				testNamespace + ClaimPhoneNumber: "namespaced",
				ClaimPhoneNumber:                 "bare",
			},
			want:  "namespaced",
			found: true,
		},
		{
			name: "empty namespaced falls back to bare",
			claims: Claims{
				testNamespace + ClaimPhoneNumber: "  ",
				ClaimPhoneNumber:                 "bare",
			},
			want:  "bare",
			found: true,
		},
		{
			name:   "neither",
			claims: Claims{ClaimEmail: "reader@example.com"},
		},
		{
			name:   "nil claims",
			claims: nil,
		},
		{
			name:   "non scalar value",
			claims: Claims{ClaimPhoneNumber: map[string]any{"home": "1"}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, found := ResolveAttribute(tc.claims, testNamespace, ClaimPhoneNumber)
			if got != tc.want || found != tc.found {
				t.Fatalf("ResolveAttribute() = (%q, %v), want (%q, %v)", got, found, tc.want, tc.found)
			}
		})
	}
}

func TestResolveAttributeIsStable(t *testing.T) {
	claims := Claims{testNamespace + ClaimDateOfBirth: "1990-04-01"}
	first, _ := ResolveAttribute(claims, testNamespace, ClaimDateOfBirth)
	second, _ := ResolveAttribute(claims, testNamespace, ClaimDateOfBirth)
	if first != second || first != "1990-04-01" {
		t.Fatalf("expected stable resolution, got %q then %q", first, second)
	}
}

func TestResolveAttributeWithoutNamespace(t *testing.T) {
	got, found := ResolveAttribute(Claims{ClaimDateOfBirth: "2000-01-01"}, "", ClaimDateOfBirth)
	if !found || got != "2000-01-01" {
		t.Fatalf("expected bare lookup without namespace, got (%q, %v)", got, found)
	}
}

func TestClaimsString(t *testing.T) {
	claims := Claims{"name": " Ada ", "email_verified": true, "count": float64(3)}
	if claims.String("name") != "Ada" {
		t.Fatalf("expected trimmed name, got %q", claims.String("name"))
	}
	if claims.String("email_verified") != "true" || claims.String("count") != "3" {
		t.Fatalf("expected scalars formatted, got %q and %q", claims.String("email_verified"), claims.String("count"))
	}
	if claims.String("missing") != "" {
		t.Fatal("expected missing claim to be empty")
	}
}
