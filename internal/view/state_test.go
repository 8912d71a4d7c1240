package view

import "testing"

func TestStateNamesRoundTrip(t *testing.T) {
	for _, s := range States {
		parsed, err := ParseState(s.String())
		if err != nil || parsed != s {
			t.Fatalf("ParseState(%q) = %v, %v", s.String(), parsed, err)
		}
	}
	if _, err := ParseState("profile"); err == nil {
		t.Fatal("expected profile to be a derived screen, not a state")
	}
}

func TestScreenForAuthenticatedPreemptsEveryState(t *testing.T) {
	for _, s := range States {
		if got := ScreenFor(s, true); got != ScreenProfile {
			t.Fatalf("ScreenFor(%s, true) = %s", s, got)
		}
	}
}

func TestScreenForUnauthenticated(t *testing.T) {
	want := map[State]Screen{
		Home:           ScreenHome,
		SignUp:         ScreenSignUp,
		SignIn:         ScreenSignIn,
		ForgotPassword: ScreenForgotPassword,
	}
	for s, screen := range want {
		if got := ScreenFor(s, false); got != screen {
			t.Fatalf("ScreenFor(%s, false) = %s, want %s", s, got, screen)
		}
	}
}

func TestUnknownStatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for an unknown state")
		}
	}()
	_ = ScreenFor(State(42), false)
}

func TestCanNavigate(t *testing.T) {
	if !CanNavigate(ForgotPassword, Home) {
		t.Fatal("expected back navigation to be allowed from every state")
	}
	if CanNavigate(Home, ForgotPassword) {
		t.Fatal("expected forgot-password to be reachable only from sign-in")
	}
}
