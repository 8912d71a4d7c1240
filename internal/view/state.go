// Package view implements the screen state machine of the sign-in page.
package view

import (
	"fmt"
)

// State is the nominal view the user navigated to.
type State int

const (
	Home State = iota
	SignUp
	SignIn
	ForgotPassword
)

// States lists every State in declaration order.
var States = []State{Home, SignUp, SignIn, ForgotPassword}

func (s State) String() string {
	switch s {
	case Home:
		return "home"
	case SignUp:
		return "sign-up"
	case SignIn:
		return "sign-in"
	case ForgotPassword:
		return "forgot-password"
	default:
		panic(fmt.Sprintf("view: unhandled state %d", int(s)))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseState maps a name such as "forgot-password" to a State.
func ParseState(name string) (State, error) {
	for _, s := range States {
		if s.String() == name {
			return s, nil
		}
	}
	return Home, fmt.Errorf("view: unknown state %q", name)
}

// isForm reports whether s collects credential input.
func (s State) isForm() bool {
	switch s {
	case Home:
		return false
	case SignUp, SignIn, ForgotPassword:
		return true
	default:
		panic(fmt.Sprintf("view: unhandled state %d", int(s)))
	}
}

// Screen is what is actually rendered: the nominal state, or the profile once a
// session is present.
type Screen string

const (
	ScreenHome           Screen = "home"
	ScreenSignUp         Screen = "sign-up"
	ScreenSignIn         Screen = "sign-in"
	ScreenForgotPassword Screen = "forgot-password"
	ScreenProfile        Screen = "profile"
)

// ScreenFor derives the screen for state. An authenticated session preempts every state.
func ScreenFor(state State, authenticated bool) Screen {
	if authenticated {
		return ScreenProfile
	}
	switch state {
	case Home:
		return ScreenHome
	case SignUp:
		return ScreenSignUp
	case SignIn:
		return ScreenSignIn
	case ForgotPassword:
		return ScreenForgotPassword
	default:
		panic(fmt.Sprintf("view: unhandled state %d", int(state)))
	}
}

// transitions lists the explicit navigation edges. Returning home is always allowed.
var transitions = map[State][]State{
	Home:           {SignIn, SignUp},
	SignIn:         {SignUp, ForgotPassword},
	SignUp:         {SignIn},
	ForgotPassword: {SignIn},
}

// CanNavigate reports whether the user may move from one state to another.
func CanNavigate(from, to State) bool {
	if to == Home || from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
