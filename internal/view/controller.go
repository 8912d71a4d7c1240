package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"pressgate/internal/form"
	"pressgate/internal/identity"
)

var (
	// ErrInvalidTransition is returned for navigation outside the allowed edges.
	ErrInvalidTransition = errors.New("view: transition not allowed")
	// ErrSubmitPending is returned while an earlier submit is still in flight.
	ErrSubmitPending = errors.New("view: a submission is already in progress")
	// ErrNothingToSubmit is returned when the current view has no form.
	ErrNothingToSubmit = errors.New("view: nothing to submit")
	// ErrDelegatedEntryUnavailable is returned when Universal Login is requested away from home.
	ErrDelegatedEntryUnavailable = errors.New("view: universal login is only offered on the home view")
)

// Notices shown after a successful submission.
const (
	NoticeSignedUp  = "Account created. Check your email to verify it before signing in."
	NoticeResetSent = "Password reset email sent."
)

// ValidationError is a local failure caught before any call to the provider.
type ValidationError struct {
	Field   form.Field
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Operation names a credential gateway call.
type Operation string

const (
	OpSignUp        Operation = "sign_up"
	OpSignIn        Operation = "sign_in"
	OpPasswordReset Operation = "password_reset"
)

// Gateway is the credential API the controller submits to.
type Gateway interface {
	SignUp(ctx context.Context, req identity.SignUpRequest) error
	SignIn(ctx context.Context, email, password string) (*identity.SignInResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
}

// Outcome is delivered exactly once per accepted submission.
type Outcome struct {
	Operation Operation
	State     State
	Notice    string
	Err       error
	// SignIn carries the redirect the browser must follow after a successful sign-in.
	SignIn *identity.SignInResult
	// Ignored is set when the user navigated away before the call completed.
	Ignored bool
}

// Status is a snapshot of the controller.
type Status struct {
	State   State
	Pending bool
	Notice  string
	Error   string
	// SignIn is the redirect of the last successful sign-in on this view. It outlives
	// the request that submitted it, so a page that stopped waiting can still follow it.
	SignIn *identity.SignInResult
}

// Observer is told about every completed gateway call.
type Observer func(op Operation, err error, ignored bool)

// Option configures a Controller.
type Option func(*Controller)

// WithObserver registers an observer for completed gateway calls.
func WithObserver(observer Observer) Option {
	return func(c *Controller) {
		c.observe = observer
	}
}

// Controller holds the nominal view state and routes submissions to the gateway.
type Controller struct {
	mu         sync.Mutex
	gateway    Gateway
	form       *form.Store
	observe    Observer
	state      State
	pending    bool
	generation uint64
	notice     string
	errMsg     string
	signIn     *identity.SignInResult
}

// NewController creates a Controller on the home view.
func NewController(gateway Gateway, store *form.Store, opts ...Option) *Controller {
	c := &Controller{gateway: gateway, form: store, state: Home}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns the current state, pending flag and messages.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{State: c.state, Pending: c.pending, Notice: c.notice, Error: c.errMsg, SignIn: c.signIn}
}

// Navigate moves to another view. Leaving a form view clears the form. A submission
// still in flight keeps the pending flag, but its result will be ignored.
func (c *Controller) Navigate(to State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !CanNavigate(c.state, to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, c.state, to)
	}
	if to == c.state {
		return nil
	}

	if c.state.isForm() {
		c.form.Reset()
	}
	c.state = to
	c.generation++
	c.clearMessages()
	return nil
}

// DelegatedEntry checks that the Universal Login entry point may be used. It does not
// change state: the browser leaves the page.
func (c *Controller) DelegatedEntry() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Home {
		return ErrDelegatedEntryUnavailable
	}
	return nil
}

// Reset returns the controller to home with an empty form, as after sign-out.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.Reset()
	c.state = Home
	c.generation++
	c.clearMessages()
}

func (c *Controller) clearMessages() {
	c.notice = ""
	c.errMsg = ""
	c.signIn = nil
}

type call func(ctx context.Context) (*identity.SignInResult, error)

// Submit validates the current form and starts the matching gateway call. Local
// validation failures are returned directly and nothing is sent. Otherwise the
// returned channel delivers one Outcome when the call completes.
func (c *Controller) Submit(ctx context.Context) (<-chan Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending {
		return nil, ErrSubmitPending
	}

	data := c.form.Data()
	var (
		op  Operation
		run call
	)

	switch c.state {
	case Home:
		return nil, ErrNothingToSubmit
	case SignUp:
		if data.Password != data.ConfirmPassword {
			return nil, c.reject(&ValidationError{Field: form.FieldConfirmPassword, Message: "Passwords do not match."})
		}
		op = OpSignUp
		req := identity.SignUpRequest{
			Email:    data.Email,
			Password: data.Password,
			Username: data.Username,
			Metadata: identity.Metadata{PhoneNumber: data.Phone, DateOfBirth: data.DateOfBirth},
		}
		run = func(ctx context.Context) (*identity.SignInResult, error) {
			return nil, c.gateway.SignUp(ctx, req)
		}
	case SignIn:
		op = OpSignIn
		email, password := data.Email, data.Password
		run = func(ctx context.Context) (*identity.SignInResult, error) {
			return c.gateway.SignIn(ctx, email, password)
		}
	case ForgotPassword:
		email := strings.TrimSpace(data.Email)
		if email == "" {
			return nil, c.reject(&ValidationError{Field: form.FieldEmail, Message: "Please enter your email address."})
		}
		op = OpPasswordReset
		run = func(ctx context.Context) (*identity.SignInResult, error) {
			return nil, c.gateway.RequestPasswordReset(ctx, email)
		}
	default:
		panic(fmt.Sprintf("view: unhandled state %d", int(c.state)))
	}

	c.pending = true
	c.clearMessages()
	generation, origin := c.generation, c.state

	done := make(chan Outcome, 1)
	go func() {
		defer close(done)
		result, err := run(ctx)
		done <- c.complete(op, generation, origin, result, err)
	}()
	return done, nil
}

func (c *Controller) reject(err *ValidationError) error {
	c.clearMessages()
	c.errMsg = err.Message
	return err
}

func (c *Controller) complete(op Operation, generation uint64, origin State, result *identity.SignInResult, err error) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = false
	ignored := generation != c.generation
	if c.observe != nil {
		c.observe(op, err, ignored)
	}

	if ignored {
		return Outcome{Operation: op, State: c.state, Err: err, Ignored: true}
	}
	if err != nil {
		c.errMsg = identity.Describe(err)
		return Outcome{Operation: op, State: c.state, Err: err}
	}

	switch origin {
	case SignUp:
		c.state = SignIn
		c.notice = NoticeSignedUp
	case SignIn:
		// The provider's redirect establishes the session.
		c.signIn = result
	case ForgotPassword:
		c.state = SignIn
		c.notice = NoticeResetSent
	case Home:
		panic("view: completed a submission from home")
	default:
		panic(fmt.Sprintf("view: unhandled state %d", int(origin)))
	}
	return Outcome{Operation: op, State: c.state, Notice: c.notice, SignIn: result}
}
