// Package page holds the server-side state of one browser page: its form, its view
// controller and the custom session parsed from the redirect it was loaded with.
package page

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"pressgate/internal/form"
	"pressgate/internal/identity"
	"pressgate/internal/session"
	"pressgate/internal/view"
)

var (
	// ErrPageNotFound is returned for unknown or evicted page ids.
	ErrPageNotFound = errors.New("page: not found")
	// ErrTokenConsumed is returned when a page asks to parse its location a second time.
	ErrTokenConsumed = errors.New("page: redirect already consumed")
)

// Parser reads an implicit-grant response from a page location.
type Parser interface {
	Parse(ctx context.Context, location string, expect identity.Expectation) (*identity.AuthResult, string, error)
}

// Entry is one action offered on the home screen.
type Entry struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

// homeEntries are the three ways in from the home screen.
var homeEntries = []Entry{
	{Label: "Sign In", Action: "navigate:" + view.SignIn.String()},
	{Label: "Universal Login", Action: "universal"},
	{Label: "Create New Account", Action: "navigate:" + view.SignUp.String()},
}

// Screen is the document the browser renders. Redirect is set while a completed
// sign-in waits for the browser to follow it; SignIn holds its transaction.
type Screen struct {
	ID       string                 `json:"id"`
	Screen   view.Screen            `json:"screen"`
	State    view.State             `json:"state"`
	Pending  bool                   `json:"pending"`
	Notice   string                 `json:"notice,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Form     form.Data              `json:"form"`
	Session  session.Merged         `json:"session"`
	Entries  []Entry                `json:"entries,omitempty"`
	Redirect string                 `json:"redirect,omitempty"`
	SignIn   *identity.SignInResult `json:"-"`
}

// LoadResult reports what the one-time location parse did.
type LoadResult struct {
	// Location is the location the browser should show, with any auth fragment removed.
	Location string
	// Parsed is set when a custom session was established.
	Parsed bool
	// Err is the parse failure, if any. The page stays usable.
	Err error
}

// Page is the state of one browser page. Requests for the same page are serialized.
type Page struct {
	id uuid.UUID

	mu         sync.Mutex
	form       *form.Store
	controller *view.Controller
	parser     Parser
	merger     session.Merger
	custom     *identity.AuthResult
	loaded     bool
	lastSeen   time.Time
}

// ID returns the page identifier.
func (p *Page) ID() uuid.UUID {
	return p.id
}

// Load runs the redirect parser over the location the page was opened at. It may run
// only once per page.
func (p *Page) Load(ctx context.Context, location string, expect identity.Expectation) (LoadResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return LoadResult{}, ErrTokenConsumed
	}
	p.loaded = true

	result, cleaned, err := p.parser.Parse(ctx, location, expect)
	if err != nil {
		return LoadResult{Location: cleaned, Err: err}, nil
	}
	if result != nil {
		p.custom = result
	}
	return LoadResult{Location: cleaned, Parsed: result != nil}, nil
}

// Edit applies field edits by wire name. Unknown fields reject the whole batch.
func (p *Page) Edit(edits map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, err := p.form.Apply(edits)
	return err
}

// Navigate moves the page's controller to another view.
func (p *Page) Navigate(to view.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.controller.Navigate(to)
}

// Submit starts the gateway call for the current view. The outcome arrives on the
// returned channel; the page lock is not held while waiting for it.
func (p *Page) Submit(ctx context.Context) (<-chan view.Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.controller.Submit(ctx)
}

// UniversalLogin checks that the delegated entry point is offered on this view.
func (p *Page) UniversalLogin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.controller.DelegatedEntry()
}

// SignOut clears the custom session and returns the page to home.
func (p *Page) SignOut() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.custom = nil
	p.controller.Reset()
}

// Render builds the screen for the page, merging in the delegated claims of the
// current request, which may be empty.
func (p *Page) Render(delegated identity.Claims) Screen {
	p.mu.Lock()
	defer p.mu.Unlock()

	merged := p.merger.Merge(delegated, p.custom)
	status := p.controller.Status()

	screen := Screen{
		ID:      p.id.String(),
		Screen:  view.ScreenFor(status.State, merged.Present()),
		State:   status.State,
		Pending: status.Pending,
		Notice:  status.Notice,
		Error:   status.Error,
		Form:    p.form.Data(),
		Session: merged,
	}
	if screen.Screen == view.ScreenHome {
		screen.Entries = homeEntries
	}
	if status.SignIn != nil {
		screen.Redirect = status.SignIn.RedirectURL
		screen.SignIn = status.SignIn
	}
	return screen
}

func (p *Page) touch(now time.Time) {
	p.mu.Lock()
	p.lastSeen = now
	p.mu.Unlock()
}

func (p *Page) idleSince(now time.Time) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return now.Sub(p.lastSeen)
}
