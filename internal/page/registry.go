package page

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"pressgate/internal/form"
	"pressgate/internal/identity"
	"pressgate/internal/platform/logging"
	"pressgate/internal/platform/metrics"
	"pressgate/internal/session"
	"pressgate/internal/view"
)

// Dependencies are shared by every page in a registry.
type Dependencies struct {
	Gateway view.Gateway
	Parser  Parser
	Merger  session.Merger
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Registry keeps live pages in memory and evicts the idle ones.
type Registry struct {
	deps Dependencies
	ttl  time.Duration
	now  func() time.Time

	mu    sync.Mutex
	pages map[uuid.UUID]*Page
}

// NewRegistry creates an empty Registry whose pages expire after ttl without a request.
func NewRegistry(deps Dependencies, ttl time.Duration) *Registry {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Registry{
		deps:  deps,
		ttl:   ttl,
		now:   time.Now,
		pages: make(map[uuid.UUID]*Page),
	}
}

// Create registers a new page on the home view.
func (r *Registry) Create() *Page {
	store := form.NewStore()
	p := &Page{
		id:       uuid.New(),
		form:     store,
		parser:   r.deps.Parser,
		merger:   r.deps.Merger,
		lastSeen: r.now(),
	}
	p.controller = view.NewController(r.deps.Gateway, store, view.WithObserver(r.observer(p.id)))

	r.mu.Lock()
	r.pages[p.id] = p
	count := len(r.pages)
	r.mu.Unlock()

	r.deps.Metrics.SetActivePages(count)
	return p
}

// Open creates a page and runs the one-time location parse.
func (r *Registry) Open(ctx context.Context, location string, expect identity.Expectation) (*Page, LoadResult) {
	p := r.Create()
	result, _ := p.Load(ctx, location, expect)

	switch {
	case result.Err == nil && result.Parsed:
		r.deps.Metrics.ObserveTokenParse(metrics.OutcomeSuccess)
		r.deps.Logger.Info("custom session established", "page", p.id)
	case result.Err == nil:
	case errors.Is(result.Err, identity.ErrNotAuthResponse):
		r.deps.Metrics.ObserveTokenParse(metrics.OutcomeIgnored)
	default:
		r.deps.Metrics.ObserveTokenParse(outcomeOf(result.Err))
		r.deps.Logger.Warn("redirect parse failed", "page", p.id, "error", result.Err)
	}
	return p, result
}

// Get returns the page with the given id and marks it as seen.
func (r *Registry) Get(id string) (*Page, error) {
	pageID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrPageNotFound
	}

	r.mu.Lock()
	p, ok := r.pages[pageID]
	r.mu.Unlock()
	if !ok {
		return nil, ErrPageNotFound
	}

	p.touch(r.now())
	return p, nil
}

// Remove drops a page.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	delete(r.pages, id)
	count := len(r.pages)
	r.mu.Unlock()

	r.deps.Metrics.SetActivePages(count)
}

// Len reports how many pages are live.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pages)
}

// Sweep evicts pages idle longer than the TTL and returns how many were removed.
func (r *Registry) Sweep() int {
	now := r.now()

	r.mu.Lock()
	removed := 0
	for id, p := range r.pages {
		if p.idleSince(now) > r.ttl {
			delete(r.pages, id)
			removed++
		}
	}
	count := len(r.pages)
	r.mu.Unlock()

	r.deps.Metrics.SetActivePages(count)
	return removed
}

// Run sweeps on every tick until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if removed := r.Sweep(); removed > 0 {
				r.deps.Logger.Debug("evicted idle pages", "count", removed)
			}
		}
	}
}

func (r *Registry) observer(id uuid.UUID) view.Observer {
	return func(op view.Operation, err error, ignored bool) {
		outcome := metrics.OutcomeSuccess
		switch {
		case ignored:
			outcome = metrics.OutcomeIgnored
		case err != nil:
			outcome = outcomeOf(err)
		}
		r.deps.Metrics.ObserveGatewayCall(string(op), outcome)

		if err != nil {
			r.deps.Logger.Warn("credential call failed", "page", id, "operation", op, "ignored", ignored, "error", err)
		}
	}
}

func outcomeOf(err error) string {
	var perr *identity.ProviderError
	if errors.As(err, &perr) {
		return metrics.OutcomeProviderError
	}
	return metrics.OutcomeFailure
}
