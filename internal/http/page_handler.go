package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pressgate/internal/form"
	"pressgate/internal/identity"
	"pressgate/internal/page"
	"pressgate/internal/view"
)

const (
	transactionCookieName = "pressgate_tx"
	transactionCookieTTL  = 10 * time.Minute
)

// PageHandler exposes the page registry to the browser.
type PageHandler struct {
	pages     *page.Registry
	sessions  sessionStore
	delegated delegatedAuthenticator
	cookies   sessionCookies
	logger    *slog.Logger
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(pages *page.Registry, sessions sessionStore, delegated delegatedAuthenticator, cookies sessionCookies, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		pages:     pages,
		sessions:  sessions,
		delegated: delegated,
		cookies:   cookies,
		logger:    logger,
	}
}

type pageResponse struct {
	Page      page.Screen `json:"page"`
	Location  string      `json:"location,omitempty"`
	AuthError string      `json:"authError,omitempty"`
	Redirect  string      `json:"redirect,omitempty"`
	LogoutURL string      `json:"logoutUrl,omitempty"`
}

type openPageRequest struct {
	Location string `json:"location"`
}

// Open handles POST /api/pages. The body carries the full location the page was
// loaded at, fragment included.
func (h *PageHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openPageRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeJSONError(w, err)
		return
	}
	if req.Location == "" {
		writeError(w, http.StatusBadRequest, "location is required")
		return
	}

	var expect identity.Expectation
	if identity.IsAuthResponse(req.Location) {
		expect = h.takeTransaction(w, r)
	}
	p, result := h.pages.Open(r.Context(), req.Location, expect)

	resp := pageResponse{
		Page:     p.Render(delegatedClaims(r.Context())),
		Location: result.Location,
	}
	if result.Err != nil && !errors.Is(result.Err, identity.ErrNotAuthResponse) {
		resp.AuthError = identity.Describe(result.Err)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Get handles GET /api/pages/{id}.
func (h *PageHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writePage(w, r, http.StatusOK, p)
}

// Edit handles PUT /api/pages/{id}/form. The body maps field names to values.
func (h *PageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var edits map[string]string
	if err := decodeJSONBody(w, r, &edits); err != nil {
		writeJSONError(w, err)
		return
	}
	if err := p.Edit(edits); err != nil {
		if errors.Is(err, form.ErrUnknownField) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("form edit failed", "error", err)
		writeError(w, http.StatusInternalServerError, "unexpected error")
		return
	}
	h.writePage(w, r, http.StatusOK, p)
}

type navigateRequest struct {
	State string `json:"state"`
}

// Navigate handles POST /api/pages/{id}/view.
func (h *PageHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req navigateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeJSONError(w, err)
		return
	}
	to, err := view.ParseState(req.State)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := p.Navigate(to); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Page: p.Render(delegatedClaims(r.Context()))})
}

// Submit handles POST /api/pages/{id}/submit. It waits for the gateway call while the
// request is alive; if the request ends first the call keeps running and the page can
// be polled, a completed sign-in showing up there as the screen's redirect.
func (h *PageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}

	ch, err := p.Submit(context.WithoutCancel(r.Context()))
	if err != nil {
		var verr *view.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusUnprocessableEntity, pageResponse{Page: p.Render(delegatedClaims(r.Context()))})
		case errors.Is(err, view.ErrSubmitPending), errors.Is(err, view.ErrNothingToSubmit):
			writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("submit failed", "error", err)
			writeError(w, http.StatusInternalServerError, "unexpected error")
		}
		return
	}

	select {
	case <-ch:
		h.writePage(w, r, http.StatusOK, p)
	case <-r.Context().Done():
		h.writePage(w, r, http.StatusAccepted, p)
	}
}

// Universal handles POST /api/pages/{id}/universal and answers with the login entry
// the browser should navigate to.
func (h *PageHandler) Universal(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := p.UniversalLogin(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{
		Page:     p.Render(delegatedClaims(r.Context())),
		Redirect: "/api/auth/login",
	})
}

// SignOut handles POST /api/pages/{id}/signout. It clears both session slots and
// always answers with the provider logout URL: a custom-form sign-in also leaves a
// session at the provider.
func (h *PageHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}

	p.SignOut()
	endDelegatedSession(w, r, h.sessions, h.cookies, h.logger)
	writeJSON(w, http.StatusOK, pageResponse{
		Page:      p.Render(nil),
		LogoutURL: h.delegated.LogoutURL(),
	})
}

// writePage renders p. A sign-in waiting on the provider is handed to the browser
// together with the transaction cookie the returning page is checked against.
func (h *PageHandler) writePage(w http.ResponseWriter, r *http.Request, status int, p *page.Page) {
	screen := p.Render(delegatedClaims(r.Context()))
	resp := pageResponse{Page: screen}
	if screen.SignIn != nil {
		if err := h.setTransaction(w, screen.SignIn); err != nil {
			h.logger.Error("failed to record sign-in transaction", "error", err)
			writeError(w, http.StatusInternalServerError, "unexpected error")
			return
		}
		resp.Redirect = screen.Redirect
	}
	writeJSON(w, status, resp)
}

func (h *PageHandler) lookup(w http.ResponseWriter, r *http.Request) (*page.Page, bool) {
	p, err := h.pages.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "page not found")
		return nil, false
	}
	return p, true
}

// setTransaction records the state and nonce of an implicit sign-in so the returning
// page can be checked against them.
func (h *PageHandler) setTransaction(w http.ResponseWriter, result *identity.SignInResult) error {
	value, err := encodeCookiePayload(oauthTransaction{State: result.State, Nonce: result.Nonce})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     transactionCookieName,
		Value:    value,
		Path:     "/api/pages",
		HttpOnly: true,
		Secure:   h.cookies.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(transactionCookieTTL.Seconds()),
	})
	return nil
}

// takeTransaction reads and clears the implicit sign-in transaction, if any.
func (h *PageHandler) takeTransaction(w http.ResponseWriter, r *http.Request) identity.Expectation {
	cookie, err := r.Cookie(transactionCookieName)
	if err != nil || cookie.Value == "" {
		return identity.Expectation{}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     transactionCookieName,
		Value:    "",
		Path:     "/api/pages",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.secure,
	})

	var tx oauthTransaction
	if err := decodeCookiePayload(cookie.Value, &tx); err != nil {
		h.logger.Warn("discarding malformed sign-in transaction", "error", err)
		return identity.Expectation{}
	}
	return identity.Expectation{State: tx.State, Nonce: tx.Nonce}
}
