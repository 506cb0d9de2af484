// Package web implements the OAuth entry point and the sync status pages.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/sheetsync/internal/domain/model"
	"github.com/ericfisherdev/sheetsync/internal/domain/port/driven"
)

//go:embed templates/*.html
var templatesFS embed.FS

// stateTTL bounds how long a pending install attempt stays valid.
const stateTTL = 10 * time.Minute

// Authorizer builds the provider authorize URL for an install attempt.
type Authorizer interface {
	AuthorizeURL(state string) string
}

// TokenManager is the slice of the token lifecycle the entry point drives.
type TokenManager interface {
	ExchangeAuthorizationCode(ctx context.Context, code string) (*model.Credential, error)
	Authorized(ctx context.Context) bool
}

// SyncRunner triggers a full sync run.
type SyncRunner interface {
	SyncAll(ctx context.Context) (*model.RunSummary, error)
}

// Handler serves the OAuth redirect flow and the sync status pages.
type Handler struct {
	auth   Authorizer
	tokens TokenManager
	sync   SyncRunner          // nil when no record source is configured
	runs   driven.SyncRunStore // nil disables run history display
	logger *slog.Logger
	tmpl   *template.Template

	mu     sync.Mutex
	states map[string]time.Time
}

// NewHandler creates a Handler. sync and runs may be nil.
func NewHandler(auth Authorizer, tokens TokenManager, syncRunner SyncRunner, runs driven.SyncRunStore, logger *slog.Logger) *Handler {
	return &Handler{
		auth:   auth,
		tokens: tokens,
		sync:   syncRunner,
		runs:   runs,
		logger: logger,
		tmpl:   template.Must(template.ParseFS(templatesFS, "templates/*.html")),
		states: make(map[string]time.Time),
	}
}

// homeData feeds templates/home.html.
type homeData struct {
	Authorized bool
	CanSync    bool
	Runs       []model.RunSummary
}

// Home shows the connect affordance when unauthenticated, otherwise the sync
// form and recent run history.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	data := homeData{
		Authorized: h.tokens.Authorized(r.Context()),
		CanSync:    h.sync != nil,
	}

	if data.Authorized && h.runs != nil {
		runs, err := h.runs.RecentRuns(r.Context(), 10)
		if err != nil {
			h.logger.Error("load run history failed", "error", err)
		} else {
			data.Runs = runs
		}
	}

	h.render(w, "home.html", data)
}

// Install starts the OAuth flow: it remembers a fresh state value and
// redirects the user to the provider's authorize URL.
func (h *Handler) Install(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	h.rememberState(state)

	http.Redirect(w, r, h.auth.AuthorizeURL(state), http.StatusFound)
}

// OAuthCallback receives the authorization redirect. On a valid state and a
// present code it runs the code exchange; any failure redirects to the local
// error display with a message parameter.
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if !h.consumeState(q.Get("state")) {
		h.redirectError(w, r, "unknown or expired state parameter, start over from /install")
		return
	}

	code := q.Get("code")
	if code == "" {
		h.redirectError(w, r, "authorization code missing from callback")
		return
	}

	if _, err := h.tokens.ExchangeAuthorizationCode(r.Context(), code); err != nil {
		h.logger.Error("code exchange failed", "error", err)
		h.redirectError(w, r, "token exchange failed, please try connecting again")
		return
	}

	h.render(w, "authorized.html", nil)
}

// resultData feeds templates/result.html.
type resultData struct {
	Summary *model.RunSummary
}

// RunSync triggers a sync run and renders the summary plus per-record detail.
// Authentication failures short-circuit to a reconnect affordance.
func (h *Handler) RunSync(w http.ResponseWriter, r *http.Request) {
	if h.sync == nil {
		h.renderError(w, http.StatusConflict, "no record source configured: set SHEETSYNC_SPREADSHEET_ID or SHEETSYNC_CSV_PATH", false)
		return
	}

	summary, err := h.sync.SyncAll(r.Context())
	switch {
	case errors.Is(err, driven.ErrNotAuthenticated), errors.Is(err, driven.ErrTokenRefresh):
		h.renderError(w, http.StatusUnauthorized, "the CRM connection is no longer valid", true)
		return
	case err != nil:
		h.logger.Error("sync failed", "error", err)
		h.renderError(w, http.StatusBadGateway, "sync failed: "+err.Error(), false)
		return
	}

	h.render(w, "result.html", resultData{Summary: summary})
}

// ErrorPage displays the message passed on the msg query parameter.
func (h *Handler) ErrorPage(w http.ResponseWriter, r *http.Request) {
	msg := r.URL.Query().Get("msg")
	if msg == "" {
		msg = "something went wrong"
	}
	h.renderError(w, http.StatusOK, msg, false)
}

// Health is the liveness endpoint consumed by cmd/healthcheck.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// errorData feeds templates/error.html.
type errorData struct {
	Message   string
	Reconnect bool
}

func (h *Handler) renderError(w http.ResponseWriter, status int, msg string, reconnect bool) {
	w.WriteHeader(status)
	h.render(w, "error.html", errorData{Message: msg, Reconnect: reconnect})
}

func (h *Handler) redirectError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/error?msg="+url.QueryEscape(msg), http.StatusFound)
}

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("render failed", "template", name, "error", err)
	}
}

// rememberState records a pending install attempt and prunes expired ones.
func (h *Handler) rememberState(state string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	for s, issued := range h.states {
		if now.Sub(issued) > stateTTL {
			delete(h.states, s)
		}
	}
	h.states[state] = now
}

// consumeState validates and removes a state value; each value is single-use.
func (h *Handler) consumeState(state string) bool {
	if state == "" {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	issued, ok := h.states[state]
	if !ok {
		return false
	}
	delete(h.states, state)
	return time.Since(issued) <= stateTTL
}
