// Package web exposes the site over HTTP using chi.
package web

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/mdsite/internal/site"
)

// Options configures the router.
type Options struct {
	// NoCache disables client caching, for live editing.
	NoCache bool
	// Events, if non-nil, is mounted at GET EventsPath.
	Events     http.Handler
	EventsPath string
	// Logger receives resolve failures; nil means slog.Default().
	Logger *slog.Logger
}

// NewRouter creates a chi router serving every site path through svc.
// Only GET is routed; other methods get 405 Method Not Allowed.
func NewRouter(svc *site.Service, opts Options) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := NewHandler(svc, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if opts.NoCache {
		r.Use(middleware.NoCache)
	}

	if opts.Events != nil && opts.EventsPath != "" {
		r.Get(opts.EventsPath, opts.Events.ServeHTTP)
	}

	r.Get("/", h.ServePage)
	r.Get("/*", h.ServePage)

	return r
}
