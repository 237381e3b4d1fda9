// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/mdsite/internal/export"
	"github.com/starford/mdsite/internal/markdown"
	"github.com/starford/mdsite/internal/site"
	"github.com/starford/mdsite/internal/sse"
	"github.com/starford/mdsite/internal/storage"
	"github.com/starford/mdsite/internal/view"
	"github.com/starford/mdsite/internal/watch"
	"github.com/starford/mdsite/internal/web"
)

const (
	eventsPath      = "/_events"
	shutdownTimeout = 10 * time.Second
)

// components is the wired site: content store, resolver and HTTP router.
type components struct {
	store  *storage.FS
	site   *site.Service
	router http.Handler
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if app.logger == nil {
		app.logger = newLogger(app.config.App)
		slog.SetDefault(app.logger)
	}
	return app, nil
}

// newLogger builds the structured logger described by cfg.
func newLogger(cfg ApplicationConfig) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatText {
		return slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
}

// build wires storage, renderer, templates and router. events is mounted
// and the reload script enabled when non-nil.
func (a *application) build(events http.Handler) (*components, error) {
	cfg := a.config

	store, err := storage.NewFS(cfg.Content.Root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	views, err := view.Load(cfg.Site.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	renderer := markdown.New(markdown.Options{
		HighlightStyle: cfg.Markdown.HighlightStyle,
		LineNumbers:    cfg.Markdown.LineNumbers,
	})

	svc := site.NewService(store, renderer, views, a.logger, site.Options{
		SiteTitle:      cfg.Site.Title,
		TitleSeparator: cfg.Site.TitleSeparator,
		BlogTitle:      cfg.Site.BlogTitle,
		BlogDir:        cfg.Content.BlogDir,
		BlogRecursive:  cfg.Content.BlogRecursive,
		LiveReload:     events != nil,
		EventsPath:     eventsPath,
	})

	routerOpts := web.Options{NoCache: events != nil, Logger: a.logger}
	if events != nil {
		routerOpts.Events = events
		routerOpts.EventsPath = eventsPath
	}

	return &components{
		store:  store,
		site:   svc,
		router: web.NewRouter(svc, routerOpts),
	}, nil
}

// listen returns the injected listener or binds the configured address.
func (a *application) listen() (net.Listener, error) {
	if a.listener != nil {
		return a.listener, nil
	}
	addr := a.config.App.HTTP.Address()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return ln, nil
}

// Serve runs the live server until ctx is cancelled or a shutdown signal
// arrives.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_root", cfg.Content.Root),
		slog.Bool("watch", cfg.Watch.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	var broker *sse.Broker
	var events http.Handler
	if cfg.Watch.Enabled {
		broker = sse.NewBroker(sse.DefaultKeepAlive)
		defer broker.Close()
		events = broker
	}

	comp, err := app.build(events)
	if err != nil {
		return err
	}

	ln, err := app.listen()
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Handler:           comp.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	if broker != nil {
		g.Go(func() error {
			return watch.Run(gCtx, comp.store.Root(), cfg.Watch.Debounce, logger, func(kind, path string) {
				logger.Info("content changed",
					slog.String("kind", kind),
					slog.String("path", path),
					slog.Int("clients", broker.Subscribers()))
				broker.PublishChange(kind, path)
			})
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", ln.Addr().String()))
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}
		cancel()

		logger.Info("Shutting down server...")

		// Open event streams never finish on their own.
		if broker != nil {
			broker.Close()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// Generate writes a static snapshot of the site to export.output_dir. Unless
// export.in_process is set, a live server is started first and every page is
// fetched from it over HTTP; the server is shut down however the run ends.
func Generate(ctx context.Context, opts ...Option) (*export.Report, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	cfg := app.config
	logger := app.logger

	comp, err := app.build(nil)
	if err != nil {
		return nil, err
	}

	var fetcher export.Fetcher
	if cfg.Export.InProcess {
		fetcher = export.NewResolverFetcher(comp.site)
	} else {
		// Bind before touching the output directory.
		ln, err := app.listen()
		if err != nil {
			return nil, err
		}

		httpServer := &http.Server{
			Handler:           comp.router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		serveErr := make(chan error, 1)
		go func() {
			serveErr <- httpServer.Serve(ln)
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
			if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", slog.String("error", err.Error()))
			}
			logger.Debug("generate: server stopped")
		}()

		baseURL := "http://" + ln.Addr().String()
		logger.Info("generate: serving site", slog.String("address", baseURL))
		fetcher = export.NewHTTPFetcher(baseURL, &http.Client{Timeout: 30 * time.Second})
	}

	gen := export.New(comp.store, fetcher, logger, export.Options{
		OutputDir:     cfg.Export.OutputDir,
		BlogIndexPath: comp.site.BlogIndexPath(),
		Workers:       cfg.Export.Workers,
	})
	return gen.Generate(ctx)
}
