// Package site resolves request paths to rendered pages: Markdown documents,
// the generated blog index, directory redirects, and static files.
package site

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/starford/mdsite/internal/markdown"
	"github.com/starford/mdsite/internal/models"
	"github.com/starford/mdsite/internal/storage"
	"github.com/starford/mdsite/internal/view"
)

const htmlContentType = "text/html; charset=utf-8"

// Options controls page chrome and blog discovery.
type Options struct {
	SiteTitle      string
	TitleSeparator string
	BlogTitle      string
	BlogDir        string
	BlogRecursive  bool
	// LiveReload adds the reload script subscribing to EventsPath.
	LiveReload bool
	EventsPath string
}

// Service renders site content on demand. It holds no per-request state and
// is safe for concurrent use.
type Service struct {
	store    storage.Provider
	renderer *markdown.Renderer
	views    *view.Templates
	logger   *slog.Logger
	opts     Options
}

// NewService creates a new site service.
func NewService(store storage.Provider, renderer *markdown.Renderer, views *view.Templates, logger *slog.Logger, opts Options) *Service {
	opts.BlogDir = strings.Trim(path.Clean("/"+opts.BlogDir), "/")
	return &Service{
		store:    store,
		renderer: renderer,
		views:    views,
		logger:   logger,
		opts:     opts,
	}
}

// BlogIndexPath returns the URL path of the generated blog index.
func (s *Service) BlogIndexPath() string {
	if s.opts.BlogDir == "" {
		return "/index.html"
	}
	return "/" + s.opts.BlogDir + "/index.html"
}

// Resolve maps a URL path to a page. The first matching rule wins:
// the blog index, the root document, *.html documents, directory
// redirects, then static files. Missing sources yield apperr.ErrNotFound.
func (s *Service) Resolve(ctx context.Context, urlPath string) (*models.Page, error) {
	if urlPath == "" {
		urlPath = "/"
	}
	switch {
	case urlPath == s.BlogIndexPath():
		return s.BlogIndexPage(ctx)
	case urlPath == "/":
		return s.MarkdownPage(ctx, "index.md")
	case strings.HasSuffix(urlPath, ".html"):
		rel := strings.TrimPrefix(strings.TrimSuffix(urlPath, ".html"), "/") + ".md"
		return s.MarkdownPage(ctx, rel)
	case strings.HasSuffix(urlPath, "/"):
		return &models.Page{
			Status:   http.StatusMovedPermanently,
			Location: RedirectTarget(urlPath),
		}, nil
	default:
		return s.StaticFile(ctx, strings.TrimPrefix(urlPath, "/"))
	}
}

// RedirectTarget returns the index.html location for a directory path.
func RedirectTarget(dir string) string {
	cleaned := path.Clean("/" + dir)
	if cleaned == "/" {
		return "/index.html"
	}
	return cleaned + "/index.html"
}

// MarkdownPage renders the Markdown source at rel into a full page.
func (s *Service) MarkdownPage(_ context.Context, rel string) (*models.Page, error) {
	data, err := s.store.Read(rel)
	if err != nil {
		return nil, err
	}
	doc, err := s.renderer.Render(data)
	if err != nil {
		return nil, fmt.Errorf("site: render %s: %w", rel, err)
	}
	body, err := s.views.Page(view.PageData{
		Layout:  s.layout(doc.Title),
		Title:   doc.Title,
		Content: template.HTML(doc.HTML),
	})
	if err != nil {
		return nil, fmt.Errorf("site: page %s: %w", rel, err)
	}
	return &models.Page{Status: http.StatusOK, ContentType: htmlContentType, Body: body}, nil
}

// BlogIndexPage renders the index of blog posts, newest first.
func (s *Service) BlogIndexPage(ctx context.Context) (*models.Page, error) {
	entries, err := s.BlogEntries(ctx)
	if err != nil {
		return nil, err
	}
	body, err := s.views.BlogIndex(view.BlogIndexData{
		Layout:  s.layout(s.opts.BlogTitle),
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("site: blog index: %w", err)
	}
	return &models.Page{Status: http.StatusOK, ContentType: htmlContentType, Body: body}, nil
}

// StaticFile returns the raw bytes of a content file.
func (s *Service) StaticFile(_ context.Context, rel string) (*models.Page, error) {
	info, err := s.store.Stat(rel)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(rel)
	if err != nil {
		return nil, err
	}
	ctype := mime.TypeByExtension(path.Ext(rel))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	return &models.Page{
		Status:      http.StatusOK,
		ContentType: ctype,
		Body:        data,
		Name:        path.Base(rel),
		ModTime:     info.ModTime(),
	}, nil
}

func (s *Service) layout(title string) view.Layout {
	l := view.Layout{
		SiteTitle:  s.opts.SiteTitle,
		BlogTitle:  s.opts.BlogTitle,
		BlogPath:   s.BlogIndexPath(),
		LiveReload: s.opts.LiveReload,
		EventsPath: s.opts.EventsPath,
	}
	if title != "" {
		l.PreTitle = title + s.opts.TitleSeparator
	}
	return l
}
