package site

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/starford/mdsite/internal/apperr"
	"github.com/starford/mdsite/internal/models"
)

// BlogEntries scans the blog directory and returns one entry per post,
// sorted by date descending. Posts sharing a date keep scan order. Posts
// without a title or a valid date are logged and left out.
func (s *Service) BlogEntries(ctx context.Context) ([]models.BlogEntry, error) {
	paths, err := s.store.ListMarkdown(s.opts.BlogDir, s.opts.BlogRecursive)
	if err != nil {
		return nil, fmt.Errorf("site: list blog: %w", err)
	}
	self := strings.TrimPrefix(strings.TrimSuffix(s.BlogIndexPath(), ".html")+".md", "/")

	entries := make([]models.BlogEntry, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p == self {
			continue
		}
		entry, err := s.blogEntry(p)
		if err != nil {
			s.logger.Warn("blog index: skipping post",
				slog.String("path", p),
				slog.String("error", err.Error()))
			continue
		}
		entries = append(entries, entry)
	}

	slices.SortStableFunc(entries, func(a, b models.BlogEntry) int {
		return b.Date.Compare(a.Date)
	})
	return entries, nil
}

func (s *Service) blogEntry(rel string) (models.BlogEntry, error) {
	data, err := s.store.Read(rel)
	if err != nil {
		return models.BlogEntry{}, err
	}
	doc, err := s.renderer.Render(data)
	if err != nil {
		return models.BlogEntry{}, err
	}
	title, ok := doc.Meta.Lookup("title")
	if !ok {
		return models.BlogEntry{}, fmt.Errorf("%w: title", apperr.ErrMissingMetadata)
	}
	raw, ok := doc.Meta.Lookup("date")
	if !ok {
		return models.BlogEntry{}, fmt.Errorf("%w: date", apperr.ErrMissingMetadata)
	}
	date, err := ParseDate(raw)
	if err != nil {
		return models.BlogEntry{}, err
	}
	return models.BlogEntry{
		Date:  date,
		Title: title,
		Link:  "/" + strings.TrimSuffix(rel, ".md") + ".html",
		Path:  rel,
	}, nil
}

// ParseDate accepts an ISO 8601 date, or an RFC 3339 timestamp truncated to
// its calendar date.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if d, err := time.Parse(time.DateOnly, raw); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", raw)
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
}
