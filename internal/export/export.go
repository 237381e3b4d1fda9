// Package export writes a static snapshot of the site by requesting every
// page from a Fetcher and storing the responses under an output directory.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/mdsite/internal/apperr"
	"github.com/starford/mdsite/internal/storage"
)

// DefaultWorkers is the number of pages fetched concurrently.
const DefaultWorkers = 4

// Options configures a Generator.
type Options struct {
	OutputDir string
	// BlogIndexPath is the URL path of the generated blog index,
	// e.g. "/blog/index.html".
	BlogIndexPath string
	Workers       int
}

// Target is one file in the snapshot.
type Target struct {
	URLPath string // path requested from the site
	OutPath string // slash path relative to the output directory
}

// Report summarises a generation run.
type Report struct {
	OutputDir string
	Files     []string
	Bytes     int64
	Duration  time.Duration
}

// Generator produces static snapshots.
type Generator struct {
	store   storage.Provider
	fetcher Fetcher
	logger  *slog.Logger
	opts    Options
}

// New creates a Generator.
func New(store storage.Provider, fetcher Fetcher, logger *slog.Logger, opts Options) *Generator {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.BlogIndexPath == "" {
		opts.BlogIndexPath = "/blog/index.html"
	}
	return &Generator{store: store, fetcher: fetcher, logger: logger, opts: opts}
}

// Plan lists the snapshot targets: every file under the content root with
// .md mapped to .html, plus the blog index. Targets are sorted by OutPath
// and unique.
func (g *Generator) Plan() ([]Target, error) {
	files, err := g.store.Walk()
	if err != nil {
		return nil, fmt.Errorf("export: walk content: %w", err)
	}

	seen := make(map[string]bool, len(files)+1)
	targets := make([]Target, 0, len(files)+1)
	add := func(rel string) {
		out := rel
		if strings.HasSuffix(out, ".md") {
			out = strings.TrimSuffix(out, ".md") + ".html"
		}
		if seen[out] {
			return
		}
		seen[out] = true
		targets = append(targets, Target{URLPath: "/" + out, OutPath: out})
	}
	for _, f := range files {
		add(f)
	}
	add(strings.TrimPrefix(path.Clean(g.opts.BlogIndexPath), "/"))

	slices.SortFunc(targets, func(a, b Target) int { return strings.Compare(a.OutPath, b.OutPath) })
	return targets, nil
}

// Generate removes the output directory, then fetches and writes every
// target. Any failed fetch or write aborts the run and the partial output
// directory is removed.
func (g *Generator) Generate(ctx context.Context) (report *Report, err error) {
	start := time.Now()

	out, err := g.outputDir()
	if err != nil {
		return nil, err
	}

	g.logger.Info("export: cleaning output directory", "dir", out)
	if err := os.RemoveAll(out); err != nil {
		return nil, fmt.Errorf("export: remove output: %w", err)
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, fmt.Errorf("export: create output: %w", err)
	}
	defer func() {
		if err != nil {
			if rmErr := os.RemoveAll(out); rmErr != nil {
				g.logger.Error("export: remove partial output", "dir", out, "error", rmErr)
			}
		}
	}()

	targets, err := g.Plan()
	if err != nil {
		return nil, err
	}

	report = &Report{OutputDir: out, Files: make([]string, 0, len(targets))}
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Workers)
	for _, t := range targets {
		eg.Go(func() error {
			body, err := g.fetcher.Fetch(egCtx, t.URLPath)
			if err != nil {
				return fmt.Errorf("export: fetch %s: %w", t.URLPath, err)
			}
			dst := filepath.Join(out, filepath.FromSlash(t.OutPath))
			if err := writeFile(dst, body); err != nil {
				return fmt.Errorf("export: write %s: %w", t.OutPath, err)
			}
			g.logger.Debug("export: wrote page", "path", t.OutPath, "bytes", len(body))

			mu.Lock()
			report.Files = append(report.Files, t.OutPath)
			report.Bytes += int64(len(body))
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	slices.Sort(report.Files)
	report.Duration = time.Since(start)
	g.logger.Info("export: snapshot written",
		"dir", out,
		"files", len(report.Files),
		"bytes", report.Bytes,
		"duration", report.Duration,
	)
	return report, nil
}

// outputDir resolves the output directory and refuses locations whose
// removal would delete the content root.
func (g *Generator) outputDir() (string, error) {
	if strings.TrimSpace(g.opts.OutputDir) == "" {
		return "", fmt.Errorf("export: output directory not set: %w", apperr.ErrUnsafeOutput)
	}
	out, err := filepath.Abs(g.opts.OutputDir)
	if err != nil {
		return "", fmt.Errorf("export: resolve output: %w", err)
	}
	root := filepath.Clean(g.store.Root())
	if out == root || strings.HasPrefix(root, out+string(filepath.Separator)) || out == filepath.Dir(out) {
		return "", fmt.Errorf("export: %s contains content root %s: %w", out, root, apperr.ErrUnsafeOutput)
	}
	return out, nil
}
