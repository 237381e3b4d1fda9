package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/starford/mdsite/internal/models"
)

// ErrUnexpectedStatus is returned when a page does not answer 200 OK.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Fetcher returns the response body the site serves for a URL path.
type Fetcher interface {
	Fetch(ctx context.Context, urlPath string) ([]byte, error)
}

// HTTPFetcher fetches pages from a running server.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPFetcher creates a fetcher issuing GET requests against baseURL,
// e.g. "http://127.0.0.1:4444". Redirects are not followed.
func NewHTTPFetcher(baseURL string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	c := *client
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &HTTPFetcher{baseURL: strings.TrimRight(baseURL, "/"), client: &c}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, urlPath string) ([]byte, error) {
	u := f.baseURL + (&url.URL{Path: urlPath}).EscapedPath()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: GET %s: %s", ErrUnexpectedStatus, urlPath, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", urlPath, err)
	}
	return body, nil
}

// Resolver renders a URL path without a network round-trip.
type Resolver interface {
	Resolve(ctx context.Context, urlPath string) (*models.Page, error)
}

// ResolverFetcher fetches pages by calling the site resolver in process.
type ResolverFetcher struct {
	resolver Resolver
}

// NewResolverFetcher creates an in-process fetcher.
func NewResolverFetcher(r Resolver) *ResolverFetcher {
	return &ResolverFetcher{resolver: r}
}

// Fetch implements Fetcher.
func (f *ResolverFetcher) Fetch(ctx context.Context, urlPath string) ([]byte, error) {
	page, err := f.resolver.Resolve(ctx, urlPath)
	if err != nil {
		return nil, err
	}
	if page.Status != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: %d %s", ErrUnexpectedStatus, urlPath, page.Status, http.StatusText(page.Status))
	}
	return page.Body, nil
}
