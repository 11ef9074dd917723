package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetcher retrieves the raw HTML body for a URL. Implementations must not
// cache responses; the whole point of a crawl is a fresh read.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (status int, body []byte, err error)
}

// HTTPFetcher is the production Fetcher. It identifies itself with a
// stable User-Agent and asks for English content, since the numeric
// patterns the resolvers match against are English phrases.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewHTTPFetcher creates an HTTPFetcher with the given request timeout.
// A timeout of zero falls back to 30 seconds.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: "compscan/1.0 (+https://github.com/compscan/compscan)",
		maxBytes:  5 * 1024 * 1024,
	}
}

// Fetch performs a GET request and returns the response status and body.
// Non-2xx statuses are returned as errors along with the status code so
// the caller can log it.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("new request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Language", "en-GB,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, nil, fmt.Errorf("get %s: http %d %s", url, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	return resp.StatusCode, body, nil
}
