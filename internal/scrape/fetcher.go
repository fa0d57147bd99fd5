// Package scrape fetches the provider directory listing page and parses its
// result cards into provider records.
package scrape

import (
	"context"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultTimeout bounds a single page fetch.
const DefaultTimeout = 30 * time.Second

// Fetcher retrieves HTML from a URL. The directory page must be
// server-rendered (or pre-rendered); executing JavaScript is out of scope.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.client.Timeout = d
	}
}

// WithUserAgent overrides the request User-Agent.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// NewFetcher creates a Fetcher with sane defaults.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: "rehabdir/1.0",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the HTML content of the given URL. Non-200 responses are
// errors: with no listing there is nothing to process.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", eris.Wrapf(err, "scrape: build request for %s", url)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "scrape: fetch %s", url)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("scrape: %s returned status %d", url, resp.StatusCode)
	}

	reader, err := charsetReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", eris.Wrapf(err, "scrape: read body from %s", url)
	}
	return string(body), nil
}

// charsetReader wraps the response body in a decoder when the Content-Type
// declares a charset. No declaration, or one the media-type parser cannot
// read, means the body passes through as-is (UTF-8 in practice).
func charsetReader(body io.Reader, contentType string) (io.Reader, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil || params["charset"] == "" {
		return body, nil
	}
	enc, err := htmlindex.Get(params["charset"])
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: unsupported charset %q", params["charset"])
	}
	return enc.NewDecoder().Reader(body), nil
}
