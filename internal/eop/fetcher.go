package eop

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultFinalsURL is the IERS rapid service finals2000A file.
	DefaultFinalsURL = "https://datacenter.iers.org/products/eop/rapid/standard/finals2000A.data"

	// DefaultTimeout for HTTP requests.
	DefaultTimeout = 60 * time.Second
)

// Fetcher downloads finals tables over HTTP.
type Fetcher struct {
	client  *http.Client
	url     string
	timeout time.Duration
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithURL sets the finals file URL.
func WithURL(url string) FetcherOption {
	return func(f *Fetcher) {
		f.url = url
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// NewFetcher creates a fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		url:     DefaultFinalsURL,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: f.timeout}
	}
	return f
}

// FetchResult contains the result of a fetch operation.
type FetchResult struct {
	Entries   []Entry
	RawBytes  []byte
	FetchedAt time.Time
	Duration  time.Duration
	Error     error
}

// Fetch downloads and parses the finals table.
func (f *Fetcher) Fetch(ctx context.Context) FetchResult {
	start := time.Now()
	result := FetchResult{FetchedAt: start}

	raw, err := f.fetchRaw(ctx)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		return result
	}
	result.RawBytes = raw

	entries, err := Parse(bytes.NewReader(raw))
	if err != nil {
		result.Error = fmt.Errorf("parse finals: %w", err)
		return result
	}
	result.Entries = entries
	return result
}

func (f *Fetcher) fetchRaw(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "ls-nightsky/1.0")
	req.Header.Set("Accept", "text/plain")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch finals: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

// URL returns the configured URL.
func (f *Fetcher) URL() string {
	return f.url
}
