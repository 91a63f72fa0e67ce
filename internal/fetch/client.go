// Package fetch performs bounded HTTP GETs for feed and article-page
// scraping.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultTimeout       = 30 * time.Second
	DefaultBodyByteLimit = 2 * 1024 * 1024

	defaultUserAgent = "khobor-news-scraper/1.0 (+https://khobor.news)"
)

// Options controls HTTP behavior for scrape fetches.
type Options struct {
	Timeout       time.Duration
	BodyByteLimit int64
	UserAgent     string
	HTTPClient    *http.Client
}

// Client is a reusable fetcher with a per-call timeout and a response
// body cap. A single client serves every feed and article page in a
// scrape run.
type Client struct {
	timeout       time.Duration
	bodyByteLimit int64
	userAgent     string
	httpClient    *http.Client
}

// NewClient builds a fetch client; zero options select the defaults.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	bodyLimit := opts.BodyByteLimit
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyByteLimit
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		timeout:       timeout,
		bodyByteLimit: bodyLimit,
		userAgent:     userAgent,
		httpClient:    httpClient,
	}
}

// Get retrieves one URL and returns at most the configured number of
// body bytes. Non-2xx responses are errors.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	page := strings.TrimSpace(rawURL)
	if page == "" {
		return nil, fmt.Errorf("url is required")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, page, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/rss+xml,application/atom+xml,text/html,application/xhtml+xml,text/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "bn-BD,bn;q=0.9,en;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.bodyByteLimit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}
