package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultGeocodeBaseURL = "https://nominatim.openstreetmap.org"
	DefaultGeocodeTimeout = 10 * time.Second

	defaultGeocodeUserAgent = "khobor-news-geocoder/1.0 (+https://khobor.news)"

	geocodeBodyByteLimit = 1 * 1024 * 1024
)

// Client queries a Nominatim-compatible search endpoint. Nominatim's
// usage policy requires an identifying User-Agent and at most one
// request per second; the Resolver enforces the spacing.
type Client struct {
	baseURL    string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
}

// ClientOptions controls HTTP behavior for geocoding requests.
type ClientOptions struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient builds a geocoding client; zero options select the public
// Nominatim instance with a ten second timeout.
func NewClient(opts ClientOptions) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultGeocodeBaseURL
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultGeocodeUserAgent
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultGeocodeTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		timeout:    timeout,
		httpClient: httpClient,
	}
}

// Geocode resolves a free-text query to one coordinate pair. found is
// false when the service answers with no results; err covers transport
// and decoding failures.
func (c *Client) Geocode(ctx context.Context, query string) (lat, lng float64, found bool, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, 0, false, fmt.Errorf("query is required")
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	endpoint := c.baseURL + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, 0, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, false, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, 0, false, fmt.Errorf("geocode status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, geocodeBodyByteLimit))
	if err != nil {
		return 0, 0, false, fmt.Errorf("read geocode body: %w", err)
	}

	// Nominatim serializes coordinates as strings.
	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.Unmarshal(body, &results); err != nil {
		return 0, 0, false, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, false, nil
	}

	lat, err = strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("parse latitude %q: %w", results[0].Lat, err)
	}
	lng, err = strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("parse longitude %q: %w", results[0].Lon, err)
	}

	return lat, lng, true, nil
}
