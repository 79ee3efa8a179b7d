// Package shortener shortens links through a plain-text URL shortening API.
package shortener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrEmptyResponse is returned when the service answers without a URL.
var ErrEmptyResponse = errors.New("empty response")

// Client calls GET <base>?url=<long url> and reads the short URL from the
// response body.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
}

// New returns a client for the service at base. Outbound calls are limited
// to rps per second; rps <= 0 disables the limit.
func New(base string, rps float64, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		base:    base,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Shorten returns the short form of longURL.
func (c *Client) Shorten(ctx context.Context, longURL string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for rate limit: %w", err)
	}

	u, err := url.Parse(c.base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("url", longURL)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("shorten: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("shorten: unexpected status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	short := strings.TrimSpace(string(body))
	if short == "" {
		return "", ErrEmptyResponse
	}
	parsed, err := url.Parse(short)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("shorten: invalid url %q", short)
	}
	return short, nil
}
