package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

// RESTClient performs rate limited, breaker guarded JSON GETs against one vendor.
type RESTClient struct {
	Service string
	BaseURL string
	HTTP    *http.Client
	Limiter *RateLimiter
	Breaker *CircuitBreaker
}

// NewRESTClient creates a client with a 10s timeout. limiter may be nil.
func NewRESTClient(service, baseURL string, limiter *RateLimiter) *RESTClient {
	return &RESTClient{
		Service: service,
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: defaultHTTPTimeout},
		Limiter: limiter,
		Breaker: NewCircuitBreaker(DefaultCircuitBreakerConfig(service)),
	}
}

// GetJSON fetches BaseURL+path?query and decodes the body into out.
// Every failure is an *UpstreamError (or ErrCircuitOpen).
func (c *RESTClient) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return &UpstreamError{Service: c.Service, Err: err}
		}
	}
	call := func() error { return c.do(ctx, path, query, out) }
	if c.Breaker == nil {
		return call()
	}
	return c.Breaker.Execute(call)
}

func (c *RESTClient) do(ctx context.Context, path string, query url.Values, out any) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.Service, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", GetUserAgent())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &UpstreamError{Service: c.Service, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &UpstreamError{Service: c.Service, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Service: c.Service, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}
