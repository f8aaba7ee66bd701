package dataprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/adminkit/internal/logging"
	"github.com/muurk/adminkit/internal/version"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	// DefaultCacheDuration is the default GetOne cache validity duration
	DefaultCacheDuration = 30 * time.Second
)

// Client is a Provider speaking JSON over HTTP to an admin backend
type Client struct {
	// BaseURL is the backend root (e.g., "http://127.0.0.1:8460")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// TokenSource returns the bearer token for each request ("" = anonymous)
	TokenSource func() string

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool

	// CacheDuration is how long GetOne results are cached (0 = no cache)
	CacheDuration time.Duration

	cache      map[string]cacheEntry
	cacheMutex sync.RWMutex
	log        *zap.Logger
}

type cacheEntry struct {
	resp *Response
	at   time.Time
}

// NewClient creates a new client for the backend at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
		CacheDuration:         DefaultCacheDuration,
		cache:                 make(map[string]cacheEntry),
		log:                   logging.Named("dataprovider"),
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetToken uses a fixed bearer token
func (c *Client) SetToken(token string) {
	c.TokenSource = func() string { return token }
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// SetCacheDuration sets the cache validity duration
// Set to 0 to disable caching entirely
func (c *Client) SetCacheDuration(duration time.Duration) {
	c.CacheDuration = duration
	if duration == 0 {
		c.InvalidateCache()
	}
}

// InvalidateCache drops every cached record
func (c *Client) InvalidateCache() {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	c.cache = make(map[string]cacheEntry)
}

// Ping checks that the backend answers on its health endpoint
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doOnce(ctx, http.MethodGet, "/healthz", nil)
	return err
}

// Create posts payload to path
func (c *Client) Create(ctx context.Context, path string, payload Record) (*Response, error) {
	resp, err := c.do(ctx, http.MethodPost, resourcePath(path, ""), payload)
	if err != nil {
		return nil, err
	}
	c.invalidatePrefix(resourcePath(path, ""))
	return resp, nil
}

// Update replaces the record id under path with payload
func (c *Client) Update(ctx context.Context, path, id string, payload Record) (*Response, error) {
	if id == "" {
		return nil, NewValidationError("update requires a record id")
	}
	p := resourcePath(path, id)
	resp, err := c.do(ctx, http.MethodPut, p, payload)
	if err != nil {
		return nil, err
	}
	c.invalidatePrefix(resourcePath(path, ""))
	return resp, nil
}

// GetOne fetches the record id under path
// Uses the cached record if available and fresh
func (c *Client) GetOne(ctx context.Context, path, id string) (*Response, error) {
	if id == "" {
		return nil, NewValidationError("get requires a record id")
	}
	p := resourcePath(path, id)

	if c.CacheDuration > 0 {
		c.cacheMutex.RLock()
		entry, ok := c.cache[p]
		c.cacheMutex.RUnlock()
		if ok && time.Since(entry.at) < c.CacheDuration {
			return &Response{StatusCode: entry.resp.StatusCode, Data: entry.resp.Data.Clone()}, nil
		}
	}

	resp, err := c.do(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, err
	}

	if c.CacheDuration > 0 {
		c.cacheMutex.Lock()
		c.cache[p] = cacheEntry{resp: &Response{StatusCode: resp.StatusCode, Data: resp.Data.Clone()}, at: time.Now()}
		c.cacheMutex.Unlock()
	}
	return resp, nil
}

func (c *Client) invalidatePrefix(prefix string) {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	for k := range c.cache {
		if k == prefix || strings.HasPrefix(k, prefix+"/") {
			delete(c.cache, k)
		}
	}
}

// do runs one request with retries and exponential backoff
func (c *Client) do(ctx context.Context, method, path string, payload Record) (*Response, error) {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ClassifyNetworkError(ctx.Err(), path)
			case <-time.After(currentDelay):
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		resp, err := c.doOnce(ctx, method, path, payload)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
		c.log.Debug("Retrying request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return nil, lastErr
}

// doOnce performs a single request attempt
func (c *Client) doOnce(ctx context.Context, method, path string, payload Record) (*Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, NewParseError("failed to encode request body", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, NewNetworkError("failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.TokenSource != nil {
		if token := c.TokenSource(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	logging.LogHTTPRequest(c.BaseURL, method, path, flatten(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		e := NewNetworkError(fmt.Sprintf("%s %s failed", method, path), err)
		e.Path = path
		return nil, e
	}
	defer func() { _ = resp.Body.Close() }()
	logging.LogHTTPResponse(c.BaseURL, resp.StatusCode, flatten(resp.Header))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := NewStatusError(resp.StatusCode, data)
		e.Path = path
		return nil, e
	}

	out := &Response{StatusCode: resp.StatusCode}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}

	var envelope map[string]any
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, NewParseError("failed to parse JSON response", err)
	}
	if inner, ok := envelope["data"].(map[string]any); ok && len(envelope) == 1 {
		envelope = inner
	}
	out.Data = Record(envelope)
	return out, nil
}

// resourcePath joins a resource path and optional id into "/path[/id]"
func resourcePath(path, id string) string {
	p := "/" + strings.Trim(path, "/")
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

func flatten(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
