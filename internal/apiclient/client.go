// Package apiclient is the HTTP machinery shared by the Pocket and Notion
// gateways: JSON requests with a per-call timeout, client-side rate
// limiting, error classification and exponential-backoff retries.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Config holds configuration for a Client.
type Config struct {
	// BaseURL is prepended to every request path.
	BaseURL string

	// Headers are sent with every request (auth, API version).
	Headers map[string]string

	// Timeout bounds a single HTTP round trip.
	Timeout time.Duration

	// RequestsPerSecond is the client-side rate limit. Zero disables it.
	RequestsPerSecond float64

	// MaxAttempts is the total number of tries for retryable failures.
	MaxAttempts int

	// BaseDelay and MaxDelay shape the exponential backoff.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// HTTPClient overrides the transport; its Timeout is replaced by Timeout.
	HTTPClient *http.Client

	// Logger for request activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Timeout:           30 * time.Second,
		RequestsPerSecond: 3,
		MaxAttempts:       3,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		Logger:            log.New(os.Stderr, "[api] ", log.LstdFlags),
	}
}

// Client performs JSON requests against one API.
type Client struct {
	base    string
	headers map[string]string
	http    *http.Client
	limiter *rate.Limiter
	config  *Config
}

// New creates a Client.
func New(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = time.Second
	}
	if config.MaxDelay < config.BaseDelay {
		config.MaxDelay = config.BaseDelay
	}
	if config.Logger == nil {
		config.Logger = log.New(io.Discard, "", 0)
	}

	httpClient := &http.Client{}
	if config.HTTPClient != nil {
		cp := *config.HTTPClient
		httpClient = &cp
	}
	httpClient.Timeout = config.Timeout

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &Client{
		base:    strings.TrimRight(config.BaseURL, "/"),
		headers: config.Headers,
		http:    httpClient,
		limiter: limiter,
		config:  config,
	}, nil
}

// Get issues a GET request and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Patch issues a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, nil, body, out)
}

// Do performs a request, retrying rate-limit, server and network failures
// with exponential backoff. When retries are exhausted the last error is
// wrapped with ErrTransient. Other failures are returned immediately.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = data
	}

	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	backoff := retry.WithMaxRetries(uint64(c.config.MaxAttempts-1),
		retry.WithCappedDuration(c.config.MaxDelay, retry.NewExponential(c.config.BaseDelay)))

	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		err := c.roundTrip(ctx, method, target, path, payload, out)
		if err == nil || !IsRetryable(err) {
			return err
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 && attempts < c.config.MaxAttempts {
			if werr := sleepContext(ctx, minDuration(apiErr.RetryAfter, c.config.MaxDelay)); werr != nil {
				return werr
			}
		}
		c.config.Logger.Printf("Retrying %s %s (attempt %d/%d): %v", method, path, attempts, c.config.MaxAttempts, err)
		return retry.RetryableError(err)
	})

	if err != nil && IsRetryable(err) {
		return fmt.Errorf("%w: %s %s failed after %d attempts: %w", ErrTransient, method, path, attempts, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, target, path string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	c.config.Logger.Printf("%s %s -> %d (%dms)", method, path, resp.StatusCode, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %w", ErrDecode, method, path, err)
	}
	return nil
}

func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
	} else if text := strings.TrimSpace(string(data)); text != "" && len(text) < 500 {
		apiErr.Message = text
	}

	if retryableStatus(resp.StatusCode) {
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return apiErr
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
