package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Errors returned by API calls.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, apiclient.ErrNotFound) {
//	    // the recording was deleted upstream
//	}
var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("resource not found")

	// ErrAuth is returned for 401 and 403 responses.
	ErrAuth = errors.New("authentication failed")

	// ErrValidation is returned when the API rejects the request body,
	// typically because a property has the wrong type.
	ErrValidation = errors.New("request rejected by API")

	// ErrRateLimited is returned for 429 responses.
	ErrRateLimited = errors.New("rate limited")

	// ErrServer is returned for 5xx responses.
	ErrServer = errors.New("server error")

	// ErrNetwork is returned when the request never produced a response.
	ErrNetwork = errors.New("network error")

	// ErrTransient wraps the last error once retries are exhausted.
	ErrTransient = errors.New("transient API failure")

	// ErrDecode is returned when a successful response cannot be decoded.
	ErrDecode = errors.New("malformed API response")
)

// APIError is a non-2xx response. It unwraps to the sentinel matching its
// status code.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, msg)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return ErrAuth
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrServer
	default:
		return ErrValidation
	}
}

// IsRetryable returns true if the request may succeed when repeated.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrServer) ||
		errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrTransient)
}

// IsFatal returns true if retrying cannot help without user action.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAuth) || errors.Is(err, ErrValidation)
}

// retryableStatus reports the statuses that are retried.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
