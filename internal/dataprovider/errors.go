package dataprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (connection refused, timeout, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeAuth indicates the backend rejected the session (401)
	ErrTypeAuth
	// ErrTypeForbidden indicates the session lacks permission (403)
	ErrTypeForbidden
	// ErrTypeNotFound indicates the record or resource does not exist (404)
	ErrTypeNotFound
	// ErrTypeHTTP indicates any other non-2xx status code
	ErrTypeHTTP
	// ErrTypeParse indicates a parsing error (malformed JSON, invalid response)
	ErrTypeParse
	// ErrTypeValidation indicates the backend rejected the payload (400, 409, 422)
	ErrTypeValidation
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the backend refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeCancelled indicates the caller's context was cancelled
	ErrTypeCancelled
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeForbidden:
		return "Forbidden"
	case ErrTypeNotFound:
		return "Not Found"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeCancelled:
		return "Cancelled"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is the structured failure of a data provider call. Message is
// always set and is safe to show to the user.
type Error struct {
	Type           ErrorType           // Category of error
	Message        string              // Human-readable error message
	StatusCode     int                 // HTTP status code (if applicable)
	Extra          map[string]any      // Backend-supplied details, e.g. per-field errors
	Err            error               // Underlying error (if any)
	NetworkSubtype NetworkErrorSubtype // More specific network error type
	Path           string              // Resource path (for context)
	Retryable      bool                // Whether the error is retryable
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the message without the type prefix.
func (e *Error) UserMessage() string {
	return e.Message
}

// ClassifyNetworkError analyzes a transport error and returns a more specific error type
func ClassifyNetworkError(err error, path string) *Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return &Error{
			Type:      ErrTypeCancelled,
			Message:   "Request cancelled",
			Err:       err,
			Path:      path,
			Retryable: false,
		}
	}

	// Check for timeout errors
	if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Type:           ErrTypeTimeout,
			Message:        "Request timed out",
			Err:            err,
			NetworkSubtype: NetworkErrorTimeout,
			Path:           path,
			Retryable:      !errors.Is(err, context.DeadlineExceeded),
		}
	}

	// Check for DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{
			Type:           ErrTypeDNS,
			Message:        fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:            err,
			NetworkSubtype: NetworkErrorDNS,
			Path:           path,
			Retryable:      false,
		}
	}

	// Check for connection refused
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return &Error{
				Type:           ErrTypeConnectionRefused,
				Message:        "Backend refused connection",
				Err:            err,
				NetworkSubtype: NetworkErrorConnectionRefused,
				Path:           path,
				Retryable:      true,
			}
		}
		if errors.Is(opErr.Err, syscall.EHOSTUNREACH) {
			return &Error{
				Type:           ErrTypeNetwork,
				Message:        "Host unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorHostUnreachable,
				Path:           path,
				Retryable:      true,
			}
		}
		if errors.Is(opErr.Err, syscall.ENETUNREACH) {
			return &Error{
				Type:           ErrTypeNetwork,
				Message:        "Network unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorNetworkUnreachable,
				Path:           path,
				Retryable:      true,
			}
		}
	}

	// Check for URL errors
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// Recursively classify the underlying error
		return ClassifyNetworkError(urlErr.Err, path)
	}

	// Generic network error
	return &Error{
		Type:           ErrTypeNetwork,
		Message:        "Network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
		Path:           path,
		Retryable:      true,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *Error {
	classified := ClassifyNetworkError(err, "")
	if classified != nil {
		if classified.Type != ErrTypeCancelled && classified.Type != ErrTypeTimeout {
			classified.Message = message
		}
		return classified
	}
	return &Error{
		Type:      ErrTypeNetwork,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewAuthError creates an authentication error
func NewAuthError(message string) *Error {
	return &Error{
		Type:       ErrTypeAuth,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Retryable:  false,
	}
}

// NewHTTPError creates an HTTP-level error
func NewHTTPError(statusCode int, message string) *Error {
	retryable := statusCode >= 500 || statusCode == http.StatusTooManyRequests
	return &Error{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *Error {
	return &Error{
		Type:      ErrTypeParse,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *Error {
	return &Error{
		Type:       ErrTypeValidation,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Retryable:  false,
	}
}

// errorBody is the JSON error envelope returned by admin backends.
type errorBody struct {
	Message string         `json:"message"`
	Error   string         `json:"error"`
	Errors  map[string]any `json:"errors"`
}

// NewStatusError maps a non-2xx response to an Error, taking the message and
// details from a JSON error body when one is present.
func NewStatusError(statusCode int, body []byte) *Error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	msg := eb.Message
	if msg == "" {
		msg = eb.Error
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" || len(msg) > 200 {
		msg = fmt.Sprintf("unexpected status code: %d", statusCode)
	}

	var e *Error
	switch statusCode {
	case http.StatusUnauthorized:
		e = NewAuthError(msg)
	case http.StatusForbidden:
		e = &Error{Type: ErrTypeForbidden, Message: msg, StatusCode: statusCode}
	case http.StatusNotFound:
		e = &Error{Type: ErrTypeNotFound, Message: msg, StatusCode: statusCode}
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		e = NewValidationError(msg)
		e.StatusCode = statusCode
	default:
		e = NewHTTPError(statusCode, msg)
	}
	if len(eb.Errors) > 0 {
		e.Extra = eb.Errors
	}
	return e
}

// Normalize returns err as an *Error with a non-empty message. Errors that
// are not already structured become ErrTypeUnknown with fallback as message.
func Normalize(err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Message == "" {
			e.Message = fallback
		}
		return e
	}
	msg := fallback
	if msg == "" {
		msg = err.Error()
	}
	return &Error{Type: ErrTypeUnknown, Message: msg, Err: err}
}

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS, etc.)
func IsNetworkError(err error) bool {
	if e, ok := asError(err); ok {
		return e.Type == ErrTypeNetwork ||
			e.Type == ErrTypeTimeout ||
			e.Type == ErrTypeConnectionRefused ||
			e.Type == ErrTypeDNS
	}
	return false
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	if e, ok := asError(err); ok {
		return e.Type == ErrTypeAuth
	}
	return false
}

// IsForbidden checks if an error is a permission error
func IsForbidden(err error) bool {
	if e, ok := asError(err); ok {
		return e.Type == ErrTypeForbidden
	}
	return false
}

// IsNotFound checks if an error reports a missing record
func IsNotFound(err error) bool {
	if e, ok := asError(err); ok {
		return e.Type == ErrTypeNotFound
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	if e, ok := asError(err); ok {
		return e.Type == ErrTypeValidation
	}
	return false
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	if e, ok := asError(err); ok {
		return e.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// ShortMessage returns a concise, user-friendly error message
func ShortMessage(err error) string {
	e, ok := asError(err)
	if !ok {
		return err.Error()
	}

	switch e.Type {
	case ErrTypeTimeout:
		return "Backend not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Backend refused connection - is it running?"
	case ErrTypeDNS:
		return "Cannot resolve backend hostname"
	case ErrTypeAuth:
		return "Session expired - log in again"
	case ErrTypeForbidden:
		return "Permission denied"
	case ErrTypeNetwork:
		switch e.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "Backend unreachable - check network connection"
		case NetworkErrorNetworkUnreachable:
			return "Network unreachable - check connection"
		default:
			return "Network error - check connection"
		}
	case ErrTypeHTTP:
		return fmt.Sprintf("Backend error (HTTP %d)", e.StatusCode)
	case ErrTypeParse:
		return "Failed to parse backend response"
	default:
		return e.Message
	}
}

// Hint returns troubleshooting advice for an error
func Hint(err error) string {
	e, ok := asError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch e.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The backend did not respond in time.",
			"Troubleshooting:",
			"  • Check that the backend is running",
			"  • Try increasing client.timeout_seconds in the config file",
		}, "\n")
	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The backend refused the connection.",
			"Troubleshooting:",
			"  • Start a development backend with: adminkit serve",
			"  • Verify the backend URL and port",
		}, "\n")
	case ErrTypeDNS:
		return strings.Join([]string{
			"Could not resolve the backend hostname.",
			"Troubleshooting:",
			"  • Use the IP address instead of hostname",
			"  • Run: adminkit discover",
		}, "\n")
	case ErrTypeAuth:
		return "Your session is no longer valid. Run: adminkit login"
	case ErrTypeForbidden:
		return "Your account lacks permission for this resource."
	case ErrTypeValidation:
		return "The submitted values were rejected. Check the error message for details."
	case ErrTypeHTTP:
		if e.StatusCode >= 500 {
			return fmt.Sprintf("The backend failed (HTTP %d). Check the backend logs.", e.StatusCode)
		}
		return fmt.Sprintf("The backend returned HTTP error %d. Check the request parameters.", e.StatusCode)
	default:
		return "An error occurred. Please check the error message for details."
	}
}
