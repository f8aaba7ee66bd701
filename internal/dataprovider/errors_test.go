package dataprovider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"testing"
)

func TestClassifyNetworkError_Timeout(t *testing.T) {
	err := &url.Error{
		Op:  "Get",
		URL: "http://127.0.0.1:8460/users",
		Err: &net.OpError{
			Op:  "dial",
			Net: "tcp",
			Err: &timeoutError{},
		},
	}

	e := ClassifyNetworkError(err, "/users")

	if e == nil {
		t.Fatal("Expected Error, got nil")
	}

	if e.Type != ErrTypeTimeout {
		t.Errorf("Expected error type %v, got %v", ErrTypeTimeout, e.Type)
	}

	if e.NetworkSubtype != NetworkErrorTimeout {
		t.Errorf("Expected network subtype %v, got %v", NetworkErrorTimeout, e.NetworkSubtype)
	}

	if !e.Retryable {
		t.Error("Expected timeout error to be retryable")
	}

	if e.Path != "/users" {
		t.Errorf("Path = %q, want /users", e.Path)
	}
}

func TestClassifyNetworkError_ConnectionRefused(t *testing.T) {
	err := &url.Error{
		Op:  "Post",
		URL: "http://127.0.0.1:8460/users",
		Err: &net.OpError{
			Op:  "dial",
			Net: "tcp",
			Err: syscall.ECONNREFUSED,
		},
	}

	e := ClassifyNetworkError(err, "/users")

	if e.Type != ErrTypeConnectionRefused {
		t.Errorf("Expected error type %v, got %v", ErrTypeConnectionRefused, e.Type)
	}

	if !e.Retryable {
		t.Error("Expected connection refused error to be retryable")
	}
}

func TestClassifyNetworkError_DNS(t *testing.T) {
	err := &net.DNSError{
		Err:        "no such host",
		Name:       "admin.invalid",
		IsNotFound: true,
	}

	e := ClassifyNetworkError(err, "/users")

	if e.Type != ErrTypeDNS {
		t.Errorf("Expected error type %v, got %v", ErrTypeDNS, e.Type)
	}

	if e.Retryable {
		t.Error("Expected DNS error to be non-retryable")
	}

	if !strings.Contains(e.Message, "admin.invalid") {
		t.Errorf("Message %q should name the host", e.Message)
	}
}

func TestClassifyNetworkError_Context(t *testing.T) {
	cancelled := ClassifyNetworkError(fmt.Errorf("wrapped: %w", context.Canceled), "/users")
	if cancelled.Type != ErrTypeCancelled || cancelled.Retryable {
		t.Errorf("context.Canceled classified as %v (retryable=%v)", cancelled.Type, cancelled.Retryable)
	}

	deadline := ClassifyNetworkError(context.DeadlineExceeded, "/users")
	if deadline.Type != ErrTypeTimeout || deadline.Retryable {
		t.Errorf("context.DeadlineExceeded classified as %v (retryable=%v)", deadline.Type, deadline.Retryable)
	}

	if ClassifyNetworkError(nil, "") != nil {
		t.Error("nil error should classify as nil")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", NewHTTPError(http.StatusBadGateway, "bad gateway"), true},
		{"rate limited", NewHTTPError(http.StatusTooManyRequests, "slow down"), true},
		{"client error", NewHTTPError(http.StatusTeapot, "teapot"), false},
		{"auth", NewAuthError("expired"), false},
		{"validation", NewValidationError("duplicate"), false},
		{"parse", NewParseError("bad json", errors.New("eof")), false},
		{"wrapped", fmt.Errorf("create: %w", NewHTTPError(http.StatusServiceUnavailable, "down")), true},
		{"plain", errors.New("plain"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewStatusError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType ErrorType
		wantMsg  string
		wantKeys int
	}{
		{"message body", http.StatusUnprocessableEntity, `{"message":"duplicate","errors":{"name":"taken"}}`, ErrTypeValidation, "duplicate", 1},
		{"error body", http.StatusConflict, `{"error":"exists"}`, ErrTypeValidation, "exists", 0},
		{"plain text", http.StatusForbidden, "nope\n", ErrTypeForbidden, "nope", 0},
		{"empty body", http.StatusNotFound, "", ErrTypeNotFound, "unexpected status code: 404", 0},
		{"unauthorized", http.StatusUnauthorized, `{"message":"token expired"}`, ErrTypeAuth, "token expired", 0},
		{"server", http.StatusInternalServerError, `{"message":"db down"}`, ErrTypeHTTP, "db down", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewStatusError(tt.status, []byte(tt.body))
			if e.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", e.Type, tt.wantType)
			}
			if e.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", e.Message, tt.wantMsg)
			}
			if e.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", e.StatusCode, tt.status)
			}
			if len(e.Extra) != tt.wantKeys {
				t.Errorf("Extra = %v, want %d keys", e.Extra, tt.wantKeys)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if Normalize(nil, "x") != nil {
		t.Error("Normalize(nil) should be nil")
	}

	structured := NewValidationError("duplicate")
	if got := Normalize(fmt.Errorf("wrap: %w", structured), "fallback"); got != structured {
		t.Errorf("Normalize should unwrap to the structured error, got %v", got)
	}

	empty := &Error{Type: ErrTypeHTTP}
	if got := Normalize(empty, "fallback"); got.Message != "fallback" {
		t.Errorf("Message = %q, want fallback", got.Message)
	}

	plain := errors.New("socket closed")
	got := Normalize(plain, "Submission failed")
	if got.Type != ErrTypeUnknown || got.Message != "Submission failed" || !errors.Is(got, plain) {
		t.Errorf("Normalize(plain) = %+v", got)
	}

	if got := Normalize(plain, ""); got.Message != "socket closed" {
		t.Errorf("Message = %q, want the error text", got.Message)
	}
}

func TestShortMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&Error{Type: ErrTypeTimeout}, "Backend not responding (timeout)"},
		{NewAuthError("x"), "Session expired - log in again"},
		{NewHTTPError(502, "x"), "Backend error (HTTP 502)"},
		{NewValidationError("name is required"), "name is required"},
		{&Error{Type: ErrTypeNetwork, NetworkSubtype: NetworkErrorHostUnreachable}, "Backend unreachable - check network connection"},
		{errors.New("raw"), "raw"},
	}

	for _, tt := range tests {
		if got := ShortMessage(tt.err); got != tt.want {
			t.Errorf("ShortMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestHint(t *testing.T) {
	if !strings.Contains(Hint(&Error{Type: ErrTypeConnectionRefused}), "adminkit serve") {
		t.Error("connection refused hint should suggest starting a backend")
	}
	if !strings.Contains(Hint(NewAuthError("x")), "adminkit login") {
		t.Error("auth hint should suggest logging in")
	}
	if Hint(errors.New("x")) == "" {
		t.Error("hint for unstructured error should not be empty")
	}
}

func TestErrorFormatting(t *testing.T) {
	e := &Error{Type: ErrTypeParse, Message: "bad body", Err: errors.New("eof")}
	if got := e.Error(); got != "Parse Error: bad body (caused by: eof)" {
		t.Errorf("Error() = %q", got)
	}
	if e.UserMessage() != "bad body" {
		t.Errorf("UserMessage() = %q", e.UserMessage())
	}
	if ErrorType(99).String() != "ErrorType(99)" {
		t.Errorf("unknown type string = %q", ErrorType(99).String())
	}
}

type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }
