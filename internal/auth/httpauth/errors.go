package httpauth

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRevoked is reported when the backend ends the session remotely.
var ErrRevoked = errors.New("session revoked by backend")

// ErrThrottled is returned by Login when the local attempt budget is spent.
var ErrThrottled = errors.New("too many login attempts")

// Error is a failed auth endpoint call.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Op, e.Message, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the backend's message.
func (e *Error) UserMessage() string { return e.Message }

// IsUnauthorized reports whether err is a 401 from an auth endpoint or a
// remote revocation.
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrRevoked) {
		return true
	}
	var e *Error
	return errors.As(err, &e) && e.StatusCode == http.StatusUnauthorized
}
