package auth

import (
	"errors"
	"fmt"
)

// ErrCapabilityAbsent is matched by every CapabilityError.
var ErrCapabilityAbsent = errors.New("auth: capability absent")

// CapabilityError reports a call to an optional capability the provider does
// not implement.
type CapabilityError struct {
	Capability Capability
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("auth: provider does not support %s", e.Capability)
}

// Is matches ErrCapabilityAbsent.
func (e *CapabilityError) Is(target error) bool {
	return target == ErrCapabilityAbsent
}

// ResultError turns a failed ActionResult into an error so it can be routed
// through Provider.OnError like any other failure.
type ResultError struct {
	Op     string
	Result ActionResult
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("auth: %s failed: %s", e.Op, e.Result.Message)
}

// IsCapabilityAbsent reports whether err is a missing-capability condition.
func IsCapabilityAbsent(err error) bool {
	return errors.Is(err, ErrCapabilityAbsent)
}

// messager is implemented by structured provider errors.
type messager interface {
	UserMessage() string
}

// MessageOf extracts a human-readable message from err, preferring a
// structured provider message over the error string.
func MessageOf(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var m messager
	if errors.As(err, &m) {
		if msg := m.UserMessage(); msg != "" {
			return msg
		}
	}
	var re *ResultError
	if errors.As(err, &re) && re.Result.Message != "" {
		return re.Result.Message
	}
	if fallback != "" {
		return fallback
	}
	return err.Error()
}
