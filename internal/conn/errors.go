package conn

import (
	"errors"
	"fmt"
)

// Kind classifies connection failures.
type Kind string

const (
	KindTransport Kind = "transport"
	KindAuth      Kind = "auth"
	KindTimeout   Kind = "timeout"
	KindNotReady  Kind = "not_ready"
	KindAbandoned Kind = "abandoned"
)

// Error is returned by Connect and Emit.
type Error struct {
	Kind      Kind
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connection %s", e.Kind)
	}
	return fmt.Sprintf("connection %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrNotReady is wrapped by Emit when the session is not authenticated.
var ErrNotReady = errors.New("not authenticated")

// ErrAbandoned is wrapped when Disconnect overtakes an in-flight Connect.
var ErrAbandoned = errors.New("connect attempt abandoned")

// KindOf returns the Kind of err, or "" when err is not a connection error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsRetryable reports whether err is a connection error worth retrying.
func IsRetryable(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Retryable
}
