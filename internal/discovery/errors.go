package discovery

import (
	"errors"
	"fmt"
)

// Kind classifies a discovery failure.
type Kind string

const (
	KindPermissionDenied    Kind = "permission_denied"
	KindPositionUnavailable Kind = "position_unavailable"
	KindTimeout             Kind = "timeout"
	KindNetwork             Kind = "network_error"
)

// Error is what FindNearbyShows and JoinWithLocation return for location and
// backend failures. Message is safe to show to the user.
type Error struct {
	Kind      Kind
	Retryable bool
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("discovery %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("discovery %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, retryable bool, err error) *Error {
	return &Error{Kind: kind, Retryable: retryable, Message: messages[kind], Err: err}
}

var messages = map[Kind]string{
	KindPermissionDenied:    "Location access is turned off. Allow location access to find shows near you.",
	KindPositionUnavailable: "We couldn't work out where you are. Try again in a moment.",
	KindTimeout:             "Finding your location took too long. Try again in a moment.",
	KindNetwork:             "We couldn't reach the show service. Check your connection and try again.",
}

// PermissionDenied builds the error a Locator returns when the user refuses
// location access.
func PermissionDenied(err error) *Error { return newError(KindPermissionDenied, false, err) }

// PositionUnavailable builds the error a Locator returns when no fix exists.
func PositionUnavailable(err error) *Error { return newError(KindPositionUnavailable, true, err) }

// AsError extracts a discovery error from err.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
