// Package guard holds the pure checks every local action passes before it is
// emitted. Failures never leave the client.
package guard

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Vasu1712/scenyx-live/internal/models"
)

// Content limits, counted in characters (runes).
const (
	MaxMessageLength      = 500
	MaxAnnouncementLength = 200
	MaxSongRequestLength  = 200

	MinAnnouncementDuration     = 5
	MaxAnnouncementDuration     = 300
	DefaultAnnouncementDuration = 30
)

// Kind separates recoverable input problems from role violations.
type Kind string

const (
	KindValidation Kind = "validation"
	KindPermission Kind = "permission"
)

// Error is a locally rejected action.
type Error struct {
	Kind   Kind
	Field  string
	Reason string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Reason)
}

// Validation builds a validation error.
func Validation(field, reason string) *Error {
	return &Error{Kind: KindValidation, Field: field, Reason: reason}
}

// Permission builds a permission error.
func Permission(action, reason string) *Error {
	return &Error{Kind: KindPermission, Field: action, Reason: reason}
}

// IsValidation reports whether err is a validation rejection.
func IsValidation(err error) bool { return isKind(err, KindValidation) }

// IsPermission reports whether err is a permission rejection.
func IsPermission(err error) bool { return isKind(err, KindPermission) }

func isKind(err error, k Kind) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == k
}

// RequireDJ rejects DJ-only actions for any other role.
func RequireDJ(role models.Role, action string) error {
	if !role.IsDJ() {
		return Permission(action, "only the DJ can do this")
	}
	return nil
}

// CheckMessageBody trims body and enforces the chat length limit.
func CheckMessageBody(body string) (string, error) {
	return checkText("message", body, MaxMessageLength)
}

// CheckAnnouncementBody trims body and enforces the announcement length limit.
func CheckAnnouncementBody(body string) (string, error) {
	return checkText("announcement", body, MaxAnnouncementLength)
}

// CheckSongRequest trims an optional song request. Empty is allowed.
func CheckSongRequest(req string) (string, error) {
	req = strings.TrimSpace(req)
	if utf8.RuneCountInString(req) > MaxSongRequestLength {
		return "", Validation("songRequest", fmt.Sprintf("must be at most %d characters", MaxSongRequestLength))
	}
	return req, nil
}

// CheckAnnouncementDuration resolves a display duration in seconds; zero
// selects the default.
func CheckAnnouncementDuration(seconds int) (int, error) {
	if seconds == 0 {
		return DefaultAnnouncementDuration, nil
	}
	if seconds < MinAnnouncementDuration || seconds > MaxAnnouncementDuration {
		return 0, Validation("displayDuration",
			fmt.Sprintf("must be between %d and %d seconds", MinAnnouncementDuration, MaxAnnouncementDuration))
	}
	return seconds, nil
}

// CheckReorder requires order to be a permutation of members: same identities,
// no duplicates, nothing added or dropped.
func CheckReorder(members, order []string) error {
	if len(order) != len(members) {
		return Validation("queueOrder",
			fmt.Sprintf("expected %d singers, got %d", len(members), len(order)))
	}
	want := make(map[string]struct{}, len(members))
	for _, id := range members {
		want[id] = struct{}{}
	}
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		if _, ok := want[id]; !ok {
			return Validation("queueOrder", fmt.Sprintf("%q is not in the queue", id))
		}
		if _, dup := seen[id]; dup {
			return Validation("queueOrder", fmt.Sprintf("%q appears more than once", id))
		}
		seen[id] = struct{}{}
	}
	return nil
}

// CheckSingerAssignment requires singerID to be one of members.
func CheckSingerAssignment(members []string, singerID string) error {
	if strings.TrimSpace(singerID) == "" {
		return Validation("singerId", "is required")
	}
	for _, id := range members {
		if id == singerID {
			return nil
		}
	}
	return Validation("singerId", fmt.Sprintf("%q is not in the queue", singerID))
}

func checkText(field, body string, limit int) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", Validation(field, "cannot be empty")
	}
	if utf8.RuneCountInString(body) > limit {
		return "", Validation(field, fmt.Sprintf("must be at most %d characters", limit))
	}
	return body, nil
}
