package service

import (
	"errors"
	"fmt"
)

// Errors returned by the order service.
var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrMenuItemNotFound = errors.New("menu item not found")

	// ErrStatusConflict means a concurrent transition changed the order
	// between read and write; the caller may retry.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// ValidationError reports malformed creation input. Field names match the
// JSON request fields so callers can render a user message directly.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// TransitionError reports an illegal status change.
type TransitionError struct {
	From   Status
	Target string
}

func (e *TransitionError) Error() string {
	if _, known := ParseStatus(e.Target); !known {
		return fmt.Sprintf("unknown status %q", e.Target)
	}
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.Target)
}
