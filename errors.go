package insightengine

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure. Kinds are stable: the HTTP layer
// maps them to status codes and clients match on them.
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindInsufficientData  Kind = "insufficient_data"
	KindAIProviderError   Kind = "ai_provider_error"
	KindSanitizationError Kind = "sanitization_error"
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindInternal          Kind = "internal"
)

// Error is the engine's error wrapper. Every failure that crosses the
// engine boundary carries a Kind; the wrapped cause is preserved for
// errors.Is / errors.As.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an *Error. err may be nil.
func E(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, or KindInternal for errors that
// did not originate in the engine.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
