package models

import "fmt"

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// API error codes
const (
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeSessionNotFound   = "SESSION_NOT_FOUND"
	ErrCodeDeckNotReady      = "DECK_NOT_READY"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeAmbiguousInput    = "AMBIGUOUS_INPUT"
)

// RouteErrorKind classifies per-slide routing failures. The taxonomy is
// closed; callers branch on it to decide whether a failure was the slide's
// own fault, a configuration gap, or a backend problem.
type RouteErrorKind string

const (
	// RouteErrValidation marks a slide that failed pre-dispatch validation
	// (missing layout or required variant). Reported per slide; never
	// aborts the batch.
	RouteErrValidation RouteErrorKind = "validation_error"
	// RouteErrBackendUnavailable marks a slide whose backend client was
	// never constructed (integration disabled or failed to initialize).
	// Distinct from a request-time failure.
	RouteErrBackendUnavailable RouteErrorKind = "backend_unavailable"
	// RouteErrBackendRequest marks a network/timeout/non-2xx failure that
	// survived the retry budget.
	RouteErrBackendRequest RouteErrorKind = "backend_request_error"
	// RouteErrConstraint marks a response that violated a backend-declared
	// constraint. Only terminal when the caller opts out of
	// accept-with-flag behavior.
	RouteErrConstraint RouteErrorKind = "constraint_violation"
)

// RouteError is the typed per-slide failure attached to a SlideResult.
type RouteError struct {
	Kind   RouteErrorKind `json:"kind"`
	Reason string         `json:"reason"`
}

// Error implements the error interface.
func (e *RouteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// InvalidTransitionError reports an intent that is not valid for the
// session's current stage. The state machine rejects it without mutating
// state; the caller re-emits the current stage's prompt.
type InvalidTransitionError struct {
	Stage  Stage
	Intent Intent
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("intent %q is not valid in stage %s", e.Intent, e.Stage)
}

// AmbiguousInputError reports free text the intent gate could not map to an
// intent for the current stage. The session is not mutated; the caller
// re-prompts with the stage's offers.
type AmbiguousInputError struct {
	Stage Stage
}

// Error implements the error interface.
func (e *AmbiguousInputError) Error() string {
	return fmt.Sprintf("could not determine an intent from input in stage %s", e.Stage)
}
