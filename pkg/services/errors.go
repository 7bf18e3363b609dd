// Package services holds the error taxonomy shared by every core
// component (spec.md §7). Components return these sentinels (wrapped
// with %w for context) rather than ad-hoc error strings, so callers can
// branch with errors.Is/errors.As regardless of which package raised
// the error.
package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a session or user is missing.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when an ownership check fails.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation is returned for bad input: outline empty, no writable
	// sections parsed from an outline, etc.
	ErrValidation = errors.New("validation error")

	// ErrPrecondition is returned when a phase gate is not satisfied
	// (draft must be validated, outline must exist, session is not
	// paused, session already complete).
	ErrPrecondition = errors.New("precondition failed")

	// ErrOutlineFrozen is returned when an outline write is rejected
	// because writing has started and the caller did not opt in via
	// allow_if_writing.
	ErrOutlineFrozen = errors.New("outline is frozen: writing has started")

	// ErrLLMFailure is returned after retries and fallback model are
	// exhausted.
	ErrLLMFailure = errors.New("llm call failed")

	// ErrStoreUnavailable signals infra failure in SessionStore/CreditLedger.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrBlobUnavailable signals infra failure in the BlobStore boundary.
	ErrBlobUnavailable = errors.New("blob store unavailable")

	// ErrRenderFailure signals the Rendering boundary failed to produce
	// a PDF/EPUB/DOCX.
	ErrRenderFailure = errors.New("render failed")

	// ErrAlreadyRunning is returned when StartGeneration/ResumeGeneration
	// is invoked for a session that already has an active generation
	// task registered (spec.md §5 one-task-per-session invariant).
	ErrAlreadyRunning = errors.New("generation already running for session")
)

// ValidationError wraps a field-specific validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %q: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a new field-scoped validation error.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err is (or wraps) a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CreditsExhaustedError carries the mode that had no credits left and
// when the pool next refills (spec.md §4.2, §7).
type CreditsExhaustedError struct {
	Mode        string
	NextResetAt time.Time
}

func (e *CreditsExhaustedError) Error() string {
	return fmt.Sprintf("credits exhausted for mode %q, next reset at %s", e.Mode, e.NextResetAt.Format(time.RFC3339))
}

func (e *CreditsExhaustedError) Is(target error) bool {
	return target == ErrCreditsExhausted
}

// ErrCreditsExhausted is the sentinel matched via errors.Is against a
// *CreditsExhaustedError.
var ErrCreditsExhausted = errors.New("credits exhausted")

// LLMFailureError carries the model that failed and the last underlying
// error, after retry+fallback exhaustion (spec.md §4.3, §7).
type LLMFailureError struct {
	Model string
	Last  error
}

func (e *LLMFailureError) Error() string {
	return fmt.Sprintf("llm call failed for model %q: %v", e.Model, e.Last)
}

func (e *LLMFailureError) Unwrap() error { return e.Last }

func (e *LLMFailureError) Is(target error) bool {
	return target == ErrLLMFailure
}
