package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Predefined domain errors.
var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput signals malformed or oversized input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRateLimited signals that the caller exhausted its request window.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrGenerationTimeout signals that the AI call exceeded its time budget.
	// It is distinct from other generation failures: the general endpoint
	// maps it to 504, the concierge endpoint recovers with a fallback reply.
	ErrGenerationTimeout = errors.New("generation timeout")
	// ErrInternal signals an unclassified internal failure.
	ErrInternal = errors.New("internal error")
)

// GenerationFailureKind classifies non-timeout generation failures by
// substring match on the error text.
type GenerationFailureKind string

const (
	FailureAPIKey  GenerationFailureKind = "api_key"
	FailureQuota   GenerationFailureKind = "quota"
	FailureNetwork GenerationFailureKind = "network"
	FailureUnknown GenerationFailureKind = "unknown"
)

// ClassifyGenerationFailure inspects the error message for the known
// unavailable-service categories. Anything unclassified is FailureUnknown.
func ClassifyGenerationFailure(err error) GenerationFailureKind {
	if err == nil {
		return FailureUnknown
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "API key"):
		return FailureAPIKey
	case strings.Contains(msg, "quota"):
		return FailureQuota
	case strings.Contains(msg, "network"):
		return FailureNetwork
	default:
		return FailureUnknown
	}
}

// DomainError carries a machine code, a user-safe message and the wrapped
// cause. Internal details never leak into UserMessage.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface (for logs and internal propagation).
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UserMessage returns the user-facing message without internal details.
func (e *DomainError) UserMessage() string {
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewInvalidInputError creates an invalid-input error.
func NewInvalidInputError(message string) error {
	return &DomainError{
		Code:    "INVALID_INPUT",
		Message: message,
		Err:     ErrInvalidInput,
	}
}

// NewInternalError wraps an unclassified internal failure.
func NewInternalError(err error) error {
	return &DomainError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Err:     fmt.Errorf("%w: %v", ErrInternal, err),
	}
}

// IsNotFound reports whether err is a missing-resource error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput reports whether err is an invalid-input error.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsGenerationTimeout reports whether err is a generation timeout.
func IsGenerationTimeout(err error) bool {
	return errors.Is(err, ErrGenerationTimeout)
}
