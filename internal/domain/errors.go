package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIdentifier indicates a name outside [A-Za-z0-9_-]+.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrIdentifierTaken indicates a preferred name already names an index.
	// Callers treat it as a warning and fall back to a generated name.
	ErrIdentifierTaken = errors.New("identifier taken")

	ErrNotFound     = errors.New("not found")
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrPageLimitExceeded is reported when a document is truncated to the page cap.
	ErrPageLimitExceeded = errors.New("page limit exceeded")

	ErrEmptyDocument  = errors.New("document has no text")
	ErrSessionNotOpen = errors.New("session not open")

	ErrEmbeddingService = errors.New("embedding service error")
	ErrLLMService       = errors.New("llm service error")
	ErrRateLimited      = errors.New("rate limited")
	ErrTimeout          = errors.New("timeout")
)

// ServiceError wraps a failure of an external dependency.
// Kind is one of the service sentinels above and is matched by errors.Is.
type ServiceError struct {
	Kind error
	Op   string
	Err  error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
