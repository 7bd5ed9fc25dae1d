package orchestrator

import (
	"errors"
	"fmt"
)

// ErrEmptyPrompt is returned when a query arrives with a blank prompt. It is
// the only required-input validation the engine performs.
var ErrEmptyPrompt = errors.New("prompt must not be empty")

// ProviderError wraps a fatal failure of the original provider call. Every
// other failure category degrades the result instead of surfacing.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
