package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAdapterUnavailable marks an unreachable vector store or model
	// endpoint. Retryable.
	ErrAdapterUnavailable = errors.New("adapter unavailable")
	// ErrAdapterTimeout marks an external call that exceeded its deadline.
	// Retryable with backoff.
	ErrAdapterTimeout = errors.New("adapter timeout")
	// ErrMalformedModelOutput marks a model response that could not be
	// parsed into the expected structure. Strategies degrade, never fail.
	ErrMalformedModelOutput = errors.New("malformed model output")
	// ErrInvalidConfig marks a structurally invalid tunable. Rejected at
	// construction.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrUnknownStrategy marks an unrecognized strategy name. Non-fatal;
	// callers substitute the semantic strategy.
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// StrategyError is the uniform failure type of the strategy contract.
type StrategyError struct {
	Op        string
	Kind      error
	Retryable bool
	Err       error
}

func (e *StrategyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *StrategyError) Unwrap() error {
	if e.Kind != nil {
		return e.Kind
	}
	return e.Err
}

// NewStrategyError classifies err under kind. Retryability follows the
// taxonomy: unavailability and timeouts retry, everything else does not.
func NewStrategyError(op string, kind error, err error) *StrategyError {
	return &StrategyError{
		Op:        op,
		Kind:      kind,
		Retryable: errors.Is(kind, ErrAdapterUnavailable) || errors.Is(kind, ErrAdapterTimeout),
		Err:       err,
	}
}
