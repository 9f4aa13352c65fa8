package application

import "github.com/pkg/errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrOrderNotFailed      = errors.New("order is not failed")
	ErrDispatcherSaturated = errors.New("dispatcher saturated")
	ErrDispatcherClosed    = errors.New("dispatcher closed")
)

// ValidationError rejects a malformed command before it reaches the saga
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid command: " + e.Reason
}

// Is lets callers match any validation failure with errors.Is(err, ErrValidation)
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(reason string) error {
	return &ValidationError{Reason: reason}
}
