package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Concrete errors wrap one of these so callers can branch with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrDependency   = errors.New("dependency unavailable")
	ErrStorage      = errors.New("storage error")
)

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Unauthorizedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

// Dependency wraps err as a dependency failure, keeping err in the chain.
func Dependency(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDependency, op, err)
}

// Storage wraps err as a storage failure unless it already carries a kind.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
