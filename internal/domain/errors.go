package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrAccountExists        = errors.New("account_already_exists")
	ErrAccountNotFound      = errors.New("account_not_found")
	ErrOrderNotFound        = errors.New("order_not_found")
	ErrOrderForbidden       = errors.New("order_forbidden")
	ErrInvalidOrderState    = errors.New("invalid_order_state")
	ErrInsufficientFunds    = errors.New("insufficient_funds")
	ErrInsufficientHoldings = errors.New("insufficient_holdings")
	ErrPositionNotFound     = errors.New("position_not_found")
	ErrQuoteNotFound        = errors.New("quote_not_found")
	ErrWebhookNotFound      = errors.New("webhook_not_found")

	// ErrStatusConflict is returned by stores when a conditional order write
	// finds the order in a status other than the expected one.
	ErrStatusConflict = errors.New("order_status_conflict")

	// ErrDependencyUnavailable matches every *DependencyError.
	ErrDependencyUnavailable = errors.New("dependency_unavailable")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DependencyError reports a failure of an external collaborator such as
// the backing store or the quote provider.
type DependencyError struct {
	Dependency string
	Err        error
}

// Unavailable wraps err as a DependencyError for the named dependency.
// A nil err yields nil.
func Unavailable(dependency string, err error) error {
	if err == nil {
		return nil
	}
	return &DependencyError{Dependency: dependency, Err: err}
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// Is reports ErrDependencyUnavailable as a match so callers can test the
// category without knowing the dependency.
func (e *DependencyError) Is(target error) bool {
	return target == ErrDependencyUnavailable
}
