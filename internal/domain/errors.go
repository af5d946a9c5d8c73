package domain

import "fmt"

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
	// Side names which argument was missing ("first", "second", "target").
	Side string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	if e.Side != "" {
		return fmt.Sprintf("%s %s not found", e.Side, e.Resource)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// SelfSwapError is returned when both sides of a swap are the same row.
type SelfSwapError struct {
	ID string
}

func (e SelfSwapError) Error() string {
	return fmt.Sprintf("cannot swap %s with itself", e.ID)
}

func (e SelfSwapError) Is(target error) bool {
	_, ok := target.(SelfSwapError)
	if ok {
		return true
	}
	_, ok = target.(*SelfSwapError)
	return ok
}

var ErrSelfSwap = SelfSwapError{}

// TargetNotFoundError is returned when no row holds the requested position.
type TargetNotFoundError struct {
	Resource string
	Order    int
}

func (e TargetNotFoundError) Error() string {
	return fmt.Sprintf("no %s at position %d", e.Resource, e.Order)
}

func (e TargetNotFoundError) Is(target error) bool {
	_, ok := target.(TargetNotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*TargetNotFoundError)
	return ok
}

var ErrTargetNotFound = TargetNotFoundError{}

type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

var ErrValidation = ValidationError{}

// Required returns a ValidationError for a missing field.
func Required(field string) ValidationError {
	return ValidationError{Field: field, Reason: "is required"}
}

// TransactionFailure wraps a datastore error that aborted a transaction.
// Nothing was committed, so the whole operation can be retried.
type TransactionFailure struct {
	Err error
}

func (e TransactionFailure) Error() string {
	if e.Err == nil {
		return "transaction failed"
	}
	return "transaction failed: " + e.Err.Error()
}

func (e TransactionFailure) Unwrap() error {
	return e.Err
}

func (e TransactionFailure) Is(target error) bool {
	_, ok := target.(TransactionFailure)
	if ok {
		return true
	}
	_, ok = target.(*TransactionFailure)
	return ok
}

var ErrTransactionFailure = TransactionFailure{}

type UnauthorizedError struct {
	Reason string
}

func (e UnauthorizedError) Error() string {
	if e.Reason == "" {
		return "unauthorized"
	}
	return "unauthorized: " + e.Reason
}

func (e UnauthorizedError) Is(target error) bool {
	_, ok := target.(UnauthorizedError)
	if ok {
		return true
	}
	_, ok = target.(*UnauthorizedError)
	return ok
}

var ErrUnauthorized = UnauthorizedError{}
