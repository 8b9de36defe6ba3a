package domain

import (
	"fmt"

	"github.com/juju/errors"
)

// Failure kinds surfaced by the ledger, the recorder and the coordinator.
// Callers classify with errors.Is.
const (
	ErrInvalidInput      = errors.ConstError("invalid input")
	ErrDuplicateSale     = errors.ConstError("duplicate sale")
	ErrPersistence       = errors.ConstError("persistence failure")
	ErrRollbackFailed    = errors.ConstError("rollback failed")
	ErrProductNotFound   = errors.ConstError("product not found")
	ErrInsufficientStock = errors.ConstError("insufficient stock")
	ErrSaleNotFound      = errors.ConstError("sale not found")
)

// kindError tags a cause with a failure kind while keeping both reachable.
type kindError struct {
	kind  errors.ConstError
	cause error
}

func (e *kindError) Error() string {
	return e.cause.Error()
}

func (e *kindError) Unwrap() []error {
	return []error{e.kind, e.cause}
}

// WithKind tags err with kind. A nil err stays nil and an err that already
// carries kind is returned unchanged.
func WithKind(err error, kind errors.ConstError) error {
	if err == nil || errors.Is(err, kind) {
		return err
	}
	return &kindError{kind: kind, cause: err}
}

// InvalidInput returns an ErrInvalidInput failure with a caller facing message.
func InvalidInput(format string, args ...any) error {
	return &kindError{kind: ErrInvalidInput, cause: errors.NewNotValid(nil, fmt.Sprintf(format, args...))}
}

// Persistence wraps a store failure observed during step.
func Persistence(err error, step string) error {
	return WithKind(errors.Annotate(err, step), ErrPersistence)
}
