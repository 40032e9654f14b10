package dispatch

import (
	"context"
	"fmt"

	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/bwise1/civic_dispatch/internal/store"
	"github.com/pkg/errors"
)

var (
	ErrNotFound              = errors.New("report not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrVersionConflict       = errors.New("report was modified concurrently, retry")
)

// ValidationError is returned for malformed input. Nothing is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

type IllegalTransitionError struct {
	From model.Status
	To   model.Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}

// storeErr maps a store failure onto the caller-facing error set.
// Context cancellation is passed through untouched.
func storeErr(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrVersionConflict):
		return ErrVersionConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &unavailableError{op: op, cause: err}
}

type unavailableError struct {
	op    string
	cause error
}

func (e *unavailableError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.op, ErrDependencyUnavailable, e.cause)
}

func (e *unavailableError) Is(target error) bool {
	return target == ErrDependencyUnavailable
}

func (e *unavailableError) Unwrap() error {
	return e.cause
}

// FromStoreError maps a store failure for packages that read the store directly.
func FromStoreError(err error, op string) error {
	return storeErr(err, op)
}
