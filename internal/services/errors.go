package services

import (
	"errors"
	"fmt"

	"github.com/anonto42/studyhub/backend/internal/repositories"
)

// Error taxonomy surfaced to callers. Wrapped errors keep the underlying
// cause, so callers test with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrInternal        = errors.New("internal error")
)

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

func forbidden(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func internal(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, op, err)
}

// classify maps a repository error onto the taxonomy. Errors already in the
// taxonomy pass through unchanged.
func classify(op, what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrForbidden), errors.Is(err, ErrConflict), errors.Is(err, ErrInternal):
		return err
	case errors.Is(err, repositories.ErrNotFound):
		return notFound(what)
	case errors.Is(err, repositories.ErrInvalidID):
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	case errors.Is(err, repositories.ErrDuplicate):
		return conflict("%s already exists", what)
	default:
		return internal(op, err)
	}
}
