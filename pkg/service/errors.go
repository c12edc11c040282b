package service

import "github.com/pkg/errors"

// Error kinds returned by the services. Callers classify with errors.Is and
// map them to transport-level codes; message text comes from the wrapping.
var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

func validationf(format string, args ...interface{}) error {
	return errors.WithMessagef(ErrValidation, format, args...)
}

func forbiddenf(format string, args ...interface{}) error {
	return errors.WithMessagef(ErrForbidden, format, args...)
}

func notFoundf(format string, args ...interface{}) error {
	return errors.WithMessagef(ErrNotFound, format, args...)
}

func conflictf(format string, args ...interface{}) error {
	return errors.WithMessagef(ErrConflict, format, args...)
}
