package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)

// Postgres SQLSTATE codes surfaced by the table store.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func NewValidationError(field, message string) error {
	return ValidationError{Field: field, Message: message}
}

// PersistenceError is returned when the table store rejects a read or write.
type PersistenceError struct {
	Op   string
	Code string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s failed (%s): %s", e.Op, e.Code, e.Err.Error())
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Err.Error())
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func IsUniqueViolation(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.Code == CodeUniqueViolation
}

// MarkRejectedError carries the human-readable reason an attendance mark was refused.
type MarkRejectedError struct {
	Message string
}

func (e *MarkRejectedError) Error() string {
	return e.Message
}

func NewMarkRejected(format string, args ...any) error {
	return &MarkRejectedError{Message: fmt.Sprintf(format, args...)}
}
