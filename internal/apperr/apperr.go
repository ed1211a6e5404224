// Package apperr defines the operational error taxonomy surfaced to API
// callers and classifies storage-layer failures into it.
package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/lib/pq"
)

// Kind identifies one taxonomy class.
type Kind int

const (
	Unclassified Kind = iota
	InvalidIdentifier
	DuplicateField
	ValidationFailed
	AuthTokenInvalid
	AuthTokenExpired
	NotFound
)

// Error is an operational error: raised deliberately, safe to show callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an operational error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an operational error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to an operational error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// HTTPStatus maps a kind to its response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case InvalidIdentifier, DuplicateField, ValidationFailed:
		return http.StatusBadRequest
	case AuthTokenInvalid, AuthTokenExpired:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// KindOf extracts the taxonomy kind from err, Unclassified if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unclassified
}

// IsOperational reports whether err carries a taxonomy kind other than
// Unclassified, i.e. was raised deliberately with a caller-safe message.
func IsOperational(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind != Unclassified
}

// Postgres error codes classified into the taxonomy.
const (
	pqUniqueViolation    = "23505"
	pqInvalidTextRep     = "22P02"
	pqCheckViolation     = "23514"
	pqNotNullViolation   = "23502"
	pqForeignKeyViolated = "23503"
)

// FromDB classifies a storage error. sql.ErrNoRows becomes NotFound with the
// given message; pq constraint violations map to their taxonomy kinds;
// anything else passes through unclassified.
func FromDB(err error, notFoundMessage string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return New(NotFound, notFoundMessage)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return Wrap(DuplicateField,
				fmt.Sprintf("Duplicate field value on %s. Please use another value.", pqErr.Constraint), err)
		case pqInvalidTextRep:
			return Wrap(InvalidIdentifier, "Invalid value. Please use a valid identifier.", err)
		case pqCheckViolation, pqNotNullViolation:
			return Wrap(ValidationFailed,
				fmt.Sprintf("Invalid input data: constraint %s violated.", pqErr.Constraint), err)
		case pqForeignKeyViolated:
			return Wrap(InvalidIdentifier,
				fmt.Sprintf("Invalid reference: %s.", pqErr.Constraint), err)
		}
	}
	return err
}
