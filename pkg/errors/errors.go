package errors

import (
	"fmt"
	"strings"
)

// Category classifies a domain error for callers that need to decide between
// retrying the connection and surfacing a business rejection.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryNotFound   Category = "not_found"
	CategoryConnection Category = "connection"
	CategoryIO         Category = "io"
	CategoryPermission Category = "permission"
	CategoryConflict   Category = "conflict"
)

// DomainError carries a category, an optional cause and free-form context values.
type DomainError struct {
	Category Category
	Message  string
	Cause    error
	Context  map[string]interface{}
}

func newDomainError(category Category, message string, cause error) *DomainError {
	return &DomainError{
		Category: category,
		Message:  message,
		Cause:    cause,
	}
}

// WithContext attaches a key-value pair to the error and returns it for chaining.
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Category))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Context) > 0 {
		b.WriteString(" (")
		first := true
		for k, v := range e.Context {
			if !first {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, v)
			first = false
		}
		b.WriteString(")")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

func NewValidationError(message string, cause error) *DomainError {
	return newDomainError(CategoryValidation, message, cause)
}

func NewNotFoundError(message string, cause error) *DomainError {
	return newDomainError(CategoryNotFound, message, cause)
}

func NewConnectionError(message string, cause error) *DomainError {
	return newDomainError(CategoryConnection, message, cause)
}

func NewIOError(message string, cause error) *DomainError {
	return newDomainError(CategoryIO, message, cause)
}

func NewPermissionError(message string, cause error) *DomainError {
	return newDomainError(CategoryPermission, message, cause)
}

func NewConflictError(message string, cause error) *DomainError {
	return newDomainError(CategoryConflict, message, cause)
}

func isCategory(err error, category Category) bool {
	for err != nil {
		if de, ok := err.(*DomainError); ok && de.Category == category {
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

func IsValidationError(err error) bool { return isCategory(err, CategoryValidation) }
func IsNotFoundError(err error) bool   { return isCategory(err, CategoryNotFound) }
func IsConnectionError(err error) bool { return isCategory(err, CategoryConnection) }
func IsIOError(err error) bool         { return isCategory(err, CategoryIO) }
func IsPermissionError(err error) bool { return isCategory(err, CategoryPermission) }
func IsConflictError(err error) bool   { return isCategory(err, CategoryConflict) }
