package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrDuplicateProductID = errors.New("a product with that ID already exists")
	ErrUserNotFound       = errors.New("user not found")
)

// ValidationError reports a rejected field value.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StorageError wraps a backend failure with the operation that triggered it.
type StorageError struct {
	Op        string
	ProductID string
	Err       error
}

func (e *StorageError) Error() string {
	if e.ProductID != "" {
		return fmt.Sprintf("database error while %s product %s: %v", e.Op, e.ProductID, e.Err)
	}
	return fmt.Sprintf("database error while %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// UpstreamError reports a failed call to an external collaborator.
type UpstreamError struct {
	Dependency string
	Reference  string
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s rejected %q: %v", e.Dependency, e.Reference, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is reports every upstream failure as ErrUserNotFound: the owner could not
// be confirmed, whatever the cause.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUserNotFound
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
