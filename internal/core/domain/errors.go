package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrReservedUsername = errors.New(`the username "me" is reserved`)
	ErrUsernameTaken    = errors.New("a user with that username already exists")
	ErrEmailTaken       = errors.New("a user with that email already exists")
	ErrUserNotFound     = errors.New("user not found")
	ErrWorkNotFound     = errors.New("title not found")
	ErrReviewNotFound   = errors.New("review not found")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrGenreNotFound    = errors.New("genre not found")
	ErrInvalidCode      = errors.New("invalid confirmation code")
	ErrDuplicateReview  = errors.New("a review for this title already exists")
	ErrDuplicateSlug    = errors.New("slug already in use")
	ErrUnauthenticated  = errors.New("authentication required")
	ErrForbidden        = errors.New("access forbidden")
	ErrDelivery         = errors.New("confirmation code delivery failed")
	ErrTooManyAttempts  = errors.New("too many confirmation attempts")
)

// ValidationError describes a rejected input field. It matches ErrValidation
// under errors.Is, and also Err when set.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// FieldError wraps a sentinel as a ValidationError on field.
func FieldError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: err.Error(), Err: err}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
