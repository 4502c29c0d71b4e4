package domain

import "errors"

// Error taxonomy shared by the stores, the services and the API layer.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("missing or malformed bearer token")
	ErrForbidden          = errors.New("invalid bearer token")

	// ErrDuplicate is a validation failure on a unique field
	ErrDuplicate error = &kindError{msg: "already exists", parent: ErrValidation}
)

type kindError struct {
	msg    string
	parent error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.parent }

// FieldError reports an invalid or missing field
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + " " + e.Message
}

func (e *FieldError) Is(target error) bool {
	return target == ErrValidation
}
