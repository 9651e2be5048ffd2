package envelope

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidBlock = errors.New("not a valid encrypted block")
)

// ValidationError describes why data isn't a well-formed Block.
type ValidationError struct {
	Field   string // The envelope field that failed validation, if any
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", ErrInvalidBlock, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidBlock, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidBlock
}

func invalidField(field, msg string, err error) error {
	return &ValidationError{Field: field, Message: msg, Err: err}
}
