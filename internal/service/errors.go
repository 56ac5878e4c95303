package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for the conditions the HTTP layer must translate into
// distinct status codes. Handlers match them with errors.Is.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrTodoNotFound   = errors.New("todo not found")
	ErrUsernameExists = errors.New("new username already exists")
)

// ValidationError reports a rejected input field. It is a separate type so
// handlers can map it to 422 with errors.As.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}
