package model

import (
	"errors"
	"fmt"
)

var ErrAliasNotFound = errors.New("alias not found")

// ValidationError reports an empty required field on save.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s must not be empty", e.Field)
}

// SendError reports a transport failure. It is the only error that still
// produces a log record.
type SendError struct {
	Reason string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("sms send failed: %s", e.Reason)
}
