package service

import (
	"errors"
	"fmt"
	"strings"
)

var ErrConfirmationNotFound = errors.New("delete confirmation not found or expired")

// FieldError describes one invalid form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field of a submitted form. It is
// returned before anything reaches the store.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "invalid form: " + strings.Join(msgs, "; ")
}

// StorageError wraps a backing store fault. The message carries the
// underlying description.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
