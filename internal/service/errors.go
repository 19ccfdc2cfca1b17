package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nurpe/freelancehub/internal/repository"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidState     = errors.New("invalid state")
	ErrTooManyRequests  = errors.New("too many requests")
)

// ValidationError carries per-field messages. It matches ErrInvalidInput.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// fieldErrors collects validation failures; the first message per field wins.
type fieldErrors map[string]string

func (f fieldErrors) add(field, message string) {
	if _, ok := f[field]; !ok {
		f[field] = message
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

func fieldError(field, message string) error {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// mapNotFound turns a missing row into ErrNotFound with a subject.
func mapNotFound(err error, subject string) error {
	if repository.IsNotFound(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, subject)
	}
	return err
}
