package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidCredentials is returned when email and password do not match a user.
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrUnauthenticated is returned for a missing, malformed, expired or revoked token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when the resource belongs to another user.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when the resource does not exist for the caller.
	ErrNotFound = errors.New("not found")
)

// ValidationError collects per-field messages for rejected input.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// Err returns e when it holds messages and nil otherwise.
func (e *ValidationError) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// ConflictError blocks a delete because dependent records still exist.
type ConflictError struct {
	Message   string
	TaskCount int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s (%d tasks)", e.Message, e.TaskCount)
}
