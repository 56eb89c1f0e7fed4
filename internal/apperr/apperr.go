// Package apperr carries the error kinds the services raise, so callers
// branch on tagged sentinels instead of matching message substrings.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Sentinel kinds.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotFound         = errors.New("record not found")
	ErrInvalid          = errors.New("invalid input")
	ErrConflict         = errors.New("conflicting record")
	ErrUnavailable      = errors.New("backend unavailable")
)

// Error wraps a kind with the failing operation and resource.
type Error struct {
	Op       string // e.g. "tasks.Update"
	Resource string // e.g. "tasks"
	Err      error
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Resource != "" && !strings.HasPrefix(e.Op, e.Resource) {
		parts = append(parts, e.Resource)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a tagged error. err may itself be a sentinel or a wrapped cause.
func E(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Resource: resource, Err: err}
}

// Invalid reports a validation failure with a human-readable reason.
func Invalid(op, reason string) error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %s", ErrInvalid, reason)}
}

// FromDB translates store errors into tagged kinds. Unknown errors pass
// through wrapped so their message survives.
func FromDB(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Op: op, Resource: resource, Err: ErrNotFound}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Op: op, Resource: resource, Err: fmt.Errorf("%w: %v", ErrConflict, err)}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Op: op, Resource: resource, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	default:
		return &Error{Op: op, Resource: resource, Err: err}
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsNotAuthenticated(err error) bool {
	return errors.Is(err, ErrNotAuthenticated)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
