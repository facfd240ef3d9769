// Package services implements the host-stand workflows: seating, service
// completion, table cleaning, reservations, availability, and the waitlist.
// This file centralizes the error taxonomy returned by service methods.
//
// Translation into HTTP status codes is performed in the handler layer:
// ErrValidation 400, ErrNotFound 404, ErrConflict 409, ErrStore 500.
// "No table fits" is never an error; results carry it as a field.
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tbourn/hoststand/internal/repo"
)

var (
	// ErrValidation marks a missing or malformed input the caller can fix.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound means a reservation, table, service record or waitlist
	// entry has no match.
	ErrNotFound = errors.New("not found")

	// ErrConflict means the request would break a floor invariant, such as
	// seating an occupied table. Callers should refresh and retry.
	ErrConflict = errors.New("conflict")

	// ErrStore wraps failures of the underlying store.
	ErrStore = errors.New("store unavailable")
)

// TableConflictError reports which tables stopped a multi-table operation.
// All writes of the operation were rolled back.
type TableConflictError struct {
	Op string
	// Blocked tables were not in a state the operation accepts.
	Blocked []int
	// RolledBack tables had been transitioned before the conflict was hit.
	RolledBack []int
	// NotAttempted tables were never reached.
	NotAttempted []int
	// Detail is a human readable reason for the first blocked table.
	Detail string
}

func (e *TableConflictError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: table(s) %s not eligible", e.Op, joinInts(e.Blocked))
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// Unwrap lets errors.Is(err, ErrConflict) match.
func (e *TableConflictError) Unwrap() error { return ErrConflict }

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// translate maps repo errors onto the service taxonomy. Errors already in
// the taxonomy pass through unchanged.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict), errors.Is(err, ErrStore):
		return err
	case errors.Is(err, repo.ErrNotFound):
		return notFoundf("%s not found", what)
	case errors.Is(err, repo.ErrConflict), errors.Is(err, repo.ErrDuplicate):
		return conflictf("%s changed concurrently", what)
	default:
		return fmt.Errorf("%w: %s: %v", ErrStore, what, err)
	}
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
