// Package handlers defines the HTTP error codes returned by the floor API.
//
// Codes are stable and machine-readable; clients branch on them, not on the
// human message. ConflictError responses also carry the tables that blocked
// the operation so the host UI can refresh just those.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeValidation       = "validation_error"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeUnknownAction    = "unknown_action"
	ErrCodeInternal         = "internal_error"
)
