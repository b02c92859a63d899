package store

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// Failure categories for record store operations.
const (
	KindIndexUnavailable = "index-unavailable"
	KindPermissionDenied = "permission-denied"
	KindGeneric          = "generic"
)

// Remediation hints surfaced with categorized failures.
const (
	indexHint      = "Database index not configured. Create the configs (user_id, created_at) index."
	permissionHint = "Permission denied. Deploy the store access rules for the configs collection."
)

// Error is a categorized record store failure.
type Error struct {
	Kind string
	Hint string
	Err  error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return e.Hint + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// classify wraps a raw driver error with its failure category.
func classify(err error) *Error {
	switch {
	case isIndexError(err):
		return &Error{Kind: KindIndexUnavailable, Hint: indexHint, Err: err}
	case isPermissionError(err):
		return &Error{Kind: KindPermissionDenied, Hint: permissionHint, Err: err}
	default:
		return &Error{Kind: KindGeneric, Err: err}
	}
}

// isIndexError reports whether err means the query's backing index is
// missing or unusable.
func isIndexError(err error) bool {
	if err == nil {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		// 27 IndexNotFound, 291 NoQueryExecutionPlans
		if cmdErr.Code == 27 || cmdErr.Code == 291 {
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "index")
}

// isPermissionError reports whether err is an authorization failure from the store.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 13 { // Unauthorized
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not authorized")
}

// IsIndexUnavailable reports whether err is a categorized index failure.
func IsIndexUnavailable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindIndexUnavailable
}

// IsPermissionDenied reports whether err is a categorized permission failure.
func IsPermissionDenied(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindPermissionDenied
}
