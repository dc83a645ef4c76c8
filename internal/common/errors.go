// Package common holds the sentinel errors shared by the inbox service,
// its stores and the HTTP layer. Match them with errors.Is.
package common

import "errors"

var (
	// Caller errors, never retried.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized")

	// Business-rule outcomes.
	ErrRejected = errors.New("user is not accepting messages")
	ErrNotFound = errors.New("not found")

	// User creation conflicts on username or email.
	ErrAlreadyExists = errors.New("already exists")

	// Infrastructure faults. The only retry-eligible class.
	ErrStoreFailure = errors.New("store failure")
)
