// Package services defines the business logic behind the record store and
// the ticket administration API. This file centralizes service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// Translation into HTTP status codes is performed at the handler layer.
package services

import "errors"

var (
	// ErrTicketNotFound indicates that no ticket has the requested id.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrInvalidStatus is returned when a status update names a value outside
	// open, in_progress and resolved.
	ErrInvalidStatus = errors.New("invalid ticket status")

	// ErrInvalidFilter is returned when a listing filter uses an unknown
	// status, category or urgency.
	ErrInvalidFilter = errors.New("invalid ticket filter")

	// ErrConsumerNotFound indicates that no consumer is registered for the
	// requested phone number.
	ErrConsumerNotFound = errors.New("consumer not found")

	// ErrEmptyPhone is returned when a consumer operation receives a phone
	// number that is empty after normalization.
	ErrEmptyPhone = errors.New("phone number is empty")
)
