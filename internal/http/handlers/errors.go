// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// These codes are written into the ErrorResponse envelope by fail() and give
// clients a stable, machine-readable taxonomy next to the human-readable
// message. Generic codes mirror HTTP status semantics; the domain-specific
// ones name the operation that failed.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "invalid_status",
//	  "message": "status must be one of open, in_progress, resolved"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeInvalidStatus    = "invalid_status"
	ErrCodeInvalidFilter    = "invalid_filter"
	ErrCodeListFailed       = "list_failed"
	ErrCodeLookupFailed     = "lookup_failed"
	ErrCodeUpdateFailed     = "update_failed"
	ErrCodeFlowFailed       = "flow_failed"
	ErrCodeQueueUnavailable = "queue_unavailable"
)
