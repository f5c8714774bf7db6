package flow

import "errors"

var (
	// ErrGenerationFailed wraps a strategy error. A request that hits it ends
	// in the failed state at the generating stage and is never dispatched.
	ErrGenerationFailed = errors.New("content generation failed")

	// ErrNoDestination is reported when neither the request nor the router
	// config provide an address to reply to.
	ErrNoDestination = errors.New("no destination address")

	// ErrDuplicateTicketID must be returned by Store.CreateInteraction when
	// the ticket id is already taken; the router retries with a fresh id.
	ErrDuplicateTicketID = errors.New("ticket id already exists")

	// ErrStrategyMissing is returned by NewRouter when a category has no
	// strategy registered.
	ErrStrategyMissing = errors.New("no strategy registered for category")

	// ErrEmptyPayload marks a dispatch that was skipped because nothing was
	// left to send.
	ErrEmptyPayload = errors.New("empty payload")
)
