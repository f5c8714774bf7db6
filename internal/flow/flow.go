// Package flow implements the request-routing state machine of the
// PowerPulse assistant. A Router takes one inbound message through
// classification, strategy selection, content generation, persistence and
// delivery, and guarantees that at most one reply is sent per request.
//
// The collaborators (classifier, strategies, record store, dispatcher) are
// ports defined in this file; concrete adapters live in other packages.
package flow

import "context"

// Request is one inbound message, already extracted from its transport
// envelope.
type Request struct {
	RawText     string `json:"raw_text"`
	Destination string `json:"destination"`
	// MessageID is the transport's id for the inbound message, if any. It is
	// used for log correlation only.
	MessageID string `json:"message_id,omitempty"`
}

// Roles used in classifier conversations.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single role-tagged message sent to a classifier.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ClassifierReply is what a classifier returns. Fields is set when the
// provider produced a structured object; Text holds the raw reply otherwise.
type ClassifierReply struct {
	Fields map[string]any
	Text   string
}

// Classifier labels a conversation. The router treats the call as opaque and
// falls back to DefaultCategory on any error.
type Classifier interface {
	Classify(ctx context.Context, msgs []ChatMessage) (ClassifierReply, error)
}

// GenerationResult is the output of a strategy. MediaReference is optional;
// when empty the router looks for a URL inside Text.
type GenerationResult struct {
	Text           string
	MediaReference string
}

// Strategy produces the reply for one category. Implementations make a single
// attempt and keep no state between calls.
type Strategy interface {
	Generate(ctx context.Context, query string) (GenerationResult, error)
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(ctx context.Context, query string) (GenerationResult, error)

// Generate calls f.
func (f StrategyFunc) Generate(ctx context.Context, query string) (GenerationResult, error) {
	return f(ctx, query)
}

// Interaction is the data persisted for one handled request.
type Interaction struct {
	TicketID       string
	Query          string
	Category       Category
	Urgency        string
	Text           string
	MediaReference string
}

// Store is the durable record of consumers, tickets and generated content.
type Store interface {
	// GetOrCreateConsumer resolves the consumer for a normalized phone number,
	// creating it on first contact. Concurrent calls for one number must yield
	// a single record.
	GetOrCreateConsumer(ctx context.Context, phone string) (consumerID string, err error)

	// CreateInteraction stores the ticket and its generated content in one
	// transaction and returns the content id. It returns ErrDuplicateTicketID
	// when in.TicketID is already taken.
	CreateInteraction(ctx context.Context, consumerID string, in Interaction) (contentID string, err error)

	// AttachDelivery records the transport's delivery id on a content record.
	AttachDelivery(ctx context.Context, contentID, deliveryID string) error
}

// Message is one outbound reply. To is already in the transport's addressing
// scheme and MediaURL, when set, is publicly reachable.
type Message struct {
	To       string
	Body     string
	MediaURL string
}

// Dispatcher sends a reply and returns the transport's delivery id.
type Dispatcher interface {
	Send(ctx context.Context, m Message) (deliveryID string, err error)
}
