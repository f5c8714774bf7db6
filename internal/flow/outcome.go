package flow

// State is a step of the request lifecycle.
type State string

const (
	StateReceived    State = "received"
	StateClassified  State = "classified"
	StateGenerating  State = "generating"
	StateGenerated   State = "generated"
	StatePersisted   State = "persisted"
	StateDispatching State = "dispatching"
	StateDispatched  State = "dispatched"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// DeliveryStatus reports what happened to the outbound reply.
type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliverySkipped DeliveryStatus = "skipped"
)

// Delivery is the dispatch part of an Outcome. Err holds the cause of a
// failed or skipped delivery; Cause is its text for serialization.
type Delivery struct {
	Status DeliveryStatus `json:"status"`
	ID     string         `json:"id,omitempty"`
	Cause  string         `json:"cause,omitempty"`
	Err    error          `json:"-"`
}

// Outcome is the terminal result of one request.
type Outcome struct {
	State State `json:"state"`

	// FailedStage is the state the request was in when it failed.
	FailedStage State `json:"failed_stage,omitempty"`

	Category               Category `json:"category"`
	ClassificationDegraded bool     `json:"classification_degraded"`

	// Text is the generated reply. Body is what was handed to the
	// dispatcher, with the reference prefix added and truncated; it is empty
	// when nothing was sent.
	Text string `json:"text"`
	Body string `json:"body,omitempty"`

	// MediaReference is the media URL that went out with Body. A reference
	// stripped as not publicly reachable is not reported.
	MediaReference string `json:"media_reference,omitempty"`

	TicketID     string   `json:"ticket_id,omitempty"`
	Delivery     Delivery `json:"delivery"`
	PersistError string   `json:"persist_error,omitempty"`
	Trail        []State  `json:"trail"`
}

func (o *Outcome) advance(s State) {
	o.State = s
	o.Trail = append(o.Trail, s)
}

func (o *Outcome) fail(stage State) {
	o.FailedStage = stage
	o.advance(StateFailed)
}
