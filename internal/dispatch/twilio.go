// Package dispatch delivers replies to consumers. Twilio sends real WhatsApp
// messages; DryRun only logs them and is meant for local development.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/tbourn/powerpulse-backend/internal/flow"
)

// Twilio error codes with a dedicated Kind.
const (
	CodeBodyTooLong   = 21617
	CodeInvalidSender = 63007
)

// Error kinds.
const (
	KindBodyTooLong   = "body_too_long"
	KindInvalidSender = "invalid_sender"
	KindRejected      = "rejected"
	KindTransport     = "transport"
	KindCanceled      = "canceled"
)

// ErrUnconfirmed marks a send abandoned at its deadline. The Twilio request
// was already on its way and may still be delivered; the late result is
// logged with the message sid so the two can be reconciled.
var ErrUnconfirmed = errors.New("delivery unconfirmed, message may still be sent")

// Error is a classified delivery failure.
type Error struct {
	Kind string
	Code int
	Err  error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("dispatch %s (twilio %d): %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("dispatch %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// messageCreator is the subset of the Twilio API used here.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// Twilio sends WhatsApp messages through the Twilio REST API.
type Twilio struct {
	api  messageCreator
	from string

	// late receives the result of a request that finished after Send gave
	// up on it.
	late func(lg *zerolog.Logger, to, sid string, err error)
}

var _ flow.Dispatcher = (*Twilio)(nil)

// NewTwilio builds a dispatcher for the given account. from is the sender
// number, with or without the "whatsapp:" prefix.
func NewTwilio(accountSID, authToken, from string) (*Twilio, error) {
	if accountSID == "" || authToken == "" || from == "" {
		return nil, errors.New("dispatch: twilio account sid, auth token and sender are required")
	}
	c := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newTwilio(c.Api, from), nil
}

func newTwilio(api messageCreator, from string) *Twilio {
	return &Twilio{api: api, from: flow.ChannelAddress(flow.NormalizePhone(from)), late: logLate}
}

func logLate(lg *zerolog.Logger, to, sid string, err error) {
	if err != nil {
		lg.Warn().Err(err).Str("to", to).Msg("abandoned twilio request failed")
		return
	}
	lg.Warn().Str("sid", sid).Str("to", to).Msg("abandoned twilio request was accepted; reply delivered after deadline")
}

// Send creates one message. The SDK call is not context aware, so Send
// returns when ctx ends and lets the request finish in the background. Such
// an error wraps ErrUnconfirmed.
func (t *Twilio) Send(ctx context.Context, m flow.Message) (string, error) {
	lg := log.Ctx(ctx)
	if lg.GetLevel() == zerolog.Disabled {
		lg = &log.Logger
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(m.To)
	params.SetFrom(t.from)
	params.SetBody(m.Body)
	if m.MediaURL != "" {
		params.SetMediaUrl([]string{m.MediaURL})
	}

	type result struct {
		msg *twilioApi.ApiV2010Message
		err error
	}
	ch := make(chan result)
	abandoned := make(chan struct{})
	go func() {
		msg, err := t.api.CreateMessage(params)
		select {
		case ch <- result{msg, err}:
		case <-abandoned:
			var sid string
			if msg != nil && msg.Sid != nil {
				sid = *msg.Sid
			}
			t.late(lg, m.To, sid, err)
		}
	}()

	select {
	case <-ctx.Done():
		close(abandoned)
		return "", &Error{Kind: KindCanceled, Err: fmt.Errorf("%w: %w", ErrUnconfirmed, ctx.Err())}
	case r := <-ch:
		if r.err != nil {
			return "", classify(r.err)
		}
		if r.msg == nil || r.msg.Sid == nil || *r.msg.Sid == "" {
			return "", &Error{Kind: KindRejected, Err: errors.New("twilio returned no message sid")}
		}
		lg.Debug().Str("sid", *r.msg.Sid).Str("status", deref(r.msg.Status)).Msg("twilio accepted message")
		return *r.msg.Sid, nil
	}
}

func classify(err error) *Error {
	var te *twclient.TwilioRestError
	if errors.As(err, &te) {
		switch te.Code {
		case CodeBodyTooLong:
			return &Error{Kind: KindBodyTooLong, Code: te.Code, Err: err}
		case CodeInvalidSender:
			return &Error{Kind: KindInvalidSender, Code: te.Code, Err: err}
		default:
			return &Error{Kind: KindRejected, Code: te.Code, Err: err}
		}
	}
	return &Error{Kind: KindTransport, Err: err}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
