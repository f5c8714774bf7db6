package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	twclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/tbourn/powerpulse-backend/internal/flow"
)

type fakeAPI struct {
	got   *twilioApi.CreateMessageParams
	sid   string
	err   error
	delay time.Duration
}

func (f *fakeAPI) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.got = p
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	sid := f.sid
	status := "queued"
	return &twilioApi.ApiV2010Message{Sid: &sid, Status: &status}, nil
}

func TestNewTwilio_Validates(t *testing.T) {
	if _, err := NewTwilio("", "tok", "+1"); err == nil {
		t.Fatalf("expected error for missing account sid")
	}
	if _, err := NewTwilio("AC123", "tok", "whatsapp:+14155238886"); err != nil {
		t.Fatalf("NewTwilio: %v", err)
	}
}

func TestTwilio_Send(t *testing.T) {
	api := &fakeAPI{sid: "SM42"}
	d := newTwilio(api, "+14155238886")

	id, err := d.Send(context.Background(), flow.Message{To: "whatsapp:+962790001234", Body: "hello", MediaURL: "https://x.test/a.png"})
	if err != nil || id != "SM42" {
		t.Fatalf("Send: id=%q err=%v", id, err)
	}
	if *api.got.From != "whatsapp:+14155238886" || *api.got.To != "whatsapp:+962790001234" || *api.got.Body != "hello" {
		t.Fatalf("unexpected params: from=%v to=%v body=%v", *api.got.From, *api.got.To, *api.got.Body)
	}
	if api.got.MediaUrl == nil || (*api.got.MediaUrl)[0] != "https://x.test/a.png" {
		t.Fatalf("media url not set")
	}
}

func TestTwilio_SendTextOnly(t *testing.T) {
	api := &fakeAPI{sid: "SM1"}
	if _, err := newTwilio(api, "whatsapp:+1").Send(context.Background(), flow.Message{To: "whatsapp:+2", Body: "x"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if api.got.MediaUrl != nil {
		t.Fatalf("media url must not be set for text-only messages")
	}
}

func TestTwilio_ClassifiesErrors(t *testing.T) {
	cases := []struct {
		err  error
		kind string
		code int
	}{
		{&twclient.TwilioRestError{Code: CodeBodyTooLong, Message: "body too long", Status: 400}, KindBodyTooLong, CodeBodyTooLong},
		{&twclient.TwilioRestError{Code: CodeInvalidSender, Message: "channel not found", Status: 400}, KindInvalidSender, CodeInvalidSender},
		{&twclient.TwilioRestError{Code: 21211, Message: "invalid to", Status: 400}, KindRejected, 21211},
		{errors.New("dial tcp: i/o timeout"), KindTransport, 0},
	}
	for _, c := range cases {
		_, err := newTwilio(&fakeAPI{err: c.err}, "+1").Send(context.Background(), flow.Message{To: "whatsapp:+2", Body: "x"})
		var de *Error
		if !errors.As(err, &de) {
			t.Fatalf("expected *Error, got %T %v", err, err)
		}
		if de.Kind != c.kind || de.Code != c.code {
			t.Fatalf("got kind=%s code=%d, want %s/%d", de.Kind, de.Code, c.kind, c.code)
		}
		if !errors.Is(err, c.err) {
			t.Fatalf("cause must be preserved")
		}
	}
}

func TestTwilio_MissingSid(t *testing.T) {
	_, err := newTwilio(&fakeAPI{sid: ""}, "+1").Send(context.Background(), flow.Message{To: "whatsapp:+2", Body: "x"})
	var de *Error
	if !errors.As(err, &de) || de.Kind != KindRejected {
		t.Fatalf("expected rejected error, got %v", err)
	}
}

func TestTwilio_ContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := newTwilio(&fakeAPI{sid: "SM1", delay: 200 * time.Millisecond}, "+1").Send(ctx, flow.Message{To: "whatsapp:+2", Body: "x"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if !strings.Contains(err.Error(), KindCanceled) {
		t.Fatalf("unexpected error text %q", err.Error())
	}
}

func TestTwilio_DeadlineReportsLateResult(t *testing.T) {
	d := newTwilio(&fakeAPI{sid: "SM-late", delay: 50 * time.Millisecond}, "+1")
	type late struct {
		to, sid string
		err     error
	}
	got := make(chan late, 1)
	d.late = func(_ *zerolog.Logger, to, sid string, err error) { got <- late{to, sid, err} }

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := d.Send(ctx, flow.Message{To: "whatsapp:+2", Body: "x"})
	var de *Error
	if !errors.As(err, &de) || de.Kind != KindCanceled || !errors.Is(err, ErrUnconfirmed) {
		t.Fatalf("expected unconfirmed cancel, got %v", err)
	}

	select {
	case l := <-got:
		if l.sid != "SM-late" || l.to != "whatsapp:+2" || l.err != nil {
			t.Fatalf("unexpected late result: %+v", l)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("late result was not reported")
	}
}

func TestDryRun(t *testing.T) {
	id, err := DryRun{}.Send(context.Background(), flow.Message{To: "whatsapp:+15550001", Body: "hi"})
	if err != nil || !strings.HasPrefix(id, "DRY") {
		t.Fatalf("DryRun: id=%q err=%v", id, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (DryRun{}).Send(ctx, flow.Message{}); err == nil {
		t.Fatalf("expected error for canceled context")
	}
}
