package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tbourn/powerpulse-backend/internal/flow"
)

func postFlow(t *testing.T, h *Handlers, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := newTestEngine(h)
	req := httptest.NewRequest(http.MethodPost, "/api/flow/run", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRunFlow_ReturnsOutcome(t *testing.T) {
	fl := &stubFlow{out: flow.Outcome{
		State:    flow.StateDone,
		Category: flow.Emergency,
		Text:     "Ref: TIC-ABC123. Stay away from the line.",
		TicketID: "TIC-ABC123",
		Delivery: flow.Delivery{Status: flow.DeliverySent, ID: "SM9"},
	}}
	w := postFlow(t, New(nil, nil, fl, &stubTasks{}, Options{}), `{"text":"  sparks from the pole ","from":"whatsapp:+306900000001"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp RunFlowResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Outcome.TicketID != "TIC-ABC123" || resp.Outcome.Delivery.Status != flow.DeliverySent || resp.Error != "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if fl.reqs[0].RawText != "sparks from the pole" || fl.reqs[0].Destination != "whatsapp:+306900000001" {
		t.Fatalf("unexpected request: %+v", fl.reqs[0])
	}
	if fl.reqs[0].MessageID == "" {
		t.Fatal("expected a simulated message id")
	}
}

func TestRunFlow_GenerationFailure(t *testing.T) {
	fl := &stubFlow{
		out: flow.Outcome{State: flow.StateFailed, FailedStage: flow.StateGenerating, Category: flow.TechnicalFault},
		err: fmt.Errorf("%w: %w", flow.ErrGenerationFailed, errors.New("provider timeout")),
	}
	w := postFlow(t, New(nil, nil, fl, &stubTasks{}, Options{}), `{"text":"meter broken"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status=%d", w.Code)
	}
	var resp RunFlowResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Outcome.FailedStage != flow.StateGenerating || resp.Error == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRunFlow_Errors(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		want int
		code string
	}{
		{"missing text", `{}`, nil, http.StatusBadRequest, ErrCodeBadRequest},
		{"blank text", `{"text":"   "}`, nil, http.StatusBadRequest, ErrCodeBadRequest},
		{"bad json", `{"text":`, nil, http.StatusBadRequest, ErrCodeBadRequest},
		{"router error", `{"text":"hi"}`, errors.New("boom"), http.StatusInternalServerError, ErrCodeFlowFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postFlow(t, New(nil, nil, &stubFlow{err: tc.err}, &stubTasks{}, Options{}), tc.body)
			if w.Code != tc.want {
				t.Fatalf("status=%d; want %d", w.Code, tc.want)
			}
			var er ErrorResponse
			_ = json.Unmarshal(w.Body.Bytes(), &er)
			if er.Code != tc.code {
				t.Fatalf("code=%q; want %q", er.Code, tc.code)
			}
		})
	}
}
