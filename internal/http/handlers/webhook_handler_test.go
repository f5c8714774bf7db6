package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/powerpulse-backend/internal/http/middleware"
	"github.com/tbourn/powerpulse-backend/internal/worker"
)

func postWebhook(r http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/whatsapp/message", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWhatsAppWebhook_QueuesAndAcks(t *testing.T) {
	fl := &stubFlow{}
	tasks := &stubTasks{}
	r := newTestEngine(New(nil, nil, fl, tasks, Options{}))

	w := postWebhook(r, url.Values{
		"Body":       {"  power cut on my street  "},
		"From":       {"whatsapp:+306900000001"},
		"MessageSid": {"SM0001"},
		"NumMedia":   {"0"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Fatalf("content-type=%q", ct)
	}
	if w.Body.String() != middleware.EmptyTwiML {
		t.Fatalf("body=%q", w.Body.String())
	}
	if len(tasks.tasks) != 1 || tasks.names[0] != "whatsapp.message" {
		t.Fatalf("expected one queued task, got %v", tasks.names)
	}
	if fl.calls != 0 {
		t.Fatal("flow must not run inside the request")
	}

	if err := tasks.tasks[0](context.Background()); err != nil {
		t.Fatalf("task: %v", err)
	}
	if fl.calls != 1 {
		t.Fatalf("flow calls=%d", fl.calls)
	}
	got := fl.reqs[0]
	if got.RawText != "power cut on my street" || got.Destination != "whatsapp:+306900000001" || got.MessageID != "SM0001" {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestWhatsAppWebhook_TaskContextCarriesLogger(t *testing.T) {
	var buf bytes.Buffer
	lg := zerolog.New(&buf)

	tasks := &stubTasks{}
	h := New(nil, nil, &stubFlow{}, tasks, Options{})
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("logger", &lg)
		c.Next()
	})
	r.POST("/whatsapp/message", h.WhatsAppWebhook)

	postWebhook(r, url.Values{"Body": {"hi"}, "From": {"whatsapp:+306900000001"}, "MessageSid": {"SM0002"}})
	if len(tasks.ctxs) != 1 {
		t.Fatalf("tasks=%d", len(tasks.ctxs))
	}
	zerolog.Ctx(tasks.ctxs[0]).Info().Msg("probe")

	out := buf.String()
	if !strings.Contains(out, `"message_sid":"SM0002"`) {
		t.Fatalf("logger lacks message_sid: %s", out)
	}
	if strings.Contains(out, "+306900000001") {
		t.Fatalf("sender must be masked: %s", out)
	}
}

func TestWhatsAppWebhook_BlankBodyIgnored(t *testing.T) {
	tasks := &stubTasks{}
	r := newTestEngine(New(nil, nil, &stubFlow{}, tasks, Options{}))

	w := postWebhook(r, url.Values{"Body": {"   "}, "From": {"whatsapp:+306900000001"}, "NumMedia": {"1"}})
	if w.Code != http.StatusOK || w.Body.String() != middleware.EmptyTwiML {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
	if len(tasks.tasks) != 0 {
		t.Fatal("blank message must not be queued")
	}
}

func TestWhatsAppWebhook_QueueUnavailable(t *testing.T) {
	tasks := &stubTasks{err: worker.ErrBusy}
	r := newTestEngine(New(nil, nil, &stubFlow{}, tasks, Options{}))

	w := postWebhook(r, url.Values{"Body": {"hello"}, "From": {"whatsapp:+306900000001"}})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.Code != ErrCodeQueueUnavailable {
		t.Fatalf("code=%q", er.Code)
	}
}

func TestWhatsAppWebhook_RunnerSaturated(t *testing.T) {
	runner := worker.NewRunner(1, 0)
	release := make(chan struct{})
	if err := runner.Submit(context.Background(), "hold", func(context.Context) error {
		<-release
		return nil
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	defer func() {
		close(release)
		_ = runner.Shutdown(context.Background())
	}()

	r := newTestEngine(New(nil, nil, &stubFlow{}, runner, Options{SubmitWait: 20 * time.Millisecond}))
	w := postWebhook(r, url.Values{"Body": {"hello"}, "From": {"whatsapp:+306900000001"}})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestWhatsAppWebhook_BadForm(t *testing.T) {
	r := newTestEngine(New(nil, nil, &stubFlow{}, &stubTasks{}, Options{}))

	w := postWebhook(r, url.Values{"Body": {"hello"}, "NumMedia": {"many"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}
