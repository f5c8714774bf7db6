package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/powerpulse-backend/internal/dedupe"
)

type memClaimer struct {
	mu       sync.Mutex
	keys     map[string]string
	released []string
	err      error
}

func newMemClaimer() *memClaimer { return &memClaimer{keys: map[string]string{}} }

func (m *memClaimer) Claim(_ context.Context, key, sender string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.keys[key]; ok {
		return dedupe.ErrSeen
	}
	m.keys[key] = sender
	return nil
}

func (m *memClaimer) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	m.released = append(m.released, key)
	return nil
}

func inboundRouter(cl dedupe.Claimer, status *int, calls *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(InboundDedupe(InboundOptions{TTL: time.Hour}, cl))
	r.POST("/whatsapp/message", func(c *gin.Context) {
		*calls++
		if key, ok := GetInboundKey(c); !ok || key == "" {
			c.Status(http.StatusTeapot)
			return
		}
		c.Status(*status)
	})
	return r
}

func TestInboundDedupe_DropsRedelivery(t *testing.T) {
	cl := newMemClaimer()
	status, calls := http.StatusOK, 0
	r := inboundRouter(cl, &status, &calls)
	form := url.Values{"Body": {"hi"}, "From": {"whatsapp:+1555"}, "MessageSid": {"SM123"}}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, formRequest("/whatsapp/message", form))
	if w.Code != http.StatusOK || calls != 1 {
		t.Fatalf("first delivery: code=%d calls=%d", w.Code, calls)
	}
	if cl.keys["SM123"] != "whatsapp:+1555" {
		t.Fatalf("claim should record sender, got %v", cl.keys)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, formRequest("/whatsapp/message", form))
	if w.Code != http.StatusOK || calls != 1 {
		t.Fatalf("redelivery must be acknowledged without reaching the handler: code=%d calls=%d", w.Code, calls)
	}
	if w.Body.String() != EmptyTwiML || w.Header().Get("Content-Type") != "application/xml" {
		t.Fatalf("unexpected ack: %q %q", w.Header().Get("Content-Type"), w.Body.String())
	}
}

func TestInboundDedupe_ReleasesOnServerError(t *testing.T) {
	cl := newMemClaimer()
	status, calls := http.StatusServiceUnavailable, 0
	r := inboundRouter(cl, &status, &calls)
	form := url.Values{"Body": {"hi"}, "MessageSid": {"SM9"}}

	r.ServeHTTP(httptest.NewRecorder(), formRequest("/whatsapp/message", form))
	if len(cl.released) != 1 || cl.released[0] != "SM9" {
		t.Fatalf("claim should be released after 5xx, got %v", cl.released)
	}

	status = http.StatusOK
	r.ServeHTTP(httptest.NewRecorder(), formRequest("/whatsapp/message", form))
	if calls != 2 {
		t.Fatalf("retry after failure should be processed, calls=%d", calls)
	}
}

func TestInboundDedupe_HeaderFallbackAndPassThrough(t *testing.T) {
	cl := newMemClaimer()
	status, calls := http.StatusOK, 0
	r := inboundRouter(cl, &status, &calls)

	req := formRequest("/whatsapp/message", url.Values{"Body": {"hi"}})
	req.Header.Set(HeaderTwilioIdempotency, "tok-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("header key should be claimed, got %d", w.Code)
	}
	if _, ok := cl.keys["tok-1"]; !ok {
		t.Fatalf("idempotency token not claimed: %v", cl.keys)
	}

	// No key, or a key with forbidden characters: the handler runs unclaimed.
	for _, form := range []url.Values{{"Body": {"x"}}, {"Body": {"x"}, "MessageSid": {"bad key!"}}} {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, formRequest("/whatsapp/message", form))
		if w.Code != http.StatusTeapot {
			t.Fatalf("unkeyed request should pass through, got %d", w.Code)
		}
	}
}

func TestInboundDedupe_ClaimerFailureFailsOpen(t *testing.T) {
	cl := newMemClaimer()
	cl.err = errors.New("store down")
	status, calls := http.StatusOK, 0
	r := inboundRouter(cl, &status, &calls)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, formRequest("/whatsapp/message", url.Values{"MessageSid": {"SM1"}}))
	if calls != 1 || w.Code != http.StatusTeapot {
		t.Fatalf("claim failure should not block the message: calls=%d code=%d", calls, w.Code)
	}
}

func TestIsDuplicateFlag(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if IsDuplicate(c) {
		t.Fatalf("default should be false")
	}
	c.Set(ctxKeyDuplicate, true)
	if !IsDuplicate(c) {
		t.Fatalf("flag not read")
	}
}
