package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestKeyBySenderOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")
	c.Request = req
	if key := KeyBySenderOrIP()(c); key != "ip:203.0.113.9" {
		t.Fatalf("expected ip-based key; got %q", key)
	}

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = formRequest("/whatsapp/message", url.Values{"From": {"whatsapp:+962791234567"}, "Body": {"hi"}})
	if key := KeyBySenderOrIP()(c); key != "sender:whatsapp:+962791234567" {
		t.Fatalf("expected sender-based key; got %q", key)
	}
	// The form stays readable for the handler.
	if c.PostForm("Body") != "hi" {
		t.Fatalf("form consumed by key function")
	}
}

func TestNewRateLimiter_BurstCoercion_AndGetVisitorReuse(t *testing.T) {
	rl := NewRateLimiter(2.0, 0, KeyBySenderOrIP())
	if rl.burst != 1 {
		t.Fatalf("burst coercion failed, got %d", rl.burst)
	}
	lim := rl.getVisitor("k1")
	if got := rl.getVisitor("k1"); got != lim {
		t.Fatalf("expected same limiter instance to be reused")
	}
}

func TestRateLimiter_getVisitor_GC(t *testing.T) {
	rl := NewRateLimiter(1.0, 1, KeyBySenderOrIP())
	rl.ttl = time.Nanosecond

	rl.mu.Lock()
	rl.visitors["old"] = &visitor{limiter: rate.NewLimiter(1, 1), lastSeen: time.Now().Add(-time.Hour)}
	rl.cleanupN = 4999
	rl.mu.Unlock()

	_ = rl.getVisitor("new")

	rl.mu.Lock()
	_, existsOld := rl.visitors["old"]
	_, existsNew := rl.visitors["new"]
	rl.mu.Unlock()
	if existsOld || !existsNew {
		t.Fatalf("eviction unexpected: old=%v new=%v", existsOld, existsNew)
	}
}

func TestRateLimiter_Handler_PerSender(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(1.0, 1, KeyBySenderOrIP())
	var limited int
	rl.OnLimit = func(*gin.Context) { limited++ }

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Header("X-Request-ID", "rid-1"); c.Next() })
	r.Use(rl.Handler())
	r.POST("/whatsapp/message", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	send := func(from string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, formRequest("/whatsapp/message", url.Values{"From": {from}, "Body": {"x"}}))
		return w
	}

	if w := send("whatsapp:+1000"); w.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", w.Code)
	}
	w := send("whatsapp:+1000")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request from same sender should be limited, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("expected Retry-After=1, got %q", got)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["code"] != "too_many_requests" || body["request_id"] != "rid-1" {
		t.Fatalf("unexpected JSON body: %v", body)
	}
	// Another sender behind the same IP has its own bucket.
	if w := send("whatsapp:+2000"); w.Code != http.StatusOK {
		t.Fatalf("other sender should pass, got %d", w.Code)
	}
	if limited != 1 {
		t.Fatalf("OnLimit calls = %d; want 1", limited)
	}
}
