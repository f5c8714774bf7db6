// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file drops redelivered WhatsApp webhooks. Twilio retries a webhook
// that timed out or failed, and every retry carries the same MessageSid (and
// an I-Twilio-Idempotency-Token header). InboundDedupe claims that key
// before the handler runs: the first delivery proceeds, later ones are
// acknowledged with empty TwiML and never reach the handler.
//
// A claim is released again when the handler answers with a 5xx, so the
// message is processed when Twilio retries it.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/powerpulse-backend/internal/dedupe"
)

// HeaderTwilioIdempotency is the retry token Twilio sends with each webhook.
const HeaderTwilioIdempotency = "I-Twilio-Idempotency-Token"

// EmptyTwiML acknowledges a webhook without sending a synchronous reply.
const EmptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

const (
	ctxKeyInboundKey = "inbound.key"
	ctxKeyDuplicate  = "inbound.duplicate"
)

// AckTwiML writes 200 with EmptyTwiML and aborts the chain.
func AckTwiML(c *gin.Context) {
	c.Header("Content-Type", "application/xml")
	c.AbortWithStatus(http.StatusOK)
	_, _ = c.Writer.WriteString(EmptyTwiML)
}

// GetInboundKey returns the key claimed for this request, if any.
func GetInboundKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyInboundKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsDuplicate reports whether InboundDedupe recognised this request as a
// redelivery.
func IsDuplicate(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyDuplicate)
	b, _ := v.(bool)
	return b
}

// InboundOptions configures InboundDedupe.
type InboundOptions struct {
	// TTL is how long a key is remembered. Values <= 0 default to 24h.
	TTL time.Duration
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. Defaults to ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
	// ReleaseTimeout bounds the claim release after a failed request.
	ReleaseTimeout time.Duration
}

// InboundDedupe returns the de-duplication middleware backed by claimer.
//
// Requests without a usable key pass through unchanged. A claimer failure
// is logged and the request proceeds: losing de-duplication is preferable to
// losing messages.
func InboundDedupe(opts InboundOptions, claimer dedupe.Claimer) gin.HandlerFunc {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}
	releaseTimeout := opts.ReleaseTimeout
	if releaseTimeout <= 0 {
		releaseTimeout = 2 * time.Second
	}

	return func(c *gin.Context) {
		key := inboundKey(c)
		if key == "" || len(key) > maxLen || !pat.MatchString(key) {
			c.Next()
			return
		}

		lg := LoggerFrom(c)
		err := claimer.Claim(c.Request.Context(), key, strings.TrimSpace(c.PostForm("From")), ttl)
		switch {
		case errors.Is(err, dedupe.ErrSeen):
			c.Set(ctxKeyDuplicate, true)
			CountWebhook(WebhookDuplicate)
			lg.Info().Str("inbound_key", key).Msg("duplicate webhook delivery dropped")
			AckTwiML(c)
			return
		case err != nil:
			lg.Warn().Err(err).Str("inbound_key", key).Msg("inbound claim failed; processing without de-duplication")
			c.Next()
			return
		}

		c.Set(ctxKeyInboundKey, key)
		c.Next()

		if c.Writer.Status() >= http.StatusInternalServerError {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), releaseTimeout)
			defer cancel()
			if err := claimer.Release(ctx, key); err != nil {
				lg.Warn().Err(err).Str("inbound_key", key).Msg("inbound claim release failed")
			}
		}
	}
}

// inboundKey prefers the MessageSid form field, which is stable across
// redeliveries, over the idempotency header.
func inboundKey(c *gin.Context) string {
	if isForm(c.Request) {
		if sid := strings.TrimSpace(c.PostForm("MessageSid")); sid != "" {
			return sid
		}
	}
	return strings.TrimSpace(c.GetHeader(HeaderTwilioIdempotency))
}
