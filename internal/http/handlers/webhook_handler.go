package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/powerpulse-backend/internal/flow"
	"github.com/tbourn/powerpulse-backend/internal/http/middleware"
)

// InboundMessage is the subset of Twilio's WhatsApp webhook form we read.
type InboundMessage struct {
	Body       string `form:"Body"`
	From       string `form:"From"       example:"whatsapp:+306900000000"`
	To         string `form:"To"`
	MessageSid string `form:"MessageSid" example:"SM1234567890abcdef1234567890abcdef"`
	NumMedia   int    `form:"NumMedia"`
}

// WhatsAppWebhook godoc
// @ID          whatsappWebhook
// @Summary     Receive an inbound WhatsApp message
// @Description Acknowledges the Twilio webhook with empty TwiML and handles the message in the background. The reply is sent through the Twilio REST API. Redeliveries of the same MessageSid are acknowledged without being processed again.
// @Tags        Webhook
// @Accept      x-www-form-urlencoded
// @Produce     xml
//
// @Param       X-Twilio-Signature  header    string  false "Twilio request signature"
// @Param       Body                formData  string  false "Message text"
// @Param       From                formData  string  true  "Sender address"  example(whatsapp:+306900000000)
// @Param       MessageSid          formData  string  false "Twilio message id"
// @Param       NumMedia            formData  int     false "Attached media count"
//
// @Success     200  {string}  string  "Empty TwiML response"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Invalid signature"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     503  {object}  handlers.ErrorResponse  "Worker queue full"
// @Router      /whatsapp/message [post]
func (h *Handlers) WhatsAppWebhook(c *gin.Context) {
	var msg InboundMessage
	if err := c.ShouldBind(&msg); err != nil {
		middleware.CountWebhook(middleware.WebhookIgnored)
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid form body")
		return
	}

	lg := middleware.LoggerFrom(c).With().
		Str("message_sid", msg.MessageSid).
		Str("from", flow.MaskPhone(flow.NormalizePhone(msg.From))).
		Logger()

	text := strings.TrimSpace(msg.Body)
	if text == "" {
		lg.Info().Int("num_media", msg.NumMedia).Msg("inbound message without text ignored")
		middleware.CountWebhook(middleware.WebhookIgnored)
		middleware.AckTwiML(c)
		return
	}

	req := flow.Request{
		RawText:     text,
		Destination: msg.From,
		MessageID:   msg.MessageSid,
	}
	task := func(ctx context.Context) error {
		_, err := h.flow.Handle(ctx, req)
		return err
	}

	ctx, cancel := context.WithTimeout(lg.WithContext(c.Request.Context()), h.submitWait)
	defer cancel()
	if err := h.tasks.Submit(ctx, "whatsapp.message", task); err != nil {
		middleware.CountWebhook(middleware.WebhookQueueUnavailable)
		lg.Warn().Err(err).Msg("inbound message not queued")
		fail(c, http.StatusServiceUnavailable, ErrCodeQueueUnavailable, "message queue unavailable")
		return
	}

	middleware.CountWebhook(middleware.WebhookAccepted)
	middleware.AckTwiML(c)
}
