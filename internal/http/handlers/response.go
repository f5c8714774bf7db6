// Package handlers implements the PowerPulse HTTP endpoints: the Twilio
// WhatsApp webhook and the admin API over tickets, consumers and simulated
// flow runs.
//
// Errors are written as an ErrorResponse with a stable code (see errors.go).
// A 404 looks like:
//
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "ticket not found"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/powerpulse-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code      string `json:"code" example:"not_found"`
	Message   string `json:"message" example:"resource not found"`
}

// fail aborts with an ErrorResponse. 5xx responses are logged with the
// request logger; messages never carry internal error text.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: requestID(c),
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail lets the router answer NoRoute and NoMethod with the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// requestID returns the correlation id set by middleware.RequestID, falling
// back to the response header.
func requestID(c *gin.Context) string {
	if id := middleware.GetRequestID(c); id != "" {
		return id
	}
	return c.Writer.Header().Get("X-Request-ID")
}
