package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/powerpulse-backend/internal/flow"
	"github.com/tbourn/powerpulse-backend/internal/http/middleware"
)

// RunFlowRequest is the JSON payload for a simulated inbound message.
type RunFlowRequest struct {
	// Text is the consumer's message (1–4096 chars).
	Text string `json:"text" binding:"required,max=4096" example:"My meter shows no power since this morning"`
	// From is the sender address; the configured default is used when empty.
	From string `json:"from" example:"whatsapp:+306900000000"`
}

// RunFlowResponse is the terminal outcome of a simulated message. Error is
// set when generation failed.
type RunFlowResponse struct {
	Outcome flow.Outcome `json:"outcome"`
	Error   string       `json:"error,omitempty"`
}

// RunFlow godoc
// @ID          runFlow
// @Summary     Simulate an inbound message
// @Description Runs one message through classification, generation, persistence and dispatch synchronously and returns the outcome.
// @Tags        Flow
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RunFlowRequest  true  "Simulated message"
//
// @Success     200  {object} handlers.RunFlowResponse
// @Failure     400  {object} handlers.ErrorResponse   "Bad request"
// @Failure     502  {object} handlers.RunFlowResponse "Content generation failed"
// @Failure     500  {object} handlers.ErrorResponse   "Internal error"
// @Router      /api/v1/flow/run [post]
func (h *Handlers) RunFlow(c *gin.Context) {
	var req RunFlowRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text required (1–4096 chars)")
		return
	}

	id := requestID(c)
	if id == "" {
		id = uuid.NewString()
	}
	out, err := h.flow.Handle(c.Request.Context(), flow.Request{
		RawText:     strings.TrimSpace(req.Text),
		Destination: strings.TrimSpace(req.From),
		MessageID:   "sim-" + id,
	})
	if err != nil {
		if errors.Is(err, flow.ErrGenerationFailed) {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("simulated flow failed at generation")
			ok(c, http.StatusBadGateway, RunFlowResponse{Outcome: out, Error: err.Error()})
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeFlowFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, RunFlowResponse{Outcome: out})
}
