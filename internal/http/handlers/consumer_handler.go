package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/powerpulse-backend/internal/services"
)

// GetConsumer godoc
// @ID          getConsumer
// @Summary     Look up a consumer
// @Description Finds a consumer by phone number. A channel prefix such as "whatsapp:" is accepted.
// @Tags        Consumers
// @Produce     json
//
// @Param       phone  path  string  true  "Phone number"  example(+306900000000)
//
// @Success     200  {object} services.ConsumerSummary
// @Failure     400  {object} handlers.ErrorResponse "Empty phone number"
// @Failure     404  {object} handlers.ErrorResponse "Consumer not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /api/v1/consumers/{phone} [get]
func (h *Handlers) GetConsumer(c *gin.Context) {
	s, err := h.consumers.Lookup(c.Request.Context(), c.Param("phone"))
	switch {
	case errors.Is(err, services.ErrEmptyPhone):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone number required")
	case errors.Is(err, services.ErrConsumerNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "consumer not found")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeLookupFailed, err.Error())
	default:
		ok(c, http.StatusOK, s)
	}
}
