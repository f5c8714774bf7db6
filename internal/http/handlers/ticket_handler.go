package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/powerpulse-backend/internal/domain"
	"github.com/tbourn/powerpulse-backend/internal/flow"
	"github.com/tbourn/powerpulse-backend/internal/services"
)

// ListTicketsResponse wraps a page of tickets and pagination information.
type ListTicketsResponse struct {
	Tickets    []domain.Ticket `json:"tickets"`
	Pagination Pagination      `json:"pagination"`
}

// UpdateTicketStatusRequest is the JSON payload for a status transition.
type UpdateTicketStatusRequest struct {
	Status string `json:"status" binding:"required" example:"in_progress"`
}

func ticketFilter(c *gin.Context) services.TicketFilter {
	return services.TicketFilter{
		Status:   strings.TrimSpace(c.Query("status")),
		Category: strings.TrimSpace(c.Query("category")),
		Urgency:  strings.TrimSpace(c.Query("urgency")),
		Phone:    flow.NormalizePhone(c.Query("phone")),
	}
}

// ListTickets godoc
// @ID          listTickets
// @Summary     List tickets (paginated)
// @Description Returns tickets newest first, optionally filtered. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Tickets
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       status         query   string  false "Ticket status"    Enums(open, in_progress, resolved)
// @Param       category       query   string  false "Ticket category"  Enums(emergency, technical_fault, energy_advice)
// @Param       urgency        query   string  false "Ticket urgency"   Enums(low, high)
// @Param       phone          query   string  false "Consumer phone number"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListTicketsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Invalid filter"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /api/v1/tickets [get]
func (h *Handlers) ListTickets(c *gin.Context) {
	ctx := c.Request.Context()
	f := ticketFilter(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	count, maxTS, err := h.tickets.Stats(ctx, f)
	switch {
	case errors.Is(err, services.ErrInvalidFilter):
		fail(c, http.StatusBadRequest, ErrCodeInvalidFilter, "unknown status, category or urgency")
		return
	case err == nil:
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"tickets:%s:%s:%s:%s:%d:%d:%d:%d"`,
			f.Status, f.Category, f.Urgency, f.Phone, page, pageSize, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.tickets.ListPage(ctx, f, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrInvalidFilter) {
			fail(c, http.StatusBadRequest, ErrCodeInvalidFilter, "unknown status, category or urgency")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, ListTicketsResponse{
		Tickets:    items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetTicket godoc
// @ID          getTicket
// @Summary     Get a ticket
// @Description Returns a ticket with the replies generated for it, oldest first.
// @Tags        Tickets
// @Produce     json
//
// @Param       id  path  string  true  "Ticket ID"  example(TIC-3FA9C1)
//
// @Success     200  {object} services.TicketDetail
// @Failure     404  {object} handlers.ErrorResponse "Ticket not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /api/v1/tickets/{id} [get]
func (h *Handlers) GetTicket(c *gin.Context) {
	t, err := h.tickets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrTicketNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "ticket not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeLookupFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, t)
}

// UpdateTicketStatus godoc
// @ID          updateTicketStatus
// @Summary     Change a ticket's status
// @Description Moves a ticket to open, in_progress or resolved and returns the updated ticket.
// @Tags        Tickets
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Ticket ID"  example(TIC-3FA9C1)
// @Param       body  body  handlers.UpdateTicketStatusRequest  true  "New status"
//
// @Success     200  {object} domain.Ticket
// @Failure     400  {object} handlers.ErrorResponse "Bad request or invalid status"
// @Failure     404  {object} handlers.ErrorResponse "Ticket not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /api/v1/tickets/{id}/status [put]
func (h *Handlers) UpdateTicketStatus(c *gin.Context) {
	var req UpdateTicketStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Status) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status required")
		return
	}

	t, err := h.tickets.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	switch {
	case errors.Is(err, services.ErrInvalidStatus):
		fail(c, http.StatusBadRequest, ErrCodeInvalidStatus, "status must be one of open, in_progress, resolved")
	case errors.Is(err, services.ErrTicketNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "ticket not found")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
	default:
		ok(c, http.StatusOK, t)
	}
}
