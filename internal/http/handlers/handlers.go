// Package handlers exposes the HTTP endpoints of the PowerPulse backend:
//
//   - POST /whatsapp/message            (Twilio inbound webhook)
//   - GET  {api}/tickets                (list, paginated, ETag support)
//   - GET  {api}/tickets/{id}           (detail with generated replies)
//   - PUT  {api}/tickets/{id}/status    (status transition)
//   - GET  {api}/consumers/{phone}      (lookup)
//   - POST {api}/flow/run               (synchronous simulation of one message)
//
// {api} is the configured base path, "/api/v1" by default.
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/powerpulse-backend/internal/domain"
	"github.com/tbourn/powerpulse-backend/internal/flow"
	"github.com/tbourn/powerpulse-backend/internal/services"
	"github.com/tbourn/powerpulse-backend/internal/utils"
	"github.com/tbourn/powerpulse-backend/internal/worker"
)

//
// Service contracts (context-aware)
//

// TicketService defines the ticket queries consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type TicketService interface {
	// ListPage returns a page of tickets matching f and the total count.
	ListPage(ctx context.Context, f services.TicketFilter, page, pageSize int) ([]domain.Ticket, int64, error)
	// Stats returns the count and latest update time of tickets matching f.
	Stats(ctx context.Context, f services.TicketFilter) (int64, *time.Time, error)
	// Get returns a ticket with its generated content.
	Get(ctx context.Context, ticketID string) (*services.TicketDetail, error)
	// UpdateStatus moves a ticket to a new status.
	UpdateStatus(ctx context.Context, ticketID, status string) (*domain.Ticket, error)
}

// ConsumerService defines consumer lookups.
type ConsumerService interface {
	Lookup(ctx context.Context, phone string) (*services.ConsumerSummary, error)
}

// FlowRunner handles one inbound message end to end.
type FlowRunner interface {
	Handle(ctx context.Context, req flow.Request) (flow.Outcome, error)
}

// TaskSubmitter runs work after the HTTP response has been written.
type TaskSubmitter interface {
	Submit(ctx context.Context, name string, task worker.Task) error
}

//
// Handler wiring
//

// Options tunes handler behaviour.
type Options struct {
	// SubmitWait bounds how long the webhook waits for a free worker slot
	// before answering 503. Defaults to 2s.
	SubmitWait time.Duration
}

// Handlers groups the HTTP endpoints. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	tickets   TicketService
	consumers ConsumerService
	flow      FlowRunner
	tasks     TaskSubmitter

	submitWait time.Duration
}

// New constructs a Handlers instance bound to the given services.
func New(tickets TicketService, consumers ConsumerService, fr FlowRunner, tasks TaskSubmitter, opts Options) *Handlers {
	if opts.SubmitWait <= 0 {
		opts.SubmitWait = 2 * time.Second
	}
	return &Handlers{
		tickets:    tickets,
		consumers:  consumers,
		flow:       fr,
		tasks:      tasks,
		submitWait: opts.SubmitWait,
	}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	pages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	return utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), defaultPage),
		utils.AtoiDefault(c.Query("page_size"), defaultPageSize),
		maxPageSize,
	)
}
