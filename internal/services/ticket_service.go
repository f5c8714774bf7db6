// Package services – TicketService
//
// TicketService backs the ticket administration API: filtered, paginated
// listings (with a cheap fingerprint for conditional GETs), ticket detail
// with the generated replies, and status transitions.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/powerpulse-backend/internal/domain"
	"github.com/tbourn/powerpulse-backend/internal/flow"
	"github.com/tbourn/powerpulse-backend/internal/repo"
)

// TicketFilter is the listing filter accepted by TicketService.
type TicketFilter struct {
	Status   string
	Category string
	Urgency  string
	Phone    string
}

// TicketDetail is a ticket with its generated content, oldest first.
type TicketDetail struct {
	domain.Ticket
	Contents []domain.GeneratedContent `json:"contents"`
}

// TicketService provides ticket queries and status updates.
type TicketService struct {
	DB *gorm.DB
}

// NewTicketService constructs a TicketService.
func NewTicketService(db *gorm.DB) *TicketService {
	return &TicketService{DB: db}
}

// ListPage returns tickets matching f, newest first, plus the total count.
// A filter on an unknown phone yields an empty page rather than an error.
func (s *TicketService) ListPage(ctx context.Context, f TicketFilter, page, pageSize int) ([]domain.Ticket, int64, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	rf, empty, err := s.resolveFilter(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	if empty {
		return []domain.Ticket{}, 0, nil
	}

	total, err := repo.CountTickets(ctx, s.DB, rf)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Ticket{}, 0, nil
	}
	items, err := repo.ListTicketsPage(ctx, s.DB, rf, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Stats returns the count and most recent update time of tickets matching f.
// The HTTP layer derives weak ETags from it.
func (s *TicketService) Stats(ctx context.Context, f TicketFilter) (int64, *time.Time, error) {
	rf, empty, err := s.resolveFilter(ctx, f)
	if err != nil || empty {
		return 0, nil, err
	}
	return repo.TicketsStats(ctx, s.DB, rf)
}

// Get returns a ticket and its generated content.
func (s *TicketService) Get(ctx context.Context, ticketID string) (*TicketDetail, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.String("ticket.id", ticketID)),
	)
	defer span.End()

	t, err := repo.GetTicket(ctx, s.DB, strings.TrimSpace(ticketID))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	contents, err := repo.ListContentsForTicket(ctx, s.DB, t.TicketID)
	if err != nil {
		return nil, err
	}
	return &TicketDetail{Ticket: *t, Contents: contents}, nil
}

// UpdateStatus moves a ticket to status and returns the updated ticket.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID, status string) (*domain.Ticket, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "UpdateStatus",
		trace.WithAttributes(
			attribute.String("ticket.id", ticketID),
			attribute.String("ticket.status", status),
		),
	)
	defer span.End()

	status = strings.ToLower(strings.TrimSpace(status))
	if !domain.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	if err := repo.UpdateTicketStatus(ctx, s.DB, ticketID, status); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return repo.GetTicket(ctx, s.DB, ticketID)
}

// resolveFilter validates f and maps a phone filter onto a consumer id. The
// boolean is true when the filter can match nothing.
func (s *TicketService) resolveFilter(ctx context.Context, f TicketFilter) (repo.TicketFilter, bool, error) {
	rf := repo.TicketFilter{
		Status:   strings.ToLower(strings.TrimSpace(f.Status)),
		Urgency:  strings.ToLower(strings.TrimSpace(f.Urgency)),
		Category: strings.TrimSpace(f.Category),
	}
	if rf.Status != "" && !domain.ValidStatus(rf.Status) {
		return rf, false, ErrInvalidFilter
	}
	if rf.Urgency != "" && rf.Urgency != domain.UrgencyLow && rf.Urgency != domain.UrgencyHigh {
		return rf, false, ErrInvalidFilter
	}
	if rf.Category != "" {
		c, ok := flow.ParseCategory(rf.Category)
		if !ok {
			return rf, false, ErrInvalidFilter
		}
		rf.Category = c.String()
	}
	if phone := flow.NormalizePhone(f.Phone); phone != "" {
		c, err := repo.GetConsumerByPhone(ctx, s.DB, phone)
		if errors.Is(err, repo.ErrNotFound) {
			return rf, true, nil
		}
		if err != nil {
			return rf, false, err
		}
		rf.ConsumerID = c.ID
	}
	return rf, false, nil
}
