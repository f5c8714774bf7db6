// Package services – RecordService
//
// RecordService is the GORM-backed record store used by the routing state
// machine. It resolves consumers by phone number, writes a ticket together
// with its generated content in a single transaction, and records delivery
// ids once the reply has been sent.
//
// Observability: all methods open OpenTelemetry spans; SQL statements are
// traced by the GORM plugin installed in repo.OpenSQLite.
package services

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/powerpulse-backend/internal/domain"
	"github.com/tbourn/powerpulse-backend/internal/flow"
	"github.com/tbourn/powerpulse-backend/internal/repo"
)

// RecordService implements flow.Store on top of the repo package.
type RecordService struct {
	DB *gorm.DB
}

var _ flow.Store = (*RecordService)(nil)

// NewRecordService constructs a RecordService.
func NewRecordService(db *gorm.DB) *RecordService {
	return &RecordService{DB: db}
}

// GetOrCreateConsumer resolves the consumer for phone, creating it on first
// contact.
func (s *RecordService) GetOrCreateConsumer(ctx context.Context, phone string) (string, error) {
	tr := otel.Tracer("services/RecordService")
	ctx, span := tr.Start(ctx, "GetOrCreateConsumer")
	defer span.End()

	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", ErrEmptyPhone
	}
	c, created, err := repo.GetOrCreateConsumer(ctx, s.DB, phone)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.Bool("consumer.created", created))
	return c.ID, nil
}

// CreateInteraction stores the ticket and its generated content atomically.
// A ticket id collision is reported as flow.ErrDuplicateTicketID and leaves
// nothing behind.
func (s *RecordService) CreateInteraction(ctx context.Context, consumerID string, in flow.Interaction) (string, error) {
	tr := otel.Tracer("services/RecordService")
	ctx, span := tr.Start(ctx, "CreateInteraction",
		trace.WithAttributes(
			attribute.String("ticket.id", in.TicketID),
			attribute.String("ticket.category", in.Category.String()),
		),
	)
	defer span.End()

	var contentID string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t := &domain.Ticket{
			TicketID:         in.TicketID,
			ConsumerID:       consumerID,
			IssueDescription: in.Query,
			Category:         in.Category.String(),
			Urgency:          in.Urgency,
			Status:           domain.StatusOpen,
		}
		if err := repo.CreateTicket(ctx, tx, t); err != nil {
			return err
		}
		ticketID := t.TicketID
		gc, err := repo.CreateContent(ctx, tx, &ticketID, in.Query, in.Text, in.MediaReference)
		if err != nil {
			return err
		}
		contentID = gc.ID
		return nil
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, repo.ErrDuplicate) {
			return "", flow.ErrDuplicateTicketID
		}
		return "", err
	}
	return contentID, nil
}

// AttachDelivery records the transport's delivery id on a content record.
func (s *RecordService) AttachDelivery(ctx context.Context, contentID, deliveryID string) error {
	tr := otel.Tracer("services/RecordService")
	ctx, span := tr.Start(ctx, "AttachDelivery",
		trace.WithAttributes(attribute.String("delivery.id", deliveryID)),
	)
	defer span.End()

	if err := repo.SetDeliveryID(ctx, s.DB, contentID, deliveryID); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
