// Package services – ConsumerService
//
// ConsumerService answers consumer lookups for the admin API.
package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/tbourn/powerpulse-backend/internal/domain"
	"github.com/tbourn/powerpulse-backend/internal/flow"
	"github.com/tbourn/powerpulse-backend/internal/repo"
)

// ConsumerSummary is a consumer with the number of tickets it has opened.
type ConsumerSummary struct {
	domain.Consumer
	TicketCount int64 `json:"ticket_count"`
}

// ConsumerService provides consumer lookups.
type ConsumerService struct {
	DB *gorm.DB
}

// NewConsumerService constructs a ConsumerService.
func NewConsumerService(db *gorm.DB) *ConsumerService {
	return &ConsumerService{DB: db}
}

// Lookup finds a consumer by phone number. Channel prefixes such as
// "whatsapp:" are accepted and stripped.
func (s *ConsumerService) Lookup(ctx context.Context, phone string) (*ConsumerSummary, error) {
	ctx, span := otel.Tracer("services/ConsumerService").Start(ctx, "Lookup")
	defer span.End()

	phone = flow.NormalizePhone(phone)
	if phone == "" {
		return nil, ErrEmptyPhone
	}
	c, err := repo.GetConsumerByPhone(ctx, s.DB, phone)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrConsumerNotFound
		}
		return nil, err
	}
	n, err := repo.CountTickets(ctx, s.DB, repo.TicketFilter{ConsumerID: c.ID})
	if err != nil {
		return nil, err
	}
	return &ConsumerSummary{Consumer: *c, TicketCount: n}, nil
}
