// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Ticket model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/powerpulse-backend/internal/domain"
)

// TicketFilter narrows ticket listings. Empty fields do not filter.
type TicketFilter struct {
	ConsumerID string
	Status     string
	Category   string
	Urgency    string
}

func (f TicketFilter) apply(q *gorm.DB) *gorm.DB {
	if f.ConsumerID != "" {
		q = q.Where("consumer_id = ?", f.ConsumerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Urgency != "" {
		q = q.Where("urgency = ?", f.Urgency)
	}
	return q
}

// CreateTicket inserts t. A colliding ticket id is reported as ErrDuplicate
// so callers can retry with a fresh id.
func CreateTicket(ctx context.Context, db *gorm.DB, t *domain.Ticket) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		if IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetTicket fetches a single ticket by id, or ErrNotFound.
func GetTicket(ctx context.Context, db *gorm.DB, ticketID string) (*domain.Ticket, error) {
	var t domain.Ticket
	err := db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CountTickets returns the number of tickets matching f.
func CountTickets(ctx context.Context, db *gorm.DB, f TicketFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Ticket{})).Count(&total).Error
	return total, err
}

// ListTicketsPage returns a page of tickets matching f, newest first. Ties on
// created_at are broken by ticket id so pages are deterministic.
func ListTicketsPage(ctx context.Context, db *gorm.DB, f TicketFilter, offset, limit int) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := f.apply(db.WithContext(ctx)).
		Order("created_at desc, ticket_id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateTicketStatus sets the status of a ticket. It returns ErrNotFound when
// no ticket has the given id.
func UpdateTicketStatus(ctx context.Context, db *gorm.DB, ticketID, status string) error {
	res := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("ticket_id = ?", ticketID).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
