// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// GeneratedContent model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/powerpulse-backend/internal/domain"
)

// CreateContent inserts a generated-content row linked to ticketID (nil when
// the reply was not tied to a ticket). Empty media references are stored as NULL.
func CreateContent(ctx context.Context, db *gorm.DB, ticketID *string, prompt, text, media string) (*domain.GeneratedContent, error) {
	gc := &domain.GeneratedContent{
		ID:            uuid.NewString(),
		TicketID:      ticketID,
		PromptUsed:    prompt,
		GeneratedText: text,
		CreatedAt:     time.Now().UTC(),
	}
	if media != "" {
		gc.MediaReference = &media
	}
	if err := db.WithContext(ctx).Create(gc).Error; err != nil {
		return nil, err
	}
	return gc, nil
}

// SetDeliveryID records the outbound delivery identifier on a content row.
// It returns ErrNotFound when the row does not exist.
func SetDeliveryID(ctx context.Context, db *gorm.DB, contentID, deliveryID string) error {
	res := db.WithContext(ctx).
		Model(&domain.GeneratedContent{}).
		Where("id = ?", contentID).
		Update("delivery_id", deliveryID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListContentsForTicket returns all content rows for ticketID, oldest first.
func ListContentsForTicket(ctx context.Context, db *gorm.DB, ticketID string) ([]domain.GeneratedContent, error) {
	var out []domain.GeneratedContent
	err := db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
