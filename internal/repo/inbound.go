// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides helpers for the InboundMessage model
// used to drop redelivered webhooks.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/powerpulse-backend/internal/domain"
)

// ClaimInbound records key as accepted. It returns ErrDuplicate when a
// non-expired claim for the same key already exists. Expired claims are
// replaced, so a key becomes claimable again after its TTL.
func ClaimInbound(ctx context.Context, db *gorm.DB, key, sender string, ttl time.Duration, now time.Time) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("key = ? AND expires_at <= ?", key, now).
			Delete(&domain.InboundMessage{}).Error; err != nil {
			return err
		}
		rec := &domain.InboundMessage{
			ID:        uuid.NewString(),
			Key:       key,
			Sender:    sender,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		}
		if err := tx.Create(rec).Error; err != nil {
			if IsDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	})
}

// PurgeExpiredInbound deletes claims that expired before now and returns the
// number of rows removed.
func PurgeExpiredInbound(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.InboundMessage{})
	return res.RowsAffected, res.Error
}

// ReleaseInbound removes the claim for key, if any.
func ReleaseInbound(ctx context.Context, db *gorm.DB, key string) error {
	return db.WithContext(ctx).Where("key = ?", key).Delete(&domain.InboundMessage{}).Error
}
