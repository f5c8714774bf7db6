// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Consumer
// model.
//
// Functions:
//
//   - GetOrCreateConsumer(ctx, db, phone) -> *domain.Consumer, created, error
//     Resolves a consumer by normalized phone number, inserting it when absent.
//     Safe under concurrent calls for the same number: the insert uses
//     ON CONFLICT DO NOTHING against the unique phone index and the row is
//     then read back, so every caller observes the same record.
//
//   - GetConsumerByPhone(ctx, db, phone) -> *domain.Consumer, error
//     Fetches a consumer by phone, or ErrNotFound.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/powerpulse-backend/internal/domain"
)

// GetOrCreateConsumer returns the consumer registered for phone, creating it
// with default attributes when no row exists. The boolean reports whether this
// call inserted the row.
func GetOrCreateConsumer(ctx context.Context, db *gorm.DB, phone string) (*domain.Consumer, bool, error) {
	now := time.Now().UTC()
	c := &domain.Consumer{
		ID:          uuid.NewString(),
		PhoneNumber: phone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone_number"}},
			DoNothing: true,
		}).
		Create(c)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return c, true, nil
	}

	existing, err := GetConsumerByPhone(ctx, db, phone)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetConsumerByPhone fetches a consumer by its normalized phone number. If the
// record does not exist, it returns ErrNotFound.
func GetConsumerByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Consumer, error) {
	var c domain.Consumer
	err := db.WithContext(ctx).
		Where("phone_number = ?", phone).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}
