package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/sangkips/tillpoint/internal/domain/entity"
	domainRepo "github.com/sangkips/tillpoint/internal/domain/repository"
)

type idempotencyRepository struct {
	db *gorm.DB
}

// NewIdempotencyRepository creates a new idempotency repository
func NewIdempotencyRepository(db *gorm.DB) domainRepo.IdempotencyRepository {
	return &idempotencyRepository{db: db}
}

func (r *idempotencyRepository) GetByKey(ctx context.Context, key, terminalID string) (*entity.IdempotencyKey, error) {
	var row idempotencyRow
	err := r.db.WithContext(ctx).
		Where("key = ? AND terminal_id = ?", key, terminalID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ikey := decodeIdempotency(row)
	return &ikey, nil
}

func (r *idempotencyRepository) Create(ctx context.Context, ikey *entity.IdempotencyKey) error {
	return r.db.WithContext(ctx).Create(&idempotencyRow{
		Key:          ikey.Key,
		TerminalID:   ikey.TerminalID,
		Endpoint:     ikey.Endpoint,
		ResponseCode: ikey.ResponseCode,
		ResponseBody: ikey.ResponseBody,
		ExpiresAt:    ikey.ExpiresAt,
	}).Error
}

func (r *idempotencyRepository) DeleteExpired(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&idempotencyRow{}).Error
}
