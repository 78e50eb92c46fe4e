package repository

import (
	"context"

	"github.com/sangkips/tillpoint/internal/domain/entity"
)

// IdempotencyRepository defines the interface for idempotency key operations
type IdempotencyRepository interface {
	// GetByKey returns the stored key for a terminal, or nil when none exists
	GetByKey(ctx context.Context, key, terminalID string) (*entity.IdempotencyKey, error)
	Create(ctx context.Context, ikey *entity.IdempotencyKey) error
	// DeleteExpired removes expired idempotency keys (for cleanup)
	DeleteExpired(ctx context.Context) error
}
