package repository

import (
	"context"

	"github.com/sangkips/tillpoint/internal/domain/entity"
)

// ProductRepository defines the interface for product data operations
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id int64) (*entity.Product, error)
	// GetByIDs retrieves multiple products by their IDs in a single query (prevents N+1).
	// Unknown ids are skipped, not reported as errors.
	GetByIDs(ctx context.Context, ids []int64) ([]entity.Product, error)
	List(ctx context.Context) ([]entity.Product, error)
}
