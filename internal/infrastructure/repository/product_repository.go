package repository

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sangkips/tillpoint/internal/domain/entity"
	domainRepo "github.com/sangkips/tillpoint/internal/domain/repository"
)

type productRepository struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB, log zerolog.Logger) domainRepo.ProductRepository {
	return &productRepository{db: db, log: log}
}

func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	row := productRow{Name: product.Name, Price: product.Price, Profit: product.Profit}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	product.ID = row.ID
	product.CreatedAt = row.CreatedAt
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	var row productRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainRepo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p, err := decodeProduct(row)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDs retrieves multiple products by their IDs in a single query
func (r *productRepository) GetByIDs(ctx context.Context, ids []int64) ([]entity.Product, error) {
	if len(ids) == 0 {
		return []entity.Product{}, nil
	}
	var rows []productRow
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.decodeAll(rows), nil
}

func (r *productRepository) List(ctx context.Context) ([]entity.Product, error) {
	var rows []productRow
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.decodeAll(rows), nil
}

func (r *productRepository) decodeAll(rows []productRow) []entity.Product {
	products := make([]entity.Product, 0, len(rows))
	for _, row := range rows {
		p, err := decodeProduct(row)
		if err != nil {
			r.log.Error().Err(err).Int64("product_id", row.ID).Msg("skipping malformed product")
			continue
		}
		products = append(products, p)
	}
	return products
}
