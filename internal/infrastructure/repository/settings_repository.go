package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/sangkips/tillpoint/internal/domain/entity"
	domainRepo "github.com/sangkips/tillpoint/internal/domain/repository"
)

// shopSettingsID is the primary key of the single settings row.
const shopSettingsID = 1

type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *gorm.DB) domainRepo.SettingsRepository {
	return &settingsRepository{db: db}
}

// Get retrieves the shop settings
func (r *settingsRepository) Get(ctx context.Context) (*entity.ShopSettings, error) {
	var row shopSettingsRow
	err := r.db.WithContext(ctx).First(&row, shopSettingsID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	s := decodeShopSettings(row)
	return &s, nil
}

// Save creates or replaces the shop settings
func (r *settingsRepository) Save(ctx context.Context, settings *entity.ShopSettings) error {
	row := shopSettingsRow{
		ID:      shopSettingsID,
		Name:    settings.Name,
		Address: settings.Address,
		Phone:   settings.Phone,
		Footer:  settings.Footer,
	}
	if err := r.db.WithContext(ctx).Save(&row).Error; err != nil {
		return err
	}
	settings.UpdatedAt = row.UpdatedAt
	return nil
}
