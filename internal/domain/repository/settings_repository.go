package repository

import (
	"context"

	"github.com/sangkips/tillpoint/internal/domain/entity"
)

// SettingsRepository defines the interface for shop settings data access
type SettingsRepository interface {
	// Get returns nil, nil when the settings were never saved.
	Get(ctx context.Context) (*entity.ShopSettings, error)
	Save(ctx context.Context, settings *entity.ShopSettings) error
}
