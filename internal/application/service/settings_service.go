package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/sangkips/tillpoint/internal/domain/entity"
	"github.com/sangkips/tillpoint/internal/domain/repository"
	"github.com/sangkips/tillpoint/pkg/apperror"
)

const (
	maxShopNameLen  = 100
	maxShopFieldLen = 255
)

// SettingsService handles the shop details printed on receipts
type SettingsService struct {
	settingsRepo repository.SettingsRepository
	defaults     entity.ShopSettings
	log          zerolog.Logger
}

// NewSettingsService creates a new settings service. defaults apply until the
// settings are first saved.
func NewSettingsService(settingsRepo repository.SettingsRepository, defaults entity.ShopSettings, log zerolog.Logger) *SettingsService {
	return &SettingsService{
		settingsRepo: settingsRepo,
		defaults:     defaults,
		log:          log.With().Str("component", "settings").Logger(),
	}
}

// GetSettings retrieves the shop settings, falling back to the defaults
func (s *SettingsService) GetSettings(ctx context.Context) (*entity.ShopSettings, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		d := s.defaults
		return &d, nil
	}
	return settings, nil
}

// UpdateSettingsInput represents the input for updating settings
type UpdateSettingsInput struct {
	Name    string
	Address string
	Phone   string
	Footer  string
}

// UpdateSettings replaces the shop settings
func (s *SettingsService) UpdateSettings(ctx context.Context, input *UpdateSettingsInput) (*entity.ShopSettings, error) {
	settings := &entity.ShopSettings{
		Name:    strings.TrimSpace(input.Name),
		Address: strings.TrimSpace(input.Address),
		Phone:   strings.TrimSpace(input.Phone),
		Footer:  strings.TrimSpace(input.Footer),
	}

	var fieldErrors []apperror.FieldError
	if settings.Name == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "name", Message: "name is required"})
	} else if utf8.RuneCountInString(settings.Name) > maxShopNameLen {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "name", Message: "name is too long"})
	}
	for _, f := range []struct{ name, value string }{
		{"address", settings.Address},
		{"phone", settings.Phone},
		{"footer", settings.Footer},
	} {
		if utf8.RuneCountInString(f.value) > maxShopFieldLen {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: f.name, Message: f.name + " is too long"})
		}
	}
	if len(fieldErrors) > 0 {
		return nil, apperror.NewValidationError(fieldErrors)
	}

	if err := s.settingsRepo.Save(ctx, settings); err != nil {
		return nil, err
	}
	s.log.Info().Str("name", settings.Name).Msg("shop settings updated")
	return settings, nil
}

// Header returns the receipt header. A store error is logged and the defaults are
// used so printing never fails on settings.
func (s *SettingsService) Header(ctx context.Context) entity.ReceiptHeader {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("shop settings unavailable, using defaults")
		return s.defaults.Header()
	}
	return settings.Header()
}
