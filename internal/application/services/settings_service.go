package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/providers"
	apperrors "github.com/Rakhazzan/SINTESIS/pkg/errors"
)

// SettingsService owns the per-user application context: the remembered
// page and the theme. Values only change through its setters.
type SettingsService struct {
	store providers.PreferenceStore
}

// NewSettingsService creates a new settings service
func NewSettingsService(store providers.PreferenceStore) *SettingsService {
	return &SettingsService{store: store}
}

// Load restores the user's settings. Missing or unknown stored values fall
// back to the defaults.
func (s *SettingsService) Load(ctx context.Context, userID string) (*entities.Settings, error) {
	settings := &entities.Settings{CurrentPage: entities.DefaultPage, Theme: entities.DefaultTheme}

	page, ok, err := s.store.Get(ctx, userID, entities.PreferenceCurrentPage)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to read preferences", err)
	}
	if ok && entities.Page(page).Valid() {
		settings.CurrentPage = entities.Page(page)
	}

	theme, ok, err := s.store.Get(ctx, userID, entities.PreferenceTheme)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to read preferences", err)
	}
	if ok && entities.Theme(theme).Valid() {
		settings.Theme = entities.Theme(theme)
	}
	return settings, nil
}

// SetCurrentPage remembers the page the user is on
func (s *SettingsService) SetCurrentPage(ctx context.Context, userID string, page entities.Page) error {
	if !page.Valid() {
		return apperrors.NewValidationError("unknown page " + string(page))
	}
	return s.set(ctx, userID, entities.PreferenceCurrentPage, string(page))
}

// SetTheme persists the user's theme
func (s *SettingsService) SetTheme(ctx context.Context, userID string, theme entities.Theme) error {
	if !theme.Valid() {
		return apperrors.NewValidationError("unknown theme " + string(theme))
	}
	return s.set(ctx, userID, entities.PreferenceTheme, string(theme))
}

// Update applies every non-empty field of settings. Nothing is written
// unless every field is valid.
func (s *SettingsService) Update(ctx context.Context, userID string, settings entities.Settings) (*entities.Settings, error) {
	if settings.CurrentPage != "" && !settings.CurrentPage.Valid() {
		return nil, apperrors.NewValidationError("unknown page " + string(settings.CurrentPage))
	}
	if settings.Theme != "" && !settings.Theme.Valid() {
		return nil, apperrors.NewValidationError("unknown theme " + string(settings.Theme))
	}

	if settings.CurrentPage != "" {
		if err := s.SetCurrentPage(ctx, userID, settings.CurrentPage); err != nil {
			return nil, err
		}
	}
	if settings.Theme != "" {
		if err := s.SetTheme(ctx, userID, settings.Theme); err != nil {
			return nil, err
		}
	}
	return s.Load(ctx, userID)
}

// EndSession forgets the remembered page so the next sign-in starts on the
// default page. The theme is kept.
func (s *SettingsService) EndSession(ctx context.Context, userID string) error {
	if err := s.store.Delete(ctx, userID, entities.PreferenceCurrentPage); err != nil {
		return apperrors.NewExternalError("failed to clear preferences", err)
	}
	log.Info().Str("user_id", userID).Msg("session ended")
	return nil
}

func (s *SettingsService) set(ctx context.Context, userID, key, value string) error {
	if err := s.store.Set(ctx, userID, key, value); err != nil {
		return apperrors.NewExternalError("failed to save preferences", err)
	}
	return nil
}
