package services

import (
	"context"
	"fmt"
	"strings"

	"wealthplanner/internal/core"
)

// SettingsService updates profile settings.
type SettingsService struct {
	store ProfileStore
}

func NewSettingsService(store ProfileStore) *SettingsService {
	return &SettingsService{store: store}
}

// ProfilePatch changes only the non-nil fields. Rules are replaced as a whole.
type ProfilePatch struct {
	Name     *string
	Income   *core.Money
	Currency *string
	Theme    *core.Theme
	Rules    *core.BudgetRules
}

// Apply returns p with the patch applied.
func (pp ProfilePatch) Apply(p core.Profile) core.Profile {
	if pp.Name != nil {
		p.Name = strings.TrimSpace(*pp.Name)
	}
	if pp.Income != nil {
		p.Income = *pp.Income
	}
	if pp.Currency != nil {
		p.Currency = strings.TrimSpace(*pp.Currency)
	}
	if pp.Theme != nil {
		p.Theme = *pp.Theme
	}
	if pp.Rules != nil {
		p.Rules = *pp.Rules
	}
	return p
}

// Update validates the patched profile and stores it. An invalid patch changes nothing.
func (s *SettingsService) Update(ctx context.Context, userID int64, patch ProfilePatch) (core.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return core.Profile{}, notFound("update settings", err)
	}
	next := patch.Apply(p)
	if err := next.Validate(); err != nil {
		return core.Profile{}, err
	}
	if err := s.store.UpdateProfile(ctx, next); err != nil {
		return core.Profile{}, fmt.Errorf("update settings: %w", err)
	}
	return next, nil
}

// ToggleTheme flips light and dark.
func (s *SettingsService) ToggleTheme(ctx context.Context, userID int64) (core.Theme, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return "", notFound("toggle theme", err)
	}
	theme := p.Theme.Toggle()
	_, err = s.Update(ctx, userID, ProfilePatch{Theme: &theme})
	return theme, err
}
