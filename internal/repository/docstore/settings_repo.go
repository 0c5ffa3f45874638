package docstore

import (
	"context"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/store"
)

// SettingsRepo stores the per-user documents under users/{uid}/settings.
type SettingsRepo struct {
	store store.Store
}

func NewSettingsRepo(s store.Store) *SettingsRepo {
	return &SettingsRepo{store: s}
}

func (r *SettingsRepo) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	return get[domain.Profile](ctx, r.store, addressing.ProfilePath(userID))
}

// SaveProfile merges, so the first edit creates the document.
func (r *SettingsRepo) SaveProfile(ctx context.Context, profile *domain.Profile) error {
	return r.store.Set(ctx, addressing.ProfilePath(profile.UserID), profile, store.Merge())
}

func (r *SettingsRepo) GetMuteSettings(ctx context.Context, userID string) (*domain.MuteSettings, error) {
	return get[domain.MuteSettings](ctx, r.store, addressing.MuteSettingsPath(userID))
}

func (r *SettingsRepo) SaveMuteSettings(ctx context.Context, userID string, settings *domain.MuteSettings) error {
	return r.store.Set(ctx, addressing.MuteSettingsPath(userID), settings)
}

func (r *SettingsRepo) GetRestrictedWords(ctx context.Context, userID string) (*domain.RestrictedWords, error) {
	return get[domain.RestrictedWords](ctx, r.store, addressing.RestrictedWordsPath(userID))
}

func (r *SettingsRepo) SaveRestrictedWords(ctx context.Context, userID string, words *domain.RestrictedWords) error {
	return r.store.Set(ctx, addressing.RestrictedWordsPath(userID), words)
}
