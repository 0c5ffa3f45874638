package service

import (
	"context"

	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/repository"
)

// viewerWords loads the restricted words text is rendered through for userID.
func viewerWords(ctx context.Context, repo repository.SettingsRepository, userID string) ([]domain.RestrictedWord, error) {
	words, err := repo.GetRestrictedWords(ctx, userID)
	if err != nil || words == nil {
		return nil, err
	}
	return words.Words, nil
}
