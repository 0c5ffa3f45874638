package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/vedran77/hive/internal/compose"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/media"
	"github.com/vedran77/hive/internal/repository"
)

// ProfileService manages the documents a user owns about themselves: the
// profile, mute settings and restricted words.
type ProfileService struct {
	userRepo     repository.UserRepository
	settingsRepo repository.SettingsRepository
	media        media.Store
}

func NewProfileService(userRepo repository.UserRepository, settingsRepo repository.SettingsRepository, mediaStore media.Store) *ProfileService {
	return &ProfileService{
		userRepo:     userRepo,
		settingsRepo: settingsRepo,
		media:        mediaStore,
	}
}

type UpdateProfileInput struct {
	DisplayName *string         `json:"display_name"`
	Bio         *string         `json:"bio"`
	Hobbies     *[]string       `json:"hobbies"`
	Tags        *[]string       `json:"tags"`
	Privacy     *domain.Privacy `json:"privacy"`
}

// ProfileView is a profile as another user may see it.
type ProfileView struct {
	User    domain.User    `json:"user"`
	Profile domain.Profile `json:"profile"`
}

func (s *ProfileService) GetProfile(ctx context.Context, viewerID, userID string) (*ProfileView, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	profile, err := s.settingsRepo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = &domain.Profile{UserID: userID, Hobbies: []string{}, Tags: []string{}}
	}

	view := &ProfileView{User: *user, Profile: *profile}
	if viewerID != userID {
		if !profile.Privacy.ShowEmail {
			view.User.Email = ""
		}
		if !profile.Privacy.ShowHobbies {
			view.Profile.Hobbies = []string{}
		}
		if !profile.Privacy.ShowTags {
			view.Profile.Tags = []string{}
		}
	}
	return view, nil
}

// UpdateProfile creates the profile on first edit.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*ProfileView, error) {
	profile, err := s.settingsRepo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = &domain.Profile{UserID: userID, Hobbies: []string{}, Tags: []string{}}
	}

	if input.Bio != nil {
		profile.Bio = strings.TrimSpace(*input.Bio)
	}
	if input.Hobbies != nil {
		profile.Hobbies = cleanList(*input.Hobbies)
	}
	if input.Tags != nil {
		profile.Tags = cleanList(*input.Tags)
	}
	if input.Privacy != nil {
		profile.Privacy = *input.Privacy
	}
	profile.UserID = userID
	profile.UpdatedAt = domain.Now()

	if err := s.settingsRepo.SaveProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("saving profile: %w", err)
	}

	if input.DisplayName != nil {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
		user.DisplayName = strings.TrimSpace(*input.DisplayName)
		user.UpdatedAt = domain.Now()
		if err := s.userRepo.Save(ctx, user); err != nil {
			return nil, fmt.Errorf("updating user: %w", err)
		}
	}

	return s.GetProfile(ctx, userID, userID)
}

func (s *ProfileService) UploadAvatar(ctx context.Context, userID string, f media.File) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	_, url, err := upload(ctx, s.media, compose.Avatars, f, "avatars/"+userID)
	if err != nil {
		return nil, err
	}

	user.AvatarURL = url
	user.UpdatedAt = domain.Now()
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	return user, nil
}

// GetMuteSettings returns empty settings when none were saved.
func (s *ProfileService) GetMuteSettings(ctx context.Context, userID string) (*domain.MuteSettings, error) {
	settings, err := s.settingsRepo.GetMuteSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = &domain.MuteSettings{}
	}
	normalizeMute(settings)
	return settings, nil
}

func (s *ProfileService) UpdateMuteSettings(ctx context.Context, userID string, settings domain.MuteSettings) (*domain.MuteSettings, error) {
	settings.MutedUsers = cleanList(settings.MutedUsers)
	settings.MutedUsersNotifications = cleanList(settings.MutedUsersNotifications)
	settings.MutedConversations = cleanList(settings.MutedConversations)
	settings.MutedCommunities = cleanList(settings.MutedCommunities)
	if err := s.settingsRepo.SaveMuteSettings(ctx, userID, &settings); err != nil {
		return nil, fmt.Errorf("saving mute settings: %w", err)
	}
	return &settings, nil
}

func (s *ProfileService) ListRestrictedWords(ctx context.Context, userID string) ([]domain.RestrictedWord, error) {
	words, err := s.settingsRepo.GetRestrictedWords(ctx, userID)
	if err != nil {
		return nil, err
	}
	if words == nil || words.Words == nil {
		return []domain.RestrictedWord{}, nil
	}
	return words.Words, nil
}

// SetRestrictedWords replaces the whole list. Order matters: words are applied in sequence.
func (s *ProfileService) SetRestrictedWords(ctx context.Context, userID string, words []domain.RestrictedWord) ([]domain.RestrictedWord, error) {
	out := make([]domain.RestrictedWord, 0, len(words))
	for _, w := range words {
		w.Word = strings.TrimSpace(w.Word)
		if w.Word == "" {
			continue
		}
		if w.Replacement == "" {
			w.Replacement = "*"
		}
		out = append(out, w)
	}
	if err := s.settingsRepo.SaveRestrictedWords(ctx, userID, &domain.RestrictedWords{Words: out}); err != nil {
		return nil, fmt.Errorf("saving restricted words: %w", err)
	}
	return out, nil
}

func normalizeMute(m *domain.MuteSettings) {
	for _, list := range []*[]string{&m.MutedUsers, &m.MutedUsersNotifications, &m.MutedConversations, &m.MutedCommunities} {
		if *list == nil {
			*list = []string{}
		}
	}
}

// cleanList trims entries and drops blanks and duplicates, keeping order.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
