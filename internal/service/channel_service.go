package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/membership"
	"github.com/vedran77/hive/internal/repository"
)

var (
	ErrChannelNotFound  = errors.New("channel not found")
	ErrChannelNameTaken = errors.New("channel name already exists in this community")
	ErrAccessDenied     = errors.New("access denied")
)

type ChannelService struct {
	channelRepo   repository.ChannelRepository
	communityRepo repository.CommunityRepository
	rules         membership.Rules
}

func NewChannelService(channelRepo repository.ChannelRepository, communityRepo repository.CommunityRepository, rules membership.Rules) *ChannelService {
	return &ChannelService{
		channelRepo:   channelRepo,
		communityRepo: communityRepo,
		rules:         rules,
	}
}

type CreateChannelInput struct {
	Name                string               `json:"name"`
	Description         string               `json:"description"`
	IconName            domain.IconName      `json:"icon_name"`
	AllowedRoles        []domain.Role        `json:"allowed_roles"`
	AllowedMessageTypes []domain.MessageType `json:"allowed_message_types"`
}

func (s *ChannelService) Create(ctx context.Context, userID, communityID string, input CreateChannelInput) (*domain.Channel, error) {
	c, err := s.community(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if !s.rules.Capabilities(c, userID).CanCreateChannels {
		return nil, membership.ErrInsufficientRole
	}

	name := strings.TrimSpace(input.Name)
	existing, err := s.channelRepo.ListByCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	for _, ch := range existing {
		if strings.EqualFold(ch.Name, name) {
			return nil, ErrChannelNameTaken
		}
	}

	icon := input.IconName
	if icon == "" {
		icon = domain.IconHash
	}
	ch := &domain.Channel{
		ID:          uuid.NewString(),
		CommunityID: communityID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Type:        domain.ChannelTypeText,
		IconName:    icon,
		CreatedAt:   domain.Now(),
		CreatedBy:   userID,
	}
	if len(input.AllowedRoles) > 0 || len(input.AllowedMessageTypes) > 0 {
		ch.Permissions = &domain.ChannelPermissions{
			AllowedRoles:        input.AllowedRoles,
			AllowedMessageTypes: input.AllowedMessageTypes,
		}
	}

	if err := s.channelRepo.Create(ctx, ch); err != nil {
		return nil, fmt.Errorf("creating channel: %w", err)
	}
	return ch, nil
}

// List returns the channels the user may open.
func (s *ChannelService) List(ctx context.Context, userID, communityID string) ([]domain.Channel, error) {
	c, err := s.community(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if !s.rules.CanSendMessage(c, userID) {
		return nil, ErrAccessDenied
	}

	channels, err := s.channelRepo.ListByCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Channel, 0, len(channels))
	for i := range channels {
		if s.rules.CanAccessChannel(c, &channels[i], userID) {
			out = append(out, channels[i])
		}
	}
	return out, nil
}

func (s *ChannelService) Get(ctx context.Context, userID, communityID, channelID string) (*domain.Channel, error) {
	c, err := s.community(ctx, communityID)
	if err != nil {
		return nil, err
	}
	ch, err := s.channel(ctx, communityID, channelID)
	if err != nil {
		return nil, err
	}
	if !s.rules.CanAccessChannel(c, ch, userID) {
		return nil, ErrAccessDenied
	}
	return ch, nil
}

// Delete removes the channel and all of its messages.
func (s *ChannelService) Delete(ctx context.Context, userID, communityID, channelID string) error {
	c, err := s.community(ctx, communityID)
	if err != nil {
		return err
	}
	if !s.rules.Capabilities(c, userID).CanCreateChannels {
		return membership.ErrInsufficientRole
	}
	if _, err := s.channel(ctx, communityID, channelID); err != nil {
		return err
	}
	if _, err := s.channelRepo.Delete(ctx, communityID, channelID); err != nil {
		return fmt.Errorf("deleting channel: %w", err)
	}
	return nil
}

func (s *ChannelService) community(ctx context.Context, id string) (*domain.Community, error) {
	c, err := s.communityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCommunityNotFound
	}
	membership.Normalize(c)
	return c, nil
}

func (s *ChannelService) channel(ctx context.Context, communityID, channelID string) (*domain.Channel, error) {
	ch, err := s.channelRepo.GetByID(ctx, communityID, channelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrChannelNotFound
	}
	return ch, nil
}
