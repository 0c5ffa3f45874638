package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vedran77/hive/internal/compose"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/identity"
	"github.com/vedran77/hive/internal/media"
	"github.com/vedran77/hive/internal/membership"
	"github.com/vedran77/hive/internal/repository"
)

const DefaultChannelID = "general"

var (
	ErrCommunityNotFound      = errors.New("community not found")
	ErrOpenCommunityImmutable = errors.New("the open community cannot be deleted")
)

// RoleNotifier is told about promotions and demotions.
type RoleNotifier interface {
	NotifyRoleChange(ctx context.Context, community *domain.Community, actor identity.Identity, targetID string, out membership.Outcome) error
}

// MembershipNotifier is told when a user leaves, is kicked or is banned.
type MembershipNotifier interface {
	NotifyRemoved(ctx context.Context, community *domain.Community, targetID string)
}

type CommunityService struct {
	communityRepo repository.CommunityRepository
	userRepo      repository.UserRepository
	rules         membership.Rules
	media         media.Store
	notifiers     []RoleNotifier
	removals      MembershipNotifier
	log           logrus.FieldLogger
}

func NewCommunityService(
	communityRepo repository.CommunityRepository,
	userRepo repository.UserRepository,
	rules membership.Rules,
	mediaStore media.Store,
	log logrus.FieldLogger,
) *CommunityService {
	return &CommunityService{
		communityRepo: communityRepo,
		userRepo:      userRepo,
		rules:         rules,
		media:         mediaStore,
		log:           log,
	}
}

// SetNotifier sets the role change notifiers (optional dependency).
func (s *CommunityService) SetNotifier(ns ...RoleNotifier) {
	s.notifiers = ns
}

// SetMembershipNotifier sets the removal notifier (optional dependency).
func (s *CommunityService) SetMembershipNotifier(n MembershipNotifier) {
	s.removals = n
}

type CreateCommunityInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	IsPrivate   bool     `json:"is_private"`
	Tags        []string `json:"tags"`
}

type UpdateCommunityInput struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	LogoURL     *string   `json:"logo_url"`
	BannerURL   *string   `json:"banner_url"`
	Tags        *[]string `json:"tags"`
	IsPrivate   *bool     `json:"is_private"`
}

func (s *CommunityService) Create(ctx context.Context, userID string, input CreateCommunityInput) (*domain.Community, error) {
	c := &domain.Community{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		OwnerID:     userID,
		IsPrivate:   input.IsPrivate,
		Tags:        cleanList(input.Tags),
		Permissions: domain.DefaultPermissions(),
		CreatedAt:   domain.Now(),
	}
	membership.Normalize(c)

	if err := s.communityRepo.Create(ctx, c, []domain.Channel{defaultChannel(c)}); err != nil {
		return nil, fmt.Errorf("creating community: %w", err)
	}
	return c, nil
}

// EnsureOpenCommunity creates the open community and its general channel if
// they do not exist yet.
func (s *CommunityService) EnsureOpenCommunity(ctx context.Context, ownerID, name string) (*domain.Community, error) {
	existing, err := s.communityRepo.GetByID(ctx, s.rules.OpenCommunityID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	c := &domain.Community{
		ID:          s.rules.OpenCommunityID,
		Name:        name,
		Description: "Everyone is welcome here.",
		OwnerID:     ownerID,
		Permissions: domain.DefaultPermissions(),
		CreatedAt:   domain.Now(),
	}
	membership.Normalize(c)

	err = s.communityRepo.Create(ctx, c, []domain.Channel{defaultChannel(c)})
	if errors.Is(err, repository.ErrDuplicate) {
		return s.communityRepo.GetByID(ctx, c.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("creating open community: %w", err)
	}
	s.log.WithField("community_id", c.ID).Info("created open community")
	return c, nil
}

func defaultChannel(c *domain.Community) domain.Channel {
	return domain.Channel{
		ID:          DefaultChannelID,
		CommunityID: c.ID,
		Name:        DefaultChannelID,
		Type:        domain.ChannelTypeText,
		IconName:    domain.IconHash,
		CreatedAt:   c.CreatedAt,
		CreatedBy:   c.OwnerID,
	}
}

// Get hides private communities from outsiders behind ErrCommunityNotFound.
func (s *CommunityService) Get(ctx context.Context, userID, id string) (*domain.Community, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.rules.CanView(c, userID) {
		return nil, ErrCommunityNotFound
	}
	return c, nil
}

func (s *CommunityService) ListVisible(ctx context.Context, userID string) ([]domain.Community, error) {
	all, err := s.communityRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Community, 0, len(all))
	for i := range all {
		membership.Normalize(&all[i])
		if s.rules.CanView(&all[i], userID) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (s *CommunityService) Update(ctx context.Context, userID, id string, input UpdateCommunityInput) (*domain.Community, error) {
	c, err := s.mutate(ctx, id, func(c *domain.Community) error {
		if !s.rules.Capabilities(c, userID).CanManageServer {
			return membership.ErrInsufficientRole
		}
		if input.Name != nil {
			c.Name = strings.TrimSpace(*input.Name)
		}
		if input.Description != nil {
			c.Description = strings.TrimSpace(*input.Description)
		}
		if input.LogoURL != nil {
			c.LogoURL = *input.LogoURL
		}
		if input.BannerURL != nil {
			c.BannerURL = *input.BannerURL
		}
		if input.Tags != nil {
			c.Tags = cleanList(*input.Tags)
		}
		if input.IsPrivate != nil && !s.rules.IsOpen(c) {
			c.IsPrivate = *input.IsPrivate
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// UploadLogo stores an image and points the community at it.
func (s *CommunityService) UploadLogo(ctx context.Context, userID, id string, f media.File) (*domain.Community, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.rules.Capabilities(c, userID).CanManageServer {
		return nil, membership.ErrInsufficientRole
	}
	_, url, err := upload(ctx, s.media, compose.CommunityLogos, f, "communities/"+id)
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, userID, id, UpdateCommunityInput{LogoURL: &url})
}

func (s *CommunityService) Delete(ctx context.Context, userID, id string) error {
	c, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if s.rules.IsOpen(c) {
		return ErrOpenCommunityImmutable
	}
	if c.OwnerID != userID {
		return membership.ErrInsufficientRole
	}
	if err := s.communityRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting community: %w", err)
	}
	return nil
}

func (s *CommunityService) Join(ctx context.Context, userID, id string) (*domain.Community, error) {
	c, _, err := s.applyRoles(ctx, id, func(c *domain.Community) (membership.Outcome, error) {
		return s.rules.Join(c, userID)
	})
	return c, err
}

func (s *CommunityService) Leave(ctx context.Context, userID, id string) (*domain.Community, error) {
	return s.remove(ctx, id, userID, func(c *domain.Community) (membership.Outcome, error) {
		return s.rules.Leave(c, userID)
	})
}

func (s *CommunityService) AddMember(ctx context.Context, actorID, id, targetID string) (*domain.Community, error) {
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrUserNotFound
	}
	c, _, err := s.applyRoles(ctx, id, func(c *domain.Community) (membership.Outcome, error) {
		return s.rules.AddMember(c, actorID, targetID)
	})
	return c, err
}

func (s *CommunityService) Promote(ctx context.Context, actor identity.Identity, id, targetID string) (*domain.Community, error) {
	return s.changeRole(ctx, actor, id, targetID, s.rules.Promote)
}

func (s *CommunityService) Demote(ctx context.Context, actor identity.Identity, id, targetID string) (*domain.Community, error) {
	return s.changeRole(ctx, actor, id, targetID, s.rules.Demote)
}

func (s *CommunityService) changeRole(
	ctx context.Context,
	actor identity.Identity,
	id, targetID string,
	apply func(c *domain.Community, actorID, targetID string) (membership.Outcome, error),
) (*domain.Community, error) {
	c, out, err := s.applyRoles(ctx, id, func(c *domain.Community) (membership.Outcome, error) {
		return apply(c, actor.UID, targetID)
	})
	if err != nil {
		return nil, err
	}
	if !out.Changed {
		return c, nil
	}
	for _, n := range s.notifiers {
		if err := n.NotifyRoleChange(ctx, c, actor, targetID, out); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"community_id": id,
				"target_id":    targetID,
			}).Warn("role change notification failed")
		}
	}
	return c, nil
}

func (s *CommunityService) Kick(ctx context.Context, actorID, id, targetID string) (*domain.Community, error) {
	return s.remove(ctx, id, targetID, func(c *domain.Community) (membership.Outcome, error) {
		return s.rules.Kick(c, actorID, targetID)
	})
}

func (s *CommunityService) Ban(ctx context.Context, actorID, id, targetID string) (*domain.Community, error) {
	return s.remove(ctx, id, targetID, func(c *domain.Community) (membership.Outcome, error) {
		return s.rules.Ban(c, actorID, targetID)
	})
}

func (s *CommunityService) remove(ctx context.Context, id, targetID string, fn func(c *domain.Community) (membership.Outcome, error)) (*domain.Community, error) {
	c, out, err := s.applyRoles(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	if out.Changed && s.removals != nil {
		s.removals.NotifyRemoved(ctx, c, targetID)
	}
	return c, nil
}

func (s *CommunityService) Unban(ctx context.Context, actorID, id, targetID string) (*domain.Community, error) {
	c, _, err := s.applyRoles(ctx, id, func(c *domain.Community) (membership.Outcome, error) {
		return s.rules.Unban(c, actorID, targetID)
	})
	return c, err
}

// ListMembers lists the owner first, then admins, moderators and members,
// with display names filled in where a user document exists.
func (s *CommunityService) ListMembers(ctx context.Context, userID, id string) ([]domain.CommunityMember, error) {
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	members := s.rules.Members(c)
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	users, err := s.userRepo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range members {
		if u, ok := users[members[i].UserID]; ok {
			members[i].DisplayName = u.DisplayName
			members[i].AvatarURL = u.AvatarURL
		}
	}
	return members, nil
}

func (s *CommunityService) load(ctx context.Context, id string) (*domain.Community, error) {
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

// applyRoles runs a membership mutation in a transaction. No-op outcomes skip the write.
func (s *CommunityService) applyRoles(ctx context.Context, id string, fn func(c *domain.Community) (membership.Outcome, error)) (*domain.Community, membership.Outcome, error) {
	var out membership.Outcome
	c, err := s.mutate(ctx, id, func(c *domain.Community) error {
		o, err := fn(c)
		if err != nil {
			return err
		}
		out = o
		if !o.Changed {
			return repository.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return nil, membership.Outcome{}, err
	}
	return c, out, nil
}

func (s *CommunityService) mutate(ctx context.Context, id string, fn func(c *domain.Community) error) (*domain.Community, error) {
	c, err := s.communityRepo.Mutate(ctx, id, func(c *domain.Community) error {
		membership.Normalize(c)
		return fn(c)
	})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCommunityNotFound
	}
	return c, nil
}
