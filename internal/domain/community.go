package domain

type Role string

const (
	RoleOwner     Role = "owner"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
	RoleGuest     Role = "guest"
)

// Rank orders roles; guest is 0.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 4
	case RoleAdmin:
		return 3
	case RoleModerator:
		return 2
	case RoleMember:
		return 1
	}
	return 0
}

func (r Role) Valid() bool {
	return r.Rank() > 0
}

type Capabilities struct {
	CanInviteMembers   bool `json:"can_invite_members"`
	CanCreateChannels  bool `json:"can_create_channels"`
	CanDeleteMessages  bool `json:"can_delete_messages"`
	CanMentionEveryone bool `json:"can_mention_everyone"`
	CanManageRoles     bool `json:"can_manage_roles"`
	CanKickMembers     bool `json:"can_kick_members"`
	CanBanMembers      bool `json:"can_ban_members"`
	CanManageServer    bool `json:"can_manage_server"`
}

func DefaultPermissions() map[Role]Capabilities {
	return map[Role]Capabilities{
		RoleMember: {
			CanInviteMembers: true,
		},
		RoleModerator: {
			CanInviteMembers:  true,
			CanDeleteMessages: true,
			CanKickMembers:    true,
		},
		RoleAdmin: {
			CanInviteMembers:   true,
			CanCreateChannels:  true,
			CanDeleteMessages:  true,
			CanMentionEveryone: true,
			CanManageRoles:     true,
			CanKickMembers:     true,
			CanBanMembers:      true,
		},
		RoleOwner: {
			CanInviteMembers:   true,
			CanCreateChannels:  true,
			CanDeleteMessages:  true,
			CanMentionEveryone: true,
			CanManageRoles:     true,
			CanKickMembers:     true,
			CanBanMembers:      true,
			CanManageServer:    true,
		},
	}
}

// Community role sets are pairwise disjoint and never contain OwnerID.
type Community struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	LogoURL     string                `json:"logo_url,omitempty"`
	BannerURL   string                `json:"banner_url,omitempty"`
	OwnerID     string                `json:"owner_id"`
	Admins      []string              `json:"admins"`
	Moderators  []string              `json:"moderators"`
	Members     []string              `json:"members"`
	BannedUsers []string              `json:"banned_users"`
	MemberCount int                   `json:"member_count"`
	IsPrivate   bool                  `json:"is_private"`
	Tags        []string              `json:"tags"`
	Permissions map[Role]Capabilities `json:"permissions"`
	CreatedAt   Millis                `json:"created_at"`
}

// CommunityMember is one row of a member listing.
type CommunityMember struct {
	UserID      string `json:"user_id"`
	Role        Role   `json:"role"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}
