// Package membership resolves roles and capabilities inside a community and
// applies role-set changes. Functions here are pure: they read or modify the
// Community they are given and never touch the store.
package membership

import (
	"errors"
	"slices"

	"github.com/vedran77/hive/internal/domain"
)

var (
	ErrOwnerImmutable   = errors.New("the owner cannot be targeted")
	ErrInsufficientRole = errors.New("insufficient role")
	ErrNotMember        = errors.New("user is not a member")
	ErrBanned           = errors.New("user is banned")
	ErrPrivateCommunity = errors.New("community is private")
	ErrAlreadyHighest   = errors.New("user already holds the highest assignable role")
	ErrAlreadyLowest    = errors.New("user already holds the lowest role")
)

// Rules carries the id of the open community every authenticated user can
// message in.
type Rules struct {
	OpenCommunityID string
}

// Outcome describes what a mutation did. Changed is false for no-ops.
type Outcome struct {
	Changed  bool
	Previous domain.Role
	Next     domain.Role
}

func (r Rules) IsOpen(c *domain.Community) bool {
	return c.ID == r.OpenCommunityID
}

// EffectiveRole returns the single highest role the user holds. Outsiders,
// banned users included, are guests.
func (r Rules) EffectiveRole(c *domain.Community, userID string) domain.Role {
	switch {
	case userID == "":
		return domain.RoleGuest
	case c.OwnerID == userID:
		return domain.RoleOwner
	case slices.Contains(c.Admins, userID):
		return domain.RoleAdmin
	case slices.Contains(c.Moderators, userID):
		return domain.RoleModerator
	case slices.Contains(c.Members, userID):
		return domain.RoleMember
	}
	return domain.RoleGuest
}

// Capabilities returns the permission record of the user's effective role.
// Guests have none.
func (r Rules) Capabilities(c *domain.Community, userID string) domain.Capabilities {
	role := r.EffectiveRole(c, userID)
	if role == domain.RoleGuest {
		return domain.Capabilities{}
	}
	if caps, ok := c.Permissions[role]; ok {
		return caps
	}
	return domain.DefaultPermissions()[role]
}

func (r Rules) IsBanned(c *domain.Community, userID string) bool {
	return slices.Contains(c.BannedUsers, userID)
}

func (r Rules) CanSendMessage(c *domain.Community, userID string) bool {
	if userID == "" || r.IsBanned(c, userID) {
		return false
	}
	return r.EffectiveRole(c, userID).Rank() >= domain.RoleMember.Rank() || r.IsOpen(c)
}

// CanView reports whether the community is listed for the user.
func (r Rules) CanView(c *domain.Community, userID string) bool {
	if r.IsOpen(c) || !c.IsPrivate {
		return true
	}
	return r.EffectiveRole(c, userID) != domain.RoleGuest
}

// CanAccessChannel applies the channel's allowedRoles on top of CanSendMessage.
// Guests of the open community are checked as members.
func (r Rules) CanAccessChannel(c *domain.Community, ch *domain.Channel, userID string) bool {
	if !r.CanSendMessage(c, userID) {
		return false
	}
	if ch.Permissions == nil || len(ch.Permissions.AllowedRoles) == 0 {
		return true
	}
	role := r.EffectiveRole(c, userID)
	if role == domain.RoleGuest {
		role = domain.RoleMember
	}
	return slices.Contains(ch.Permissions.AllowedRoles, role)
}

// CanPostType reports whether the channel accepts messages of type t.
func CanPostType(ch *domain.Channel, t domain.MessageType) bool {
	if ch.Permissions == nil || len(ch.Permissions.AllowedMessageTypes) == 0 {
		return true
	}
	return slices.Contains(ch.Permissions.AllowedMessageTypes, t)
}

// Normalize fills absent sets and permissions and recomputes MemberCount.
func Normalize(c *domain.Community) {
	if c.Admins == nil {
		c.Admins = []string{}
	}
	if c.Moderators == nil {
		c.Moderators = []string{}
	}
	if c.Members == nil {
		c.Members = []string{}
	}
	if c.BannedUsers == nil {
		c.BannedUsers = []string{}
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if len(c.Permissions) == 0 {
		c.Permissions = domain.DefaultPermissions()
	}
	recount(c)
}

func recount(c *domain.Community) {
	c.MemberCount = 1 + len(c.Admins) + len(c.Moderators) + len(c.Members)
}

func without(set []string, id string) []string {
	out := make([]string, 0, len(set))
	for _, v := range set {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func with(set []string, id string) []string {
	if slices.Contains(set, id) {
		return set
	}
	return append(set, id)
}

func removeRoles(c *domain.Community, userID string) {
	c.Admins = without(c.Admins, userID)
	c.Moderators = without(c.Moderators, userID)
	c.Members = without(c.Members, userID)
}

func setRole(c *domain.Community, userID string, role domain.Role) {
	removeRoles(c, userID)
	switch role {
	case domain.RoleAdmin:
		c.Admins = append(c.Admins, userID)
	case domain.RoleModerator:
		c.Moderators = append(c.Moderators, userID)
	case domain.RoleMember:
		c.Members = append(c.Members, userID)
	}
	recount(c)
}
