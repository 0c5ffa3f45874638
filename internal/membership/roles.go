package membership

import "github.com/vedran77/hive/internal/domain"

// Promote moves target one step up: member to moderator (admin or owner
// acting), moderator to admin (owner acting).
func (r Rules) Promote(c *domain.Community, actorID, targetID string) (Outcome, error) {
	actor := r.EffectiveRole(c, actorID)
	prev := r.EffectiveRole(c, targetID)

	var next domain.Role
	switch prev {
	case domain.RoleOwner:
		return Outcome{}, ErrOwnerImmutable
	case domain.RoleAdmin:
		return Outcome{}, ErrAlreadyHighest
	case domain.RoleModerator:
		next = domain.RoleAdmin
	case domain.RoleMember:
		next = domain.RoleModerator
	default:
		return Outcome{}, ErrNotMember
	}
	if !canAssign(actor, prev, next) {
		return Outcome{}, ErrInsufficientRole
	}
	setRole(c, targetID, next)
	return Outcome{Changed: true, Previous: prev, Next: next}, nil
}

// Demote moves target one step down: admin to moderator (owner acting),
// moderator to member (admin or owner acting).
func (r Rules) Demote(c *domain.Community, actorID, targetID string) (Outcome, error) {
	actor := r.EffectiveRole(c, actorID)
	prev := r.EffectiveRole(c, targetID)

	var next domain.Role
	switch prev {
	case domain.RoleOwner:
		return Outcome{}, ErrOwnerImmutable
	case domain.RoleAdmin:
		next = domain.RoleModerator
	case domain.RoleModerator:
		next = domain.RoleMember
	case domain.RoleMember:
		return Outcome{}, ErrAlreadyLowest
	default:
		return Outcome{}, ErrNotMember
	}
	if !canAssign(actor, prev, next) {
		return Outcome{}, ErrInsufficientRole
	}
	setRole(c, targetID, next)
	return Outcome{Changed: true, Previous: prev, Next: next}, nil
}

// only the owner touches the admin tier; admins manage moderator<->member
func canAssign(actor, from, to domain.Role) bool {
	if from == domain.RoleAdmin || to == domain.RoleAdmin {
		return actor == domain.RoleOwner
	}
	return actor == domain.RoleOwner || actor == domain.RoleAdmin
}

// Kick removes target from every role set. Kicking a non-member is a no-op.
func (r Rules) Kick(c *domain.Community, actorID, targetID string) (Outcome, error) {
	prev, err := r.checkRemoval(c, actorID, targetID, r.Capabilities(c, actorID).CanKickMembers)
	if err != nil {
		return Outcome{}, err
	}
	if prev == domain.RoleGuest {
		return Outcome{Previous: prev, Next: prev}, nil
	}
	removeRoles(c, targetID)
	recount(c)
	return Outcome{Changed: true, Previous: prev, Next: domain.RoleGuest}, nil
}

// Ban removes target from every role set and records the ban. Banning an
// already banned user is a no-op.
func (r Rules) Ban(c *domain.Community, actorID, targetID string) (Outcome, error) {
	prev, err := r.checkRemoval(c, actorID, targetID, r.Capabilities(c, actorID).CanBanMembers)
	if err != nil {
		return Outcome{}, err
	}
	if prev == domain.RoleGuest && r.IsBanned(c, targetID) {
		return Outcome{Previous: prev, Next: prev}, nil
	}
	removeRoles(c, targetID)
	c.BannedUsers = with(c.BannedUsers, targetID)
	recount(c)
	return Outcome{Changed: true, Previous: prev, Next: domain.RoleGuest}, nil
}

// Unban lifts a ban without restoring membership.
func (r Rules) Unban(c *domain.Community, actorID, targetID string) (Outcome, error) {
	if targetID == c.OwnerID {
		return Outcome{}, ErrOwnerImmutable
	}
	if !r.Capabilities(c, actorID).CanBanMembers {
		return Outcome{}, ErrInsufficientRole
	}
	if !r.IsBanned(c, targetID) {
		return Outcome{Previous: domain.RoleGuest, Next: domain.RoleGuest}, nil
	}
	c.BannedUsers = without(c.BannedUsers, targetID)
	return Outcome{Changed: true, Previous: domain.RoleGuest, Next: domain.RoleGuest}, nil
}

func (r Rules) checkRemoval(c *domain.Community, actorID, targetID string, capable bool) (domain.Role, error) {
	if targetID == c.OwnerID {
		return "", ErrOwnerImmutable
	}
	if !capable {
		return "", ErrInsufficientRole
	}
	target := r.EffectiveRole(c, targetID)
	if r.EffectiveRole(c, actorID).Rank() <= target.Rank() {
		return "", ErrInsufficientRole
	}
	return target, nil
}

// Join adds the user as a member of a public community.
func (r Rules) Join(c *domain.Community, userID string) (Outcome, error) {
	if r.IsBanned(c, userID) {
		return Outcome{}, ErrBanned
	}
	prev := r.EffectiveRole(c, userID)
	if prev != domain.RoleGuest {
		return Outcome{Previous: prev, Next: prev}, nil
	}
	if c.IsPrivate && !r.IsOpen(c) {
		return Outcome{}, ErrPrivateCommunity
	}
	setRole(c, userID, domain.RoleMember)
	return Outcome{Changed: true, Previous: prev, Next: domain.RoleMember}, nil
}

// AddMember lets a member with the invite capability add someone, including
// to a private community.
func (r Rules) AddMember(c *domain.Community, actorID, targetID string) (Outcome, error) {
	if !r.Capabilities(c, actorID).CanInviteMembers {
		return Outcome{}, ErrInsufficientRole
	}
	if r.IsBanned(c, targetID) {
		return Outcome{}, ErrBanned
	}
	prev := r.EffectiveRole(c, targetID)
	if prev != domain.RoleGuest {
		return Outcome{Previous: prev, Next: prev}, nil
	}
	setRole(c, targetID, domain.RoleMember)
	return Outcome{Changed: true, Previous: prev, Next: domain.RoleMember}, nil
}

// Leave removes the user's own role. The owner cannot leave.
func (r Rules) Leave(c *domain.Community, userID string) (Outcome, error) {
	prev := r.EffectiveRole(c, userID)
	switch prev {
	case domain.RoleOwner:
		return Outcome{}, ErrOwnerImmutable
	case domain.RoleGuest:
		return Outcome{Previous: prev, Next: prev}, nil
	}
	removeRoles(c, userID)
	recount(c)
	return Outcome{Changed: true, Previous: prev, Next: domain.RoleGuest}, nil
}

// Members lists every role holder, owner first.
func (r Rules) Members(c *domain.Community) []domain.CommunityMember {
	out := []domain.CommunityMember{{UserID: c.OwnerID, Role: domain.RoleOwner}}
	for _, id := range c.Admins {
		out = append(out, domain.CommunityMember{UserID: id, Role: domain.RoleAdmin})
	}
	for _, id := range c.Moderators {
		out = append(out, domain.CommunityMember{UserID: id, Role: domain.RoleModerator})
	}
	for _, id := range c.Members {
		out = append(out, domain.CommunityMember{UserID: id, Role: domain.RoleMember})
	}
	return out
}
