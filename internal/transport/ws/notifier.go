package ws

import (
	"context"

	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/identity"
	"github.com/vedran77/hive/internal/membership"
)

// HubNotifier tells connected clients about membership changes. It implements
// service.MembershipNotifier.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// NotifyRemoved closes the user's open threads in the community.
func (n *HubNotifier) NotifyRemoved(_ context.Context, community *domain.Community, targetID string) {
	n.hub.Recheck(community.ID, targetID)
}

// NotifyRoleChange re-checks a demoted user's open thread: a lower role may no
// longer reach a restricted channel.
func (n *HubNotifier) NotifyRoleChange(_ context.Context, community *domain.Community, _ identity.Identity, targetID string, out membership.Outcome) error {
	if out.Changed && out.Next.Rank() < out.Previous.Rank() {
		n.hub.Recheck(community.ID, targetID)
	}
	return nil
}
