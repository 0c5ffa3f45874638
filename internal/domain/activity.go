package domain

type ActivityType string

const (
	ActivityNewMessage   ActivityType = "new_message"
	ActivityMention      ActivityType = "mention"
	ActivityRolePromoted ActivityType = "role_promoted"
	ActivityRoleDemoted  ActivityType = "role_demoted"
)

// ActivityItem is a per-recipient notification at users/{uid}/activityItems/{id}.
// Either ConversationID or CommunityID+ChannelID correlate it with a thread.
type ActivityItem struct {
	ID             string       `json:"id"`
	Type           ActivityType `json:"type"`
	ActorID        string       `json:"actor_id"`
	ActorName      string       `json:"actor_name"`
	ActorAvatarURL string       `json:"actor_avatar_url,omitempty"`
	ContentSnippet string       `json:"content_snippet"`
	Timestamp      Millis       `json:"timestamp"`
	IsRead         bool         `json:"is_read"`

	ConversationID string `json:"conversation_id,omitempty"`
	CommunityID    string `json:"community_id,omitempty"`
	ChannelID      string `json:"channel_id,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
	ThreadKey      string `json:"thread_key"`

	// role changes
	CommunityName string `json:"community_name,omitempty"`
	Role          Role   `json:"role,omitempty"`
}
