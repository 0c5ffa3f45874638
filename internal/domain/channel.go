package domain

const ChannelTypeText = "text"

// IconName is a symbolic channel icon; clients map it to an asset.
type IconName string

const (
	IconHash      IconName = "hash"
	IconMegaphone IconName = "megaphone"
	IconChat      IconName = "chat"
	IconCode      IconName = "code"
	IconMusic     IconName = "music"
	IconGaming    IconName = "gaming"
	IconBook      IconName = "book"
	IconStar      IconName = "star"
	IconLock      IconName = "lock"
)

var icons = map[IconName]struct{}{
	IconHash: {}, IconMegaphone: {}, IconChat: {}, IconCode: {}, IconMusic: {},
	IconGaming: {}, IconBook: {}, IconStar: {}, IconLock: {},
}

func (i IconName) Valid() bool {
	_, ok := icons[i]
	return ok
}

type ChannelPermissions struct {
	AllowedRoles        []Role        `json:"allowed_roles,omitempty"`
	AllowedMessageTypes []MessageType `json:"allowed_message_types,omitempty"`
}

type Channel struct {
	ID          string              `json:"id"`
	CommunityID string              `json:"community_id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Type        string              `json:"type"`
	IconName    IconName            `json:"icon_name"`
	CreatedAt   Millis              `json:"created_at"`
	CreatedBy   string              `json:"created_by"`
	Permissions *ChannelPermissions `json:"permissions,omitempty"`
}
