package domain

// Conversation is a direct-message thread. The id is derived from the sorted
// participant ids; a self-conversation lists the same id twice.
type Conversation struct {
	ID                   string            `json:"id"`
	Participants         []string          `json:"participants"`
	ParticipantNames     map[string]string `json:"participant_names"`
	ParticipantAvatars   map[string]string `json:"participant_avatars"`
	LastMessage          string            `json:"last_message"`
	LastMessageTimestamp Millis            `json:"last_message_timestamp"`
	CreatedAt            Millis            `json:"created_at"`
}

// ConversationSummary is a conversation as listed for one participant.
type ConversationSummary struct {
	Conversation
	PeerID      string `json:"peer_id"`
	PeerName    string `json:"peer_name"`
	PeerAvatar  string `json:"peer_avatar,omitempty"`
	UnreadCount int    `json:"unread_count"`
}
