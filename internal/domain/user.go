package domain

// User is the identity projection stored at users/{id}.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	CreatedAt   Millis `json:"created_at"`
	UpdatedAt   Millis `json:"updated_at"`
}

// Credentials back the local identity provider, keyed by lower-cased email.
type Credentials struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	CreatedAt    Millis `json:"created_at"`
}

type Privacy struct {
	ShowEmail     bool `json:"show_email"`
	ShowHobbies   bool `json:"show_hobbies"`
	ShowTags      bool `json:"show_tags"`
	ShowCommunity bool `json:"show_communities"`
}

// Profile is created on first edit and only ever changed by its owner.
type Profile struct {
	UserID    string   `json:"user_id"`
	Bio       string   `json:"bio"`
	Hobbies   []string `json:"hobbies"`
	Tags      []string `json:"tags"`
	Privacy   Privacy  `json:"privacy"`
	UpdatedAt Millis   `json:"updated_at"`
}

type MuteSettings struct {
	MutedUsers              []string `json:"muted_users"`
	MutedUsersNotifications []string `json:"muted_users_notifications"`
	MutedConversations      []string `json:"muted_conversations"`
	MutedCommunities        []string `json:"muted_communities"`
	AllowMentionsWhenMuted  bool     `json:"allow_mentions_when_muted"`
}

type RestrictedWord struct {
	Word        string `json:"word"`
	Replacement string `json:"replacement"`
}

type RestrictedWords struct {
	Words []RestrictedWord `json:"words"`
}
