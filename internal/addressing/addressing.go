// Package addressing derives thread identifiers and store paths. Both
// participants of a direct conversation compute the same id without a lookup.
package addressing

import (
	"errors"
	"sort"
	"strings"
)

const (
	CommunitiesCollection    = "communities"
	ChannelsCollection       = "channels"
	MessagesCollection       = "messages"
	DirectMessagesCollection = "direct_messages"
	UsersCollection          = "users"
	ActivityCollection       = "activityItems"
	SettingsCollection       = "settings"
	CredentialsCollection    = "credentials"
	RetentionRunsCollection  = "retention_runs"
)

var ErrInvalidConversationID = errors.New("invalid conversation id")

// DirectConversationID sorts the two ids and joins them with "_". It is
// commutative, and a == b names the user's Saved Messages thread.
func DirectConversationID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return ids[0] + "_" + ids[1]
}

// ParseConversationID splits an id produced by DirectConversationID. User ids
// must not contain "_" for the split to be unambiguous; generated ids are uuids.
func ParseConversationID(id string) (string, string, error) {
	a, b, ok := strings.Cut(id, "_")
	if !ok || a == "" || b == "" || strings.Contains(b, "_") {
		return "", "", ErrInvalidConversationID
	}
	if a > b {
		return "", "", ErrInvalidConversationID
	}
	return a, b, nil
}

// Peer returns the participant of conversation id that is not user.
func Peer(id, user string) (string, error) {
	a, b, err := ParseConversationID(id)
	if err != nil {
		return "", err
	}
	switch user {
	case a:
		return b, nil
	case b:
		return a, nil
	}
	return "", ErrInvalidConversationID
}

func CommunityChannelPath(communityID, channelID string) string {
	return ChannelPath(communityID, channelID)
}

func CommunityPath(communityID string) string {
	return CommunitiesCollection + "/" + communityID
}

func ChannelsPath(communityID string) string {
	return CommunityPath(communityID) + "/" + ChannelsCollection
}

func ChannelPath(communityID, channelID string) string {
	return ChannelsPath(communityID) + "/" + channelID
}

func ConversationPath(conversationID string) string {
	return DirectMessagesCollection + "/" + conversationID
}

func UserPath(userID string) string {
	return UsersCollection + "/" + userID
}

func ActivityItemsPath(userID string) string {
	return UserPath(userID) + "/" + ActivityCollection
}

func ActivityItemPath(userID, itemID string) string {
	return ActivityItemsPath(userID) + "/" + itemID
}

func SettingsPath(userID, name string) string {
	return UserPath(userID) + "/" + SettingsCollection + "/" + name
}

func ProfilePath(userID string) string {
	return SettingsPath(userID, "profile")
}

func MuteSettingsPath(userID string) string {
	return SettingsPath(userID, "mute")
}

func RestrictedWordsPath(userID string) string {
	return SettingsPath(userID, "restricted_words")
}

func CredentialsPath(email string) string {
	return CredentialsCollection + "/" + strings.ToLower(email)
}

func RetentionRunPath(runID string) string {
	return RetentionRunsCollection + "/" + runID
}
