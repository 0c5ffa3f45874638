package addressing

import "errors"

var ErrInvalidThread = errors.New("invalid thread")

// Thread is a message stream: a community channel or a direct conversation.
type Thread struct {
	CommunityID    string `json:"community_id,omitempty"`
	ChannelID      string `json:"channel_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

func ChannelThread(communityID, channelID string) Thread {
	return Thread{CommunityID: communityID, ChannelID: channelID}
}

func DirectThread(conversationID string) Thread {
	return Thread{ConversationID: conversationID}
}

func (t Thread) IsDirect() bool {
	return t.ConversationID != ""
}

func (t Thread) Validate() error {
	switch {
	case t.ConversationID != "" && t.CommunityID == "" && t.ChannelID == "":
		_, _, err := ParseConversationID(t.ConversationID)
		return err
	case t.ConversationID == "" && t.CommunityID != "" && t.ChannelID != "":
		return nil
	}
	return ErrInvalidThread
}

// Path is the document that owns the thread's messages.
func (t Thread) Path() string {
	if t.IsDirect() {
		return ConversationPath(t.ConversationID)
	}
	return ChannelPath(t.CommunityID, t.ChannelID)
}

func (t Thread) MessagesCollection() string {
	return t.Path() + "/" + MessagesCollection
}

func (t Thread) MessagePath(messageID string) string {
	return t.MessagesCollection() + "/" + messageID
}

// Key identifies the thread in activity items and subscriptions.
func (t Thread) Key() string {
	if t.IsDirect() {
		return "dm:" + t.ConversationID
	}
	return "ch:" + t.CommunityID + "/" + t.ChannelID
}
