package domain

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
	MessageGIF   MessageType = "gif"
	MessageVoice MessageType = "voice_message"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageGIF, MessageVoice:
		return true
	}
	return false
}

// Message payload fields are set according to Type: Text for text, the File
// fields for image/file/voice_message, the GIF fields for gif.
type Message struct {
	ID              string      `json:"id"`
	SenderID        string      `json:"sender_id"`
	SenderName      string      `json:"sender_name"`
	SenderAvatarURL string      `json:"sender_avatar_url,omitempty"`
	Timestamp       Millis      `json:"timestamp"`
	Type            MessageType `json:"type"`

	Text string `json:"text,omitempty"`

	FileURL  string `json:"file_url,omitempty"`
	FileName string `json:"file_name,omitempty"`
	FileType string `json:"file_type,omitempty"`

	GIFURL                string `json:"gif_url,omitempty"`
	GIFID                 string `json:"gif_id,omitempty"`
	GIFTinyURL            string `json:"gif_tiny_url,omitempty"`
	GIFContentDescription string `json:"gif_content_description,omitempty"`

	IsPinned  bool                `json:"is_pinned"`
	Reactions map[string][]string `json:"reactions"`

	ReplyToMessageID   string `json:"reply_to_message_id,omitempty"`
	ReplyToSenderID    string `json:"reply_to_sender_id,omitempty"`
	ReplyToSenderName  string `json:"reply_to_sender_name,omitempty"`
	ReplyToTextSnippet string `json:"reply_to_text_snippet,omitempty"`

	IsForwarded             bool   `json:"is_forwarded,omitempty"`
	ForwardedFromSenderName string `json:"forwarded_from_sender_name,omitempty"`

	MentionedUserIDs []string `json:"mentioned_user_ids"`
	ReadBy           []string `json:"read_by,omitempty"`
}

func (m *Message) IsReply() bool {
	return m.ReplyToMessageID != ""
}

// GIF carries the ids and urls returned by the GIF provider.
type GIF struct {
	URL                string `json:"gif_url"`
	ID                 string `json:"gif_id"`
	TinyURL            string `json:"gif_tiny_url"`
	ContentDescription string `json:"gif_content_description"`
}
