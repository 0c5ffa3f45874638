package compose

import (
	"github.com/vedran77/hive/internal/domain"
)

const SnippetLength = 75

// DisplayText is the text shown for a message in previews: its text, or a
// placeholder for non-text types.
func DisplayText(m *domain.Message) string {
	switch m.Type {
	case domain.MessageImage:
		return "Image"
	case domain.MessageFile:
		return "File: " + m.FileName
	case domain.MessageGIF:
		return "GIF"
	case domain.MessageVoice:
		return "Voice Message"
	}
	return m.Text
}

// ReplySnippet truncates the display text to 75 characters, adding "..." when
// something was cut.
func ReplySnippet(m *domain.Message) string {
	return Truncate(DisplayText(m), SnippetLength)
}

func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// ApplyReply copies the reply linkage of original onto m. The snippet is taken
// now and never follows later changes to original.
func ApplyReply(m, original *domain.Message) {
	if original == nil {
		return
	}
	m.ReplyToMessageID = original.ID
	m.ReplyToSenderID = original.SenderID
	m.ReplyToSenderName = original.SenderName
	m.ReplyToTextSnippet = ReplySnippet(original)
}

// Forward builds the copy of original placed in a Saved Messages or direct
// thread. It keeps the payload and the original sender's name.
func Forward(original *domain.Message, forwarderID string) *domain.Message {
	from := original.SenderName
	if original.IsForwarded && original.ForwardedFromSenderName != "" {
		from = original.ForwardedFromSenderName
	}
	return &domain.Message{
		SenderID:                forwarderID,
		SenderName:              original.SenderName,
		SenderAvatarURL:         original.SenderAvatarURL,
		Type:                    original.Type,
		Text:                    original.Text,
		FileURL:                 original.FileURL,
		FileName:                original.FileName,
		FileType:                original.FileType,
		GIFURL:                  original.GIFURL,
		GIFID:                   original.GIFID,
		GIFTinyURL:              original.GIFTinyURL,
		GIFContentDescription:   original.GIFContentDescription,
		IsForwarded:             true,
		ForwardedFromSenderName: from,
		Reactions:               map[string][]string{},
		MentionedUserIDs:        []string{},
	}
}
