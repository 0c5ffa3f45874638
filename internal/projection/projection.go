// Package projection turns stored messages into the ordered, grouped sequence a
// client renders, and answers the unread and search questions about it.
package projection

import (
	"slices"
	"sort"
	"strings"

	"github.com/vedran77/hive/internal/compose"
	"github.com/vedran77/hive/internal/domain"
)

// GroupingThreshold is the largest gap, in milliseconds, between two messages
// of one sender that still share a header.
const GroupingThreshold domain.Millis = 60_000

type DisplayMessage struct {
	domain.Message
	ShowHeader bool `json:"show_header"`
}

// Normalize fills absent optional fields with their defaults.
func Normalize(m *domain.Message) {
	if m.Reactions == nil {
		m.Reactions = map[string][]string{}
	}
	if m.MentionedUserIDs == nil {
		m.MentionedUserIDs = []string{}
	}
	if m.ReadBy == nil {
		m.ReadBy = []string{}
	}
}

// ShouldShowFullHeader reports whether curr starts a new visual group after prev.
func ShouldShowFullHeader(curr, prev *domain.Message) bool {
	switch {
	case prev == nil:
		return true
	case curr.SenderID != prev.SenderID:
		return true
	case curr.Timestamp-prev.Timestamp > GroupingThreshold:
		return true
	case curr.ReplyToMessageID != prev.ReplyToMessageID:
		return true
	case curr.IsForwarded != prev.IsForwarded:
		return true
	}
	return false
}

// SortByTimestamp orders msgs ascending, ties broken by id.
func SortByTimestamp(msgs []domain.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].Timestamp != msgs[j].Timestamp {
			return msgs[i].Timestamp < msgs[j].Timestamp
		}
		return msgs[i].ID < msgs[j].ID
	})
}

// Project orders msgs, applies the viewer's restricted words to text and reply
// snippets, and marks where headers are shown. Stored messages are not changed.
func Project(msgs []domain.Message, viewerWords []domain.RestrictedWord) []DisplayMessage {
	ordered := slices.Clone(msgs)
	SortByTimestamp(ordered)

	out := make([]DisplayMessage, len(ordered))
	for i := range ordered {
		m := ordered[i]
		Normalize(&m)
		if len(viewerWords) > 0 {
			if m.Type == domain.MessageText {
				m.Text = compose.Censor(m.Text, viewerWords)
			}
			if m.ReplyToTextSnippet != "" {
				m.ReplyToTextSnippet = compose.Censor(m.ReplyToTextSnippet, viewerWords)
			}
		}
		var prev *domain.Message
		if i > 0 {
			prev = &ordered[i-1]
		}
		out[i] = DisplayMessage{Message: m, ShowHeader: ShouldShowFullHeader(&ordered[i], prev)}
	}
	return out
}

// Search keeps messages whose text, file name, sender, GIF description or
// reply/forward metadata contains term, ignoring case. Text and reply snippets
// are matched as the viewer sees them after censoring with viewerWords. An
// empty term keeps all.
func Search(msgs []domain.Message, term string, viewerWords []domain.RestrictedWord) []domain.Message {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return msgs
	}
	var out []domain.Message
	for _, m := range msgs {
		text, snippet := m.Text, m.ReplyToTextSnippet
		if len(viewerWords) > 0 {
			if m.Type == domain.MessageText {
				text = compose.Censor(text, viewerWords)
			}
			snippet = compose.Censor(snippet, viewerWords)
		}
		fields := []string{
			text,
			m.FileName,
			m.SenderName,
			m.GIFContentDescription,
			m.ReplyToSenderName,
			snippet,
			m.ForwardedFromSenderName,
		}
		for _, f := range fields {
			if f != "" && strings.Contains(strings.ToLower(f), term) {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// PinnedOnly keeps pinned messages, ascending by timestamp whatever the input order.
func PinnedOnly(msgs []domain.Message) []domain.Message {
	var out []domain.Message
	for _, m := range msgs {
		if m.IsPinned {
			out = append(out, m)
		}
	}
	SortByTimestamp(out)
	return out
}

// IsUnread applies to direct messages: a message is unread by user if someone
// else sent it and user is not in ReadBy.
func IsUnread(m *domain.Message, userID string) bool {
	return m.SenderID != userID && !slices.Contains(m.ReadBy, userID)
}

func UnreadCount(msgs []domain.Message, userID string) int {
	n := 0
	for i := range msgs {
		if IsUnread(&msgs[i], userID) {
			n++
		}
	}
	return n
}
