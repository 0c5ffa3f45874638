package compose

import (
	"regexp"
	"slices"
	"strings"
)

var mentionPattern = regexp.MustCompile(`@([\w.\-]+)`)

// Roster maps display names of a thread's participants to user ids.
type Roster map[string]string

// ExtractMentions resolves @name tokens against roster, in order of first
// appearance. Names match exactly; a token with trailing dots also matches
// the trimmed name. Replying to someone else mentions them implicitly.
func ExtractMentions(text string, roster Roster, replyToSenderID, senderID string) []string {
	out := []string{}
	add := func(id string) {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		token := m[1]
		if id, ok := roster[token]; ok {
			add(id)
			continue
		}
		if trimmed := strings.TrimRight(token, "."); trimmed != token {
			add(roster[trimmed])
		}
	}
	if replyToSenderID != "" && replyToSenderID != senderID {
		add(replyToSenderID)
	}
	return out
}
