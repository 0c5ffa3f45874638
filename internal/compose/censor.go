// Package compose holds the pure parts of the message pipeline: payload
// validation, reply snippets, mention extraction, attachment rules and
// restricted-word substitution.
package compose

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vedran77/hive/internal/domain"
)

// Censor applies each restricted word in order, matching whole words without
// regard to case. A single-character replacement is repeated to the length of
// the match; any other replacement is used verbatim.
func Censor(text string, words []domain.RestrictedWord) string {
	for _, w := range words {
		word := strings.TrimSpace(w.Word)
		if word == "" {
			continue
		}
		text = replaceWord(text, word, w.Replacement)
	}
	return text
}

// replaceWord rewrites every match of word that is not part of a longer word.
// Boundaries are only enforced on sides where word itself ends in a letter,
// digit or underscore.
func replaceWord(text, word, replacement string) string {
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(word))
	first, _ := utf8.DecodeRuneInString(word)
	last, _ := utf8.DecodeLastRuneInString(word)
	checkStart, checkEnd := isWordRune(first), isWordRune(last)
	single := utf8.RuneCountInString(replacement) == 1

	var b strings.Builder
	pos := 0
	for pos < len(text) {
		loc := re.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if (checkStart && start > 0 && isWordRune(before)) || (checkEnd && end < len(text) && isWordRune(after)) {
			_, size := utf8.DecodeRuneInString(text[start:])
			b.WriteString(text[pos : start+size])
			pos = start + size
			continue
		}
		b.WriteString(text[pos:start])
		if single {
			b.WriteString(strings.Repeat(replacement, utf8.RuneCountInString(text[start:end])))
		} else {
			b.WriteString(replacement)
		}
		pos = end
	}
	b.WriteString(text[pos:])
	return b.String()
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
