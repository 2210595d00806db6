package narrative

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	sentenceStart = regexp.MustCompile(`([.!?])\s*([a-z])`)
)

// PostProcess normalizes spacing, capitalizes sentence starts and makes sure
// the text ends with terminal punctuation.
func PostProcess(text string) string {
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = sentenceStart.ReplaceAllStringFunc(text, func(m string) string {
		return m[:1] + " " + strings.ToUpper(m[len(m)-1:])
	})
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	first, size := utf8.DecodeRuneInString(text)
	text = string(unicode.ToUpper(first)) + text[size:]

	if !strings.ContainsAny(text[len(text)-1:], ".!?") {
		text += "."
	}
	return text
}
