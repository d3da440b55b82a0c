package embedding

import (
	"regexp"
	"strings"
)

// DefaultMaxTokens mirrors the 64-token input window used for headlines.
const DefaultMaxTokens = 64

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

// Truncator cuts a text down to the provider's input window, keeping the prefix.
type Truncator interface {
	Truncate(text string) string
}

// WordTruncator keeps the leading MaxTokens word tokens of a text.
type WordTruncator struct {
	maxTokens int
}

func NewWordTruncator(maxTokens int) WordTruncator {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return WordTruncator{maxTokens: maxTokens}
}

func (t WordTruncator) Truncate(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	locs := wordPattern.FindAllStringIndex(text, t.maxTokens+1)
	if len(locs) <= t.maxTokens {
		return text
	}
	return strings.TrimSpace(text[:locs[t.maxTokens-1][1]])
}

func tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}
