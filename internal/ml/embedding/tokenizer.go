package embedding

import (
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// TokenTruncator truncates by BPE tokens, matching what remote embedding
// models count against their input limit.
type TokenTruncator struct {
	encoding  *tiktoken.Tiktoken
	maxTokens int
}

func NewTokenTruncator(encodingName string, maxTokens int) (*TokenTruncator, error) {
	if strings.TrimSpace(encodingName) == "" {
		encodingName = defaultEncoding
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, crerr.Wrapf(err, "load tiktoken encoding %q", encodingName)
	}
	return &TokenTruncator{encoding: enc, maxTokens: maxTokens}, nil
}

func (t *TokenTruncator) Truncate(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	tokens := t.encoding.Encode(text, nil, nil)
	if len(tokens) <= t.maxTokens {
		return text
	}
	return strings.TrimSpace(t.encoding.Decode(tokens[:t.maxTokens]))
}
