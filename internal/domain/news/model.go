package news

import (
	"strings"
	"time"
)

// Headline is one news item attached to a match. An empty Title is valid and
// embeds like any other text.
type Headline struct {
	ID          string
	MatchID     string
	Title       string
	Description string
	Author      string
	URL         string
	PublishedAt time.Time
}

// Text returns the headline text used for embedding.
func (h Headline) Text() string {
	return strings.TrimSpace(h.Title)
}
