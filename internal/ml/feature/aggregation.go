package feature

import (
	"sort"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/match-predictor/internal/domain/news"
	"github.com/riskibarqy/match-predictor/internal/ml"
	"github.com/valyala/bytebufferpool"
)

// Aggregation decides how several headlines for one match become one vector.
type Aggregation string

const (
	// AggregateMean embeds every headline and averages the vectors.
	AggregateMean Aggregation = "mean"
	// AggregateLatest embeds only the most recently published headline.
	AggregateLatest Aggregation = "latest"
	// AggregateConcat joins headlines in publish order and embeds the result once.
	AggregateConcat Aggregation = "concat"
)

const concatSeparator = ". "

func ParseAggregation(value string) (Aggregation, error) {
	switch Aggregation(strings.ToLower(strings.TrimSpace(value))) {
	case "", AggregateMean:
		return AggregateMean, nil
	case AggregateLatest:
		return AggregateLatest, nil
	case AggregateConcat:
		return AggregateConcat, nil
	default:
		return "", crerr.Wrapf(ml.ErrInvalidConfig, "unknown headline aggregation %q", value)
	}
}

// textGroup is the set of texts embedded for one match; their vectors are
// averaged.
type textGroup struct {
	matchID string
	texts   []string
}

// groupHeadlines orders headlines per match by publish time (stable on input
// order) and applies the aggregation policy. Groups follow first appearance
// of each match in order.
func groupHeadlines(items []news.Headline, order []string, policy Aggregation) []textGroup {
	byMatch := make(map[string][]news.Headline, len(order))
	for _, item := range items {
		byMatch[item.MatchID] = append(byMatch[item.MatchID], item)
	}

	out := make([]textGroup, 0, len(byMatch))
	for _, matchID := range order {
		rows, ok := byMatch[matchID]
		if !ok {
			continue
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].PublishedAt.Before(rows[j].PublishedAt)
		})

		switch policy {
		case AggregateLatest:
			out = append(out, textGroup{matchID: matchID, texts: []string{rows[len(rows)-1].Text()}})
		case AggregateConcat:
			out = append(out, textGroup{matchID: matchID, texts: []string{concatTexts(rows)}})
		default:
			texts := make([]string, 0, len(rows))
			for _, row := range rows {
				texts = append(texts, row.Text())
			}
			out = append(out, textGroup{matchID: matchID, texts: texts})
		}
	}
	return out
}

func concatTexts(rows []news.Headline) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	for _, row := range rows {
		text := strings.TrimRight(row.Text(), ". ")
		if text == "" {
			continue
		}
		if buf.Len() > 0 {
			_, _ = buf.WriteString(concatSeparator)
		}
		_, _ = buf.WriteString(text)
	}
	return buf.String()
}

func meanVector(vectors [][]float32, width int) []float64 {
	out := make([]float64, width)
	if len(vectors) == 0 {
		return out
	}
	for _, vec := range vectors {
		for i := 0; i < width && i < len(vec); i++ {
			out[i] += float64(vec[i])
		}
	}
	n := float64(len(vectors))
	for i := range out {
		out[i] /= n
	}
	return out
}
