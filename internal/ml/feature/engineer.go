package feature

import (
	"context"
	"fmt"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/match-predictor/internal/domain/news"
	"github.com/riskibarqy/match-predictor/internal/ml"
	"github.com/riskibarqy/match-predictor/internal/ml/frame"
	"github.com/riskibarqy/match-predictor/internal/platform/logging"
)

const EmbeddingColumnPrefix = "text_emb_"

// TextEmbedder is the part of embedding.TextEmbedder the engineer needs.
type TextEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Width() int
}

type Option func(*Engineer)

func WithAggregation(policy Aggregation) Option {
	return func(e *Engineer) {
		if policy != "" {
			e.aggregation = policy
		}
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(e *Engineer) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engineer builds the model's feature matrix from the per-match tables.
type Engineer struct {
	embedder    TextEmbedder
	aggregation Aggregation
	logger      *logging.Logger
}

func NewEngineer(embedder TextEmbedder, opts ...Option) (*Engineer, error) {
	if embedder == nil {
		return nil, crerr.New("text embedder is required")
	}
	e := &Engineer{
		embedder:    embedder,
		aggregation: AggregateMean,
		logger:      logging.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if _, err := ParseAggregation(string(e.aggregation)); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engineer) Aggregation() Aggregation {
	return e.aggregation
}

// PrepareFeatures inner-joins team stats, rankings and player stats on match
// id, left-joins one headline embedding per match and fills gaps with 0.
// Rows follow team stats order. Keys carries the match id of each row; it is
// not a feature column.
func (e *Engineer) PrepareFeatures(
	ctx context.Context,
	teamStats, rankings, playerStats frame.Table,
	headlines []news.Headline,
) (frame.Matrix, error) {
	tables := []frame.Table{teamStats, rankings, playerStats}
	for i := range tables {
		if strings.TrimSpace(tables[i].Name) == "" {
			tables[i].Name = defaultTableNames[i]
		}
		if err := validateTable(tables[i]); err != nil {
			return frame.Matrix{}, err
		}
	}
	for i, h := range headlines {
		if strings.TrimSpace(h.MatchID) == "" {
			return frame.Matrix{}, crerr.Wrapf(ml.ErrMissingJoinKey, "news row %d has no match id", i)
		}
	}

	numericColumns := mergeColumns(tables)
	width := e.embedder.Width()

	for _, table := range tables {
		if table.Empty() {
			e.logger.DebugContext(ctx, "mandatory table empty, returning empty feature matrix", "table", table.Name)
			return emptyMatrix(numericColumns, width), nil
		}
	}

	joined := innerJoin(tables)
	if len(joined) == 0 {
		return emptyMatrix(numericColumns, width), nil
	}

	order := make([]string, len(joined))
	inJoin := make(map[string]struct{}, len(joined))
	for i, row := range joined {
		order[i] = row.matchID
		inJoin[row.matchID] = struct{}{}
	}
	relevant := make([]news.Headline, 0, len(headlines))
	for _, h := range headlines {
		if _, ok := inJoin[h.MatchID]; ok {
			relevant = append(relevant, h)
		}
	}

	textFeatures, width, err := e.embedHeadlines(ctx, groupHeadlines(relevant, order, e.aggregation))
	if err != nil {
		return frame.Matrix{}, err
	}

	columns := appendUnique(numericColumns, embeddingColumns(width), "news")
	out := frame.Matrix{
		Columns: columns,
		Keys:    order,
		Rows:    make([][]float64, len(joined)),
	}
	for i, row := range joined {
		values := make([]float64, 0, len(columns))
		values = append(values, row.values...)
		if vec, ok := textFeatures[row.matchID]; ok {
			values = append(values, vec...)
		} else {
			values = append(values, make([]float64, width)...)
		}
		out.Rows[i] = values
	}
	out.FillNaN(0)

	e.logger.DebugContext(ctx, "feature matrix prepared",
		"rows", out.Len(),
		"columns", out.Width(),
		"matches_with_news", len(textFeatures),
		"aggregation", string(e.aggregation),
	)
	return out, nil
}

// embedHeadlines returns one vector per match with news and the embedding
// width. The width is probed with an empty text when nothing was embedded yet.
func (e *Engineer) embedHeadlines(ctx context.Context, groups []textGroup) (map[string][]float64, int, error) {
	var texts []string
	for _, g := range groups {
		texts = append(texts, g.texts...)
	}

	if len(texts) == 0 {
		width := e.embedder.Width()
		if width == 0 {
			probe, err := e.embedder.Embed(ctx, []string{""})
			if err != nil {
				return nil, 0, crerr.Wrap(err, "probe embedding width")
			}
			if len(probe) == 1 {
				width = len(probe[0])
			}
		}
		return map[string][]float64{}, width, nil
	}

	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, 0, crerr.Wrap(err, "embed headlines")
	}
	if len(vectors) != len(texts) {
		return nil, 0, ml.NewEmbeddingError(-1, crerr.Newf("embedder returned %d vectors for %d texts", len(vectors), len(texts)))
	}

	width := e.embedder.Width()
	if width == 0 && len(vectors) > 0 {
		width = len(vectors[0])
	}

	out := make(map[string][]float64, len(groups))
	pos := 0
	for _, g := range groups {
		out[g.matchID] = meanVector(vectors[pos:pos+len(g.texts)], width)
		pos += len(g.texts)
	}
	return out, width, nil
}

var defaultTableNames = []string{"team_stats", "rankings", "player_stats"}

func validateTable(table frame.Table) error {
	seen := make(map[string]int, len(table.Rows))
	for i, row := range table.Rows {
		if strings.TrimSpace(row.MatchID) == "" {
			return crerr.Wrapf(ml.ErrMissingJoinKey, "%s row %d has no match id", table.Name, i)
		}
		if len(row.Values) != len(table.Columns) {
			return crerr.Wrapf(ml.ErrShapeMismatch, "%s row %d has %d values for %d columns",
				table.Name, i, len(row.Values), len(table.Columns))
		}
		if prev, ok := seen[row.MatchID]; ok {
			return crerr.Wrapf(ml.ErrDuplicateJoinKey, "%s rows %d and %d share match id %q",
				table.Name, prev, i, row.MatchID)
		}
		seen[row.MatchID] = i
	}
	return nil
}

// mergeColumns concatenates column names in table order with every name
// unique.
func mergeColumns(tables []frame.Table) []string {
	var out []string
	for _, table := range tables {
		out = appendUnique(out, table.Columns, table.Name)
	}
	return out
}

// appendUnique appends cols to the unique names in base. A taken name gets
// suffix, then a counter, until it is free.
func appendUnique(base, cols []string, suffix string) []string {
	out := make([]string, 0, len(base)+len(cols))
	out = append(out, base...)
	taken := make(map[string]struct{}, len(base)+len(cols))
	for _, name := range base {
		taken[name] = struct{}{}
	}
	for _, col := range cols {
		name := col
		if _, clash := taken[name]; clash {
			name = fmt.Sprintf("%s_%s", col, suffix)
			for n := 2; ; n++ {
				if _, clash := taken[name]; !clash {
					break
				}
				name = fmt.Sprintf("%s_%s_%d", col, suffix, n)
			}
		}
		taken[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

type joinedRow struct {
	matchID string
	values  []float64
}

func innerJoin(tables []frame.Table) []joinedRow {
	indexes := make([]map[string][]float64, len(tables))
	for i, table := range tables {
		idx := make(map[string][]float64, len(table.Rows))
		for _, row := range table.Rows {
			idx[row.MatchID] = row.Values
		}
		indexes[i] = idx
	}

	var out []joinedRow
	for _, row := range tables[0].Rows {
		values := append([]float64(nil), row.Values...)
		matched := true
		for _, idx := range indexes[1:] {
			other, ok := idx[row.MatchID]
			if !ok {
				matched = false
				break
			}
			values = append(values, other...)
		}
		if matched {
			out = append(out, joinedRow{matchID: row.MatchID, values: values})
		}
	}
	return out
}

func embeddingColumns(width int) []string {
	out := make([]string, width)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", EmbeddingColumnPrefix, i)
	}
	return out
}

func emptyMatrix(numericColumns []string, width int) frame.Matrix {
	return frame.Matrix{
		Columns: appendUnique(numericColumns, embeddingColumns(width), "news"),
		Keys:    []string{},
		Rows:    [][]float64{},
	}
}
