package frame

import (
	"math"
	"slices"
)

// Row is one record of a numeric table. An empty MatchID means the join key
// is missing. NaN values mark missing measurements.
type Row struct {
	MatchID string
	Values  []float64
}

// Table is a named, column-ordered numeric table keyed by match id.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

func NewTable(name string, columns ...string) Table {
	return Table{Name: name, Columns: slices.Clone(columns)}
}

func (t *Table) Append(matchID string, values ...float64) {
	t.Rows = append(t.Rows, Row{MatchID: matchID, Values: slices.Clone(values)})
}

func (t Table) Len() int { return len(t.Rows) }

func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Matrix is a dense feature matrix. Keys holds the match id of each row so
// callers can align labels; it is never part of Columns.
type Matrix struct {
	Columns []string
	Keys    []string
	Rows    [][]float64
}

func (m Matrix) Len() int { return len(m.Rows) }

func (m Matrix) Width() int { return len(m.Columns) }

func (m Matrix) Empty() bool { return len(m.Rows) == 0 }

// FillNaN replaces NaN and infinite values in place.
func (m Matrix) FillNaN(value float64) {
	for _, row := range m.Rows {
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row[j] = value
			}
		}
	}
}

func SameColumns(a, b []string) bool {
	return slices.Equal(a, b)
}
