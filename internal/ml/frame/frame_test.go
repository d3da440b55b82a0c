package frame

import (
	"math"
	"testing"
)

func TestTableAppendCopiesValues(t *testing.T) {
	t.Parallel()

	table := NewTable("team_stats", "a", "b")
	values := []float64{1, 2}
	table.Append("m1", values...)
	values[0] = 99

	if table.Rows[0].Values[0] != 1 {
		t.Fatalf("expected appended row to be independent of caller slice")
	}
	if table.Len() != 1 || table.Empty() {
		t.Fatalf("unexpected table size: %d", table.Len())
	}
}

func TestMatrixFillNaN(t *testing.T) {
	t.Parallel()

	m := Matrix{
		Columns: []string{"x", "y"},
		Rows:    [][]float64{{math.NaN(), 1}, {math.Inf(1), 2}},
	}
	m.FillNaN(0)
	if m.Rows[0][0] != 0 || m.Rows[1][0] != 0 || m.Rows[1][1] != 2 {
		t.Fatalf("unexpected fill result: %+v", m.Rows)
	}
}
