package gbdt

import (
	"math"
	"sort"
)

// binMapper holds per-feature upper bounds. Bin b covers values
// <= bounds[b]; the last bin is open-ended.
type binMapper struct {
	bounds [][]float64
}

func newBinMapper(x [][]float64, features, maxBins int) binMapper {
	bounds := make([][]float64, features)
	values := make([]float64, 0, len(x))
	for f := 0; f < features; f++ {
		values = values[:0]
		for _, row := range x {
			v := row[f]
			if math.IsNaN(v) {
				continue
			}
			values = append(values, v)
		}
		bounds[f] = featureBounds(values, maxBins)
	}
	return binMapper{bounds: bounds}
}

// featureBounds returns split thresholds: midpoints between distinct values,
// thinned to quantiles when there are more than maxBins distinct values.
func featureBounds(values []float64, maxBins int) []float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	distinct := sorted[:1]
	for _, v := range sorted[1:] {
		if v != distinct[len(distinct)-1] {
			distinct = append(distinct, v)
		}
	}
	if len(distinct) < 2 {
		return nil
	}

	if len(distinct) <= maxBins {
		out := make([]float64, len(distinct)-1)
		for i := range out {
			out[i] = (distinct[i] + distinct[i+1]) / 2
		}
		return out
	}

	out := make([]float64, 0, maxBins-1)
	for b := 1; b < maxBins; b++ {
		pos := int(float64(b) * float64(len(sorted)) / float64(maxBins))
		if pos <= 0 || pos >= len(sorted) {
			continue
		}
		lo, hi := sorted[pos-1], sorted[pos]
		if lo == hi {
			continue
		}
		thr := (lo + hi) / 2
		if len(out) == 0 || thr > out[len(out)-1] {
			out = append(out, thr)
		}
	}
	return out
}

func (m binMapper) numBins(feature int) int {
	return len(m.bounds[feature]) + 1
}

func (m binMapper) bin(feature int, v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return sort.SearchFloat64s(m.bounds[feature], v)
}

// threshold returns the upper bound of bin b, used as the split value.
func (m binMapper) threshold(feature, b int) float64 {
	return m.bounds[feature][b]
}

// binned converts rows into per-feature bin columns.
func (m binMapper) binned(x [][]float64) [][]uint16 {
	out := make([][]uint16, len(m.bounds))
	for f := range m.bounds {
		col := make([]uint16, len(x))
		for i, row := range x {
			col[i] = uint16(m.bin(f, row[f]))
		}
		out[f] = col
	}
	return out
}
