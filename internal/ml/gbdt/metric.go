package gbdt

import (
	"math"
	"sort"
)

// AUC computes the area under the ROC curve with tied scores sharing their
// average rank. A label set with a single class yields 1 and ok=false.
func AUC(labels, scores []float64) (auc float64, ok bool) {
	n := len(labels)
	if n == 0 || n != len(scores) {
		return 1, false
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	var pos, neg, rankSumPos float64
	for i := 0; i < n; {
		j := i
		for j+1 < n && scores[idx[j+1]] == scores[idx[i]] {
			j++
		}
		avgRank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			if labels[idx[k]] > 0.5 {
				pos++
				rankSumPos += avgRank
			} else {
				neg++
			}
		}
		i = j + 1
	}

	if pos == 0 || neg == 0 {
		return 1, false
	}
	return (rankSumPos - pos*(pos+1)/2) / (pos * neg), true
}

// LogLoss is the mean binary cross-entropy of probabilities against labels.
func LogLoss(labels, probs []float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	const eps = 1e-15
	var sum float64
	for i, y := range labels {
		p := math.Min(math.Max(probs[i], eps), 1-eps)
		sum -= y*math.Log(p) + (1-y)*math.Log(1-p)
	}
	return sum / float64(len(labels))
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
