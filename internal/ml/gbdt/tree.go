package gbdt

import "math"

const gainEpsilon = 1e-12

// Node is one tree node. Leaves have Feature == -1. Rows with
// x[Feature] <= Threshold (or NaN) go Left.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Gain      float64 `json:"gain,omitempty"`
}

func (n Node) IsLeaf() bool { return n.Feature < 0 }

// Tree is a regression tree over raw scores. Nodes[0] is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t Tree) Predict(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return n.Value
		}
		v := x[n.Feature]
		if v <= n.Threshold || math.IsNaN(v) {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func (t Tree) NumLeaves() int {
	n := 0
	for _, node := range t.Nodes {
		if node.IsLeaf() {
			n++
		}
	}
	return n
}

type histBin struct {
	grad  float64
	hess  float64
	count int
}

type splitCandidate struct {
	valid   bool
	feature int
	bin     int
	gain    float64
}

type growLeaf struct {
	node  int
	rows  []int
	depth int
	sumG  float64
	sumH  float64
	best  splitCandidate
}

type treeGrower struct {
	params  Params
	mapper  binMapper
	bins    [][]uint16
	grad    []float64
	hess    []float64
	hist    []histBin
	minHess float64
}

func newTreeGrower(params Params, mapper binMapper, bins [][]uint16) *treeGrower {
	maxBins := 1
	for f := range mapper.bounds {
		maxBins = max(maxBins, mapper.numBins(f))
	}
	return &treeGrower{
		params:  params,
		mapper:  mapper,
		bins:    bins,
		hist:    make([]histBin, maxBins),
		minHess: math.Max(params.MinSumHessianInLeaf, 1e-12),
	}
}

// grow builds one tree leaf-wise: the leaf with the largest gain is split
// next until NumLeaves is reached or no split improves the loss. Ties prefer
// the lower feature, then the lower bin, then the older leaf.
func (g *treeGrower) grow(rows []int, grad, hess []float64) Tree {
	g.grad, g.hess = grad, hess

	tree := Tree{Nodes: []Node{{Feature: -1}}}
	root := g.newLeaf(0, rows, 0)
	leaves := []*growLeaf{root}

	for len(leaves) < g.params.NumLeaves {
		bestIdx := -1
		for i, leaf := range leaves {
			if !leaf.best.valid {
				continue
			}
			if bestIdx < 0 || leaf.best.gain > leaves[bestIdx].best.gain {
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}

		leaf := leaves[bestIdx]
		split := leaf.best
		threshold := g.mapper.threshold(split.feature, split.bin)

		var leftRows, rightRows []int
		col := g.bins[split.feature]
		for _, r := range leaf.rows {
			if int(col[r]) <= split.bin {
				leftRows = append(leftRows, r)
			} else {
				rightRows = append(rightRows, r)
			}
		}

		leftNode := len(tree.Nodes)
		rightNode := leftNode + 1
		tree.Nodes = append(tree.Nodes, Node{Feature: -1}, Node{Feature: -1})
		tree.Nodes[leaf.node] = Node{
			Feature:   split.feature,
			Threshold: threshold,
			Left:      leftNode,
			Right:     rightNode,
			Gain:      split.gain,
		}

		left := g.newLeaf(leftNode, leftRows, leaf.depth+1)
		right := g.newLeaf(rightNode, rightRows, leaf.depth+1)
		leaves[bestIdx] = left
		leaves = append(leaves, right)
	}

	for _, leaf := range leaves {
		tree.Nodes[leaf.node].Value = g.leafValue(leaf.sumG, leaf.sumH)
	}
	return tree
}

func (g *treeGrower) newLeaf(node int, rows []int, depth int) *growLeaf {
	leaf := &growLeaf{node: node, rows: rows, depth: depth}
	for _, r := range rows {
		leaf.sumG += g.grad[r]
		leaf.sumH += g.hess[r]
	}
	if g.params.MaxDepth > 0 && depth >= g.params.MaxDepth {
		return leaf
	}
	if len(rows) < 2*g.params.MinDataInLeaf {
		return leaf
	}
	leaf.best = g.findSplit(leaf)
	return leaf
}

func (g *treeGrower) findSplit(leaf *growLeaf) splitCandidate {
	best := splitCandidate{}
	lambda := g.params.LambdaL2
	if leaf.sumH+lambda < g.minHess {
		return best
	}
	parentScore := leaf.sumG * leaf.sumG / (leaf.sumH + lambda)

	for f := range g.bins {
		nb := g.mapper.numBins(f)
		if nb < 2 {
			continue
		}
		hist := g.hist[:nb]
		clear(hist)
		col := g.bins[f]
		for _, r := range leaf.rows {
			b := col[r]
			hist[b].grad += g.grad[r]
			hist[b].hess += g.hess[r]
			hist[b].count++
		}

		var gl, hl float64
		var cl int
		for b := 0; b < nb-1; b++ {
			gl += hist[b].grad
			hl += hist[b].hess
			cl += hist[b].count
			cr := len(leaf.rows) - cl
			if cl < g.params.MinDataInLeaf {
				continue
			}
			if cr < g.params.MinDataInLeaf {
				break
			}
			gr, hr := leaf.sumG-gl, leaf.sumH-hl
			if hl < g.minHess || hr < g.minHess {
				continue
			}
			gain := gl*gl/(hl+lambda) + gr*gr/(hr+lambda) - parentScore
			if gain <= g.params.MinGainToSplit+gainEpsilon {
				continue
			}
			if !best.valid || gain > best.gain {
				best = splitCandidate{valid: true, feature: f, bin: b, gain: gain}
			}
		}
	}
	return best
}

func (g *treeGrower) leafValue(sumG, sumH float64) float64 {
	denom := sumH + g.params.LambdaL2
	if denom < 1e-12 {
		return 0
	}
	return -sumG / denom * g.params.LearningRate
}
