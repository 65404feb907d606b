package classifier

import (
	"math/rand/v2"
	"slices"
)

// Node is one node of a flattened binary tree. Leaves have Feature -1.
// Samples with x[Feature] <= Threshold go Left.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// Tree is a CART tree stored as a node slice; node 0 is the root
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict returns the value of the leaf x falls into
func (t *Tree) Predict(x []float64) float64 {
	return t.Nodes[t.leaf(x)].Value
}

func (t *Tree) leaf(x []float64) int {
	i := 0
	for t.Nodes[i].Feature >= 0 {
		n := t.Nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return i
}

// Depth is the longest root-to-leaf path, in edges
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

// treeConfig controls growth. maxDepth 0 grows until leaves are pure or
// too small to split; maxFeatures 0 considers every feature.
type treeConfig struct {
	maxDepth        int
	minSamplesSplit int
	maxFeatures     int
}

// treeBuilder grows a tree that minimizes the summed squared error of
// node means. With 0/1 targets that is the Gini criterion (Gini = 2 *
// variance), so the same builder serves classification and the residual
// regression inside gradient boosting.
type treeBuilder struct {
	cfg   treeConfig
	x     [][]float64
	y     []float64
	rng   *rand.Rand
	nodes []Node
}

type split struct {
	ok        bool
	feature   int
	threshold float64
	sse       float64
}

func growTree(cfg treeConfig, x [][]float64, y []float64, samples []int, rng *rand.Rand) *Tree {
	b := &treeBuilder{cfg: cfg, x: x, y: y, rng: rng}
	b.build(samples, 0)
	return &Tree{Nodes: b.nodes}
}

func (b *treeBuilder) build(samples []int, depth int) int {
	id := len(b.nodes)
	sum, sumSq := b.moments(samples)
	n := float64(len(samples))
	b.nodes = append(b.nodes, Node{Feature: -1, Left: -1, Right: -1, Value: sum / n})

	if len(samples) < b.cfg.minSamplesSplit || (b.cfg.maxDepth > 0 && depth >= b.cfg.maxDepth) {
		return id
	}
	if sumSq-sum*sum/n <= 1e-12 {
		return id // pure
	}

	best := b.bestSplit(samples)
	if !best.ok {
		return id
	}

	var left, right []int
	for _, s := range samples {
		if b.x[s][best.feature] <= best.threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[id].Feature = best.feature
	b.nodes[id].Threshold = best.threshold
	b.nodes[id].Left = l
	b.nodes[id].Right = r

	return id
}

func (b *treeBuilder) moments(samples []int) (sum, sumSq float64) {
	for _, s := range samples {
		sum += b.y[s]
		sumSq += b.y[s] * b.y[s]
	}
	return sum, sumSq
}

// bestSplit visits features in random order. Once maxFeatures features
// with at least two distinct values have been scored it stops, unless no
// valid split has been found yet.
func (b *treeBuilder) bestSplit(samples []int) split {
	numFeatures := len(b.x[0])
	limit := b.cfg.maxFeatures
	if limit <= 0 || limit > numFeatures {
		limit = numFeatures
	}

	best := split{}
	scored := 0
	sorted := make([]int, len(samples))

	for _, f := range b.rng.Perm(numFeatures) {
		if scored >= limit && best.ok {
			break
		}

		copy(sorted, samples)
		slices.SortStableFunc(sorted, func(a, c int) int {
			switch {
			case b.x[a][f] < b.x[c][f]:
				return -1
			case b.x[a][f] > b.x[c][f]:
				return 1
			}
			return 0
		})

		if b.x[sorted[0]][f] == b.x[sorted[len(sorted)-1]][f] {
			continue // constant here
		}
		scored++

		if candidate := b.scoreFeature(f, sorted); candidate.ok && (!best.ok || candidate.sse < best.sse) {
			best = candidate
		}
	}

	return best
}

// scoreFeature sweeps thresholds between consecutive distinct values of a
// sorted sample list
func (b *treeBuilder) scoreFeature(f int, sorted []int) split {
	totalSum, totalSq := b.moments(sorted)
	n := len(sorted)

	best := split{}
	leftSum, leftSq := 0.0, 0.0
	for i := 1; i < n; i++ {
		prev := sorted[i-1]
		leftSum += b.y[prev]
		leftSq += b.y[prev] * b.y[prev]

		lo, hi := b.x[prev][f], b.x[sorted[i]][f]
		if lo == hi {
			continue
		}

		nl, nr := float64(i), float64(n-i)
		rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
		sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)

		if !best.ok || sse < best.sse {
			threshold := lo + (hi-lo)/2
			if threshold >= hi {
				threshold = lo
			}
			best = split{ok: true, feature: f, threshold: threshold, sse: sse}
		}
	}

	return best
}
