package ml

import (
	"math"
	"math/rand"
	"sort"
)

// Node is a single decision-tree node. Exported fields keep the tree
// gob-serializable for model persistence.
type Node struct {
	Leaf      bool
	Feature   int
	Threshold float64
	Left      *Node
	Right     *Node
	// Probs is the weighted class distribution at a leaf: [P(real), P(fake)].
	Probs [2]float64
}

type treeConfig struct {
	maxDepth        int
	minSamplesSplit int
	featuresPerNode int
}

// trainSet is the sample view a tree is grown on. X is row-major, y holds
// class labels (0 real, 1 fake), w the per-sample class-balance weights.
type trainSet struct {
	X [][]float64
	y []int
	w []float64
}

// growTree builds a CART tree on the samples in idx using Gini impurity,
// evaluating a random feature subset at each node.
func growTree(set trainSet, idx []int, depth int, cfg treeConfig, rng *rand.Rand) *Node {
	if len(idx) == 0 {
		return &Node{Leaf: true, Probs: [2]float64{0.5, 0.5}}
	}

	var classW [2]float64
	for _, i := range idx {
		classW[set.y[i]] += set.w[i]
	}
	total := classW[0] + classW[1]

	pure := classW[0] == 0 || classW[1] == 0
	if pure || len(idx) < cfg.minSamplesSplit || (cfg.maxDepth > 0 && depth >= cfg.maxDepth) {
		return leafNode(classW, total)
	}

	feature, threshold, ok := bestSplit(set, idx, cfg.featuresPerNode, rng)
	if !ok {
		return leafNode(classW, total)
	}

	var left, right []int
	for _, i := range idx {
		if set.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return leafNode(classW, total)
	}

	return &Node{
		Feature:   feature,
		Threshold: threshold,
		Left:      growTree(set, left, depth+1, cfg, rng),
		Right:     growTree(set, right, depth+1, cfg, rng),
	}
}

func leafNode(classW [2]float64, total float64) *Node {
	if total == 0 {
		return &Node{Leaf: true, Probs: [2]float64{0.5, 0.5}}
	}
	return &Node{Leaf: true, Probs: [2]float64{classW[0] / total, classW[1] / total}}
}

// bestSplit evaluates a random subset of features and returns the split with
// the lowest weighted Gini impurity. ok is false when no feature separates
// the node.
func bestSplit(set trainSet, idx []int, featuresPerNode int, rng *rand.Rand) (feature int, threshold float64, ok bool) {
	numFeatures := len(set.X[0])
	candidates := sampleFeatures(numFeatures, featuresPerNode, rng)

	bestGini := math.Inf(1)

	// Reused across features: node samples ordered by the candidate feature.
	order := make([]int, len(idx))

	for _, f := range candidates {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool {
			return set.X[order[a]][f] < set.X[order[b]][f]
		})

		var leftW, rightW [2]float64
		for _, i := range order {
			rightW[set.y[i]] += set.w[i]
		}

		for k := 0; k < len(order)-1; k++ {
			i := order[k]
			leftW[set.y[i]] += set.w[i]
			rightW[set.y[i]] -= set.w[i]

			cur, next := set.X[i][f], set.X[order[k+1]][f]
			if cur == next {
				continue
			}

			g := weightedGini(leftW, rightW)
			if g < bestGini {
				bestGini = g
				feature = f
				threshold = cur + (next-cur)/2
				ok = true
			}
		}
	}

	return feature, threshold, ok
}

// sampleFeatures picks k distinct feature indices uniformly at random.
func sampleFeatures(n, k int, rng *rand.Rand) []int {
	if k >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	perm := rng.Perm(n)
	return perm[:k]
}

func weightedGini(leftW, rightW [2]float64) float64 {
	lt := leftW[0] + leftW[1]
	rt := rightW[0] + rightW[1]
	total := lt + rt
	if total == 0 {
		return 0
	}
	return lt/total*gini(leftW, lt) + rt/total*gini(rightW, rt)
}

func gini(classW [2]float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	p0 := classW[0] / total
	p1 := classW[1] / total
	return 1 - p0*p0 - p1*p1
}

// predict walks the tree and returns the leaf class distribution.
func (n *Node) predict(x []float64) [2]float64 {
	for !n.Leaf {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Probs
}
