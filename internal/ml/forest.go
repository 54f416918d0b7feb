package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
)

// ForestConfig controls random-forest training.
type ForestConfig struct {
	NumTrees        int
	MaxDepth        int // 0 means grow until pure
	MinSamplesSplit int
	Seed            int64
}

// DefaultForestConfig mirrors the classifier settings the pipeline was
// calibrated with: 100 trees, unlimited depth, fixed seed.
func DefaultForestConfig(seed int64) ForestConfig {
	return ForestConfig{
		NumTrees:        100,
		MinSamplesSplit: 2,
		Seed:            seed,
	}
}

// Forest is a trained random-forest binary classifier.
type Forest struct {
	Trees []*Node
}

// TrainForest fits a random forest on the row-major matrix X with labels y
// (0 real, 1 fake). Class imbalance is corrected with balanced sample
// weights. Training is deterministic for a fixed config seed.
func TrainForest(X [][]float64, y []int, cfg ForestConfig) (*Forest, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("forest: need matching non-empty X and y, got %d rows and %d labels", len(X), len(y))
	}
	if cfg.NumTrees <= 0 {
		return nil, fmt.Errorf("forest: NumTrees must be positive, got %d", cfg.NumTrees)
	}
	for _, lbl := range y {
		if lbl != 0 && lbl != 1 {
			return nil, fmt.Errorf("forest: labels must be 0 or 1, got %d", lbl)
		}
	}

	// Balanced class weights: w_c = n / (numClasses * n_c). A no-op for the
	// 50/50 synthetic corpus but keeps the classifier robust if the corpus
	// composition changes.
	var counts [2]int
	for _, lbl := range y {
		counts[lbl]++
	}
	if counts[0] == 0 || counts[1] == 0 {
		return nil, fmt.Errorf("forest: training data must contain both classes")
	}
	n := float64(len(y))
	classWeight := [2]float64{n / (2 * float64(counts[0])), n / (2 * float64(counts[1]))}

	w := make([]float64, len(y))
	for i, lbl := range y {
		w[i] = classWeight[lbl]
	}

	set := trainSet{X: X, y: y, w: w}
	tcfg := treeConfig{
		maxDepth:        cfg.MaxDepth,
		minSamplesSplit: cfg.MinSamplesSplit,
		featuresPerNode: int(math.Sqrt(float64(len(X[0])))),
	}
	if tcfg.featuresPerNode < 1 {
		tcfg.featuresPerNode = 1
	}
	if tcfg.minSamplesSplit < 2 {
		tcfg.minSamplesSplit = 2
	}

	// Per-tree seeds are drawn up front from the config seed so trees can be
	// grown in parallel without losing determinism.
	seedRng := rand.New(rand.NewSource(cfg.Seed))
	seeds := make([]int64, cfg.NumTrees)
	for i := range seeds {
		seeds[i] = seedRng.Int63()
	}

	forest := &Forest{Trees: make([]*Node, cfg.NumTrees)}

	var wg sync.WaitGroup
	for t := 0; t < cfg.NumTrees; t++ {
		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seeds[t]))

			// Bootstrap sample.
			idx := make([]int, len(X))
			for i := range idx {
				idx[i] = rng.Intn(len(X))
			}

			forest.Trees[t] = growTree(set, idx, 0, tcfg, rng)
		}(t)
	}
	wg.Wait()

	return forest, nil
}

// PredictProba returns [P(real), P(fake)] for one feature row, averaged
// over all trees.
func (f *Forest) PredictProba(x []float64) ([2]float64, error) {
	if f == nil || len(f.Trees) == 0 {
		return [2]float64{}, ErrNotTrained
	}

	var sum [2]float64
	for _, tree := range f.Trees {
		p := tree.predict(x)
		sum[0] += p[0]
		sum[1] += p[1]
	}
	k := float64(len(f.Trees))
	return [2]float64{sum[0] / k, sum[1] / k}, nil
}
