// Package tree implements CART decision tree classification.
package tree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/scigo/workflows/core/model"
	"github.com/scigo/workflows/core/random"
	"github.com/scigo/workflows/metrics"
	"github.com/scigo/workflows/pkg/errors"
)

const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"

	// features whose span is below this are treated as constant
	featureThreshold = 1e-7
	// impurities at or below this make a node a leaf
	impurityEpsilon = 1e-12
)

// Node is one node of a fitted tree. Leaves have Left == Right == nil.
type Node struct {
	Feature   int
	Threshold float64 // rows with X[Feature] <= Threshold go left
	Left      *Node
	Right     *Node

	Counts   []float64 // training rows per class reaching this node
	Impurity float64
	NSamples int
	Depth    int
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return n.Left == nil }

// DecisionTreeClassifier is a CART classifier grown depth-first with the
// best split of every node, chosen over all features.
type DecisionTreeClassifier struct {
	state *model.StateManager

	criterion           string
	maxDepth            int // 0 means unlimited
	minSamplesSplit     int
	minSamplesLeaf      int
	minImpurityDecrease float64
	randomState         int64

	mu          sync.RWMutex
	root        *Node
	classes     []float64
	importances []float64
	depth       int
	nLeaves     int
}

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier returns a Gini tree grown until its leaves are
// pure.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       CriterionGini,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// WithCriterion sets the impurity measure, "gini" or "entropy".
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) { dt.criterion = criterion }
}

// WithMaxDepth bounds the depth of the tree. 0 leaves it unbounded.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) { dt.maxDepth = depth }
}

// WithMinSamplesSplit sets the fewest rows a node needs to be split.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the fewest rows each child of a split must keep.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesLeaf = n }
}

// WithMinImpurityDecrease rejects splits whose weighted impurity decrease
// is below v.
func WithMinImpurityDecrease(v float64) Option {
	return func(dt *DecisionTreeClassifier) { dt.minImpurityDecrease = v }
}

// WithRandomState seeds the order in which features are examined, which
// decides between equally good splits.
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeClassifier) { dt.randomState = seed }
}

func (dt *DecisionTreeClassifier) validate() error {
	switch {
	case dt.criterion != CriterionGini && dt.criterion != CriterionEntropy:
		return errors.NewValidationError("criterion", "must be 'gini' or 'entropy'", dt.criterion)
	case dt.maxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", dt.maxDepth)
	case dt.minSamplesSplit < 2:
		return errors.NewValidationError("min_samples_split", "must be >= 2", dt.minSamplesSplit)
	case dt.minSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", dt.minSamplesLeaf)
	case dt.minImpurityDecrease < 0:
		return errors.NewValidationError("min_impurity_decrease", "must be >= 0", dt.minImpurityDecrease)
	}
	return nil
}

// builder carries the per-fit state of tree growth.
type builder struct {
	dt       *DecisionTreeClassifier
	X        mat.Matrix
	y        []int // class index per row
	nClasses int
	nTotal   float64
	rng      *rand.Rand

	features    []int
	importances []float64
	nLeaves     int
	maxDepth    int
}

// Fit grows the tree on X and class labels y.
func (dt *DecisionTreeClassifier) Fit(X mat.Matrix, y mat.Vector) error {
	if err := dt.validate(); err != nil {
		return err
	}
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return errors.Wrap(errors.ErrEmptyData, "DecisionTreeClassifier.Fit")
	}
	if y.Len() != n {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", n, y.Len(), 0)
	}
	if err := errors.CheckMatrix("DecisionTreeClassifier.Fit", X, 0); err != nil {
		return err
	}

	classes, encoded := encodeLabels(y)
	b := &builder{
		dt:          dt,
		X:           X,
		y:           encoded,
		nClasses:    len(classes),
		nTotal:      float64(n),
		rng:         random.New(dt.randomState),
		features:    make([]int, p),
		importances: make([]float64, p),
	}
	for j := range b.features {
		b.features[j] = j
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	root := b.grow(rows, 0)

	if total := floats.Sum(b.importances); total > 0 {
		floats.Scale(1/total, b.importances)
	}

	dt.mu.Lock()
	dt.root, dt.classes, dt.importances = root, classes, b.importances
	dt.depth, dt.nLeaves = b.maxDepth, b.nLeaves
	dt.mu.Unlock()
	dt.state.SetFitted(n, p)
	return nil
}

// encodeLabels maps y onto indices of its sorted distinct values.
func encodeLabels(y mat.Vector) ([]float64, []int) {
	seen := map[float64]bool{}
	var classes []float64
	for i := 0; i < y.Len(); i++ {
		v := y.AtVec(i)
		if !seen[v] {
			seen[v] = true
			classes = append(classes, v)
		}
	}
	sort.Float64s(classes)
	index := make(map[float64]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	encoded := make([]int, y.Len())
	for i := range encoded {
		encoded[i] = index[y.AtVec(i)]
	}
	return classes, encoded
}

func (b *builder) counts(rows []int) []float64 {
	c := make([]float64, b.nClasses)
	for _, r := range rows {
		c[b.y[r]]++
	}
	return c
}

func (b *builder) grow(rows []int, depth int) *Node {
	counts := b.counts(rows)
	node := &Node{
		Feature:  -1,
		Counts:   counts,
		Impurity: impurity(b.dt.criterion, counts, float64(len(rows))),
		NSamples: len(rows),
		Depth:    depth,
	}
	if depth > b.maxDepth {
		b.maxDepth = depth
	}

	n := len(rows)
	leaf := (b.dt.maxDepth > 0 && depth >= b.dt.maxDepth) ||
		n < b.dt.minSamplesSplit ||
		n < 2*b.dt.minSamplesLeaf ||
		node.Impurity <= impurityEpsilon
	if !leaf {
		if s, ok := b.bestSplit(rows, node); ok {
			node.Feature, node.Threshold = s.feature, s.threshold
			b.importances[s.feature] += float64(n)*node.Impurity -
				float64(len(s.left))*s.leftImpurity - float64(len(s.right))*s.rightImpurity
			node.Left = b.grow(s.left, depth+1)
			node.Right = b.grow(s.right, depth+1)
			return node
		}
	}
	b.nLeaves++
	return node
}

type split struct {
	feature                     int
	threshold                   float64
	left, right                 []int
	leftImpurity, rightImpurity float64
}

// bestSplit scans every feature in a random order and returns the split
// with the lowest weighted child impurity. Ties keep the first split found.
func (b *builder) bestSplit(rows []int, node *Node) (split, bool) {
	n := len(rows)
	minLeaf := b.dt.minSamplesLeaf
	b.rng.Shuffle(len(b.features), func(i, j int) {
		b.features[i], b.features[j] = b.features[j], b.features[i]
	})

	type pair struct {
		v   float64
		row int
	}
	sorted := make([]pair, n)
	left := make([]float64, b.nClasses)
	right := make([]float64, b.nClasses)

	best := split{feature: -1}
	bestProxy := math.Inf(1)
	var bestPos int
	var bestOrder []int
	for _, f := range b.features {
		for i, r := range rows {
			sorted[i] = pair{b.X.At(r, f), r}
		}
		sort.Slice(sorted, func(a, c int) bool { return sorted[a].v < sorted[c].v })
		if sorted[n-1].v <= sorted[0].v+featureThreshold {
			continue
		}

		for c := range left {
			left[c] = 0
		}
		copy(right, node.Counts)
		for i := 0; i < n-1; i++ {
			cls := b.y[sorted[i].row]
			left[cls]++
			right[cls]--

			nl := i + 1
			if sorted[i+1].v <= sorted[i].v+featureThreshold {
				continue
			}
			if nl < minLeaf || n-nl < minLeaf {
				continue
			}
			li := impurity(b.dt.criterion, left, float64(nl))
			ri := impurity(b.dt.criterion, right, float64(n-nl))
			proxy := float64(nl)*li + float64(n-nl)*ri
			if proxy < bestProxy {
				bestProxy = proxy
				t := sorted[i].v/2 + sorted[i+1].v/2
				if t == sorted[i+1].v || math.IsInf(t, 0) || math.IsNaN(t) {
					t = sorted[i].v
				}
				best = split{feature: f, threshold: t, leftImpurity: li, rightImpurity: ri}
				bestPos = nl
				bestOrder = bestOrder[:0]
				for _, s := range sorted {
					bestOrder = append(bestOrder, s.row)
				}
			}
		}
	}
	if best.feature < 0 {
		return split{}, false
	}

	decrease := float64(n) / b.nTotal * (node.Impurity -
		float64(bestPos)/float64(n)*best.leftImpurity -
		float64(n-bestPos)/float64(n)*best.rightImpurity)
	if decrease < b.dt.minImpurityDecrease {
		return split{}, false
	}
	best.left = append([]int(nil), bestOrder[:bestPos]...)
	best.right = append([]int(nil), bestOrder[bestPos:]...)
	return best, true
}

// impurity of a node with the given class counts summing to total.
func impurity(criterion string, counts []float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	switch criterion {
	case CriterionEntropy:
		var h float64
		for _, c := range counts {
			if c > 0 {
				p := c / total
				h -= p * math.Log2(p)
			}
		}
		return h
	default:
		var sq float64
		for _, c := range counts {
			sq += c * c
		}
		return 1 - sq/(total*total)
	}
}

func (dt *DecisionTreeClassifier) leaf(row []float64) *Node {
	node := dt.root
	for !node.IsLeaf() {
		if row[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

func (dt *DecisionTreeClassifier) checkInput(method string, X mat.Matrix) error {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", method); err != nil {
		return err
	}
	_, p := X.Dims()
	return dt.state.RequireFeatures("DecisionTreeClassifier."+method, p)
}

// Predict returns the majority class of the leaf each row falls into.
// Ties go to the smallest class label.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if err := dt.checkInput("Predict", X); err != nil {
		return nil, err
	}
	dt.mu.RLock()
	defer dt.mu.RUnlock()

	n, p := X.Dims()
	out := mat.NewVecDense(n, nil)
	row := make([]float64, p)
	for i := 0; i < n; i++ {
		counts := dt.leaf(mat.Row(row, i, X)).Counts
		out.SetVec(i, dt.classes[floats.MaxIdx(counts)])
	}
	return out, nil
}

// PredictProba returns the class fractions of the leaf each row falls into,
// one column per entry of Classes.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if err := dt.checkInput("PredictProba", X); err != nil {
		return nil, err
	}
	dt.mu.RLock()
	defer dt.mu.RUnlock()

	n, p := X.Dims()
	out := mat.NewDense(n, len(dt.classes), nil)
	row := make([]float64, p)
	for i := 0; i < n; i++ {
		node := dt.leaf(mat.Row(row, i, X))
		dst := out.RawRowView(i)
		copy(dst, node.Counts)
		floats.Scale(1/float64(node.NSamples), dst)
	}
	return out, nil
}

// Score returns the accuracy of Predict(X) against y.
func (dt *DecisionTreeClassifier) Score(X mat.Matrix, y mat.Vector) (float64, error) {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(y, pred)
}

// Classes returns the sorted labels seen during Fit.
func (dt *DecisionTreeClassifier) Classes() []float64 {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return append([]float64(nil), dt.classes...)
}

// FeatureImportances returns the normalized total impurity decrease
// contributed by each feature. All zeros when the tree is a single leaf.
func (dt *DecisionTreeClassifier) FeatureImportances() ([]float64, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", "FeatureImportances"); err != nil {
		return nil, err
	}
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return append([]float64(nil), dt.importances...), nil
}

// Depth is the length of the longest root-to-leaf path.
func (dt *DecisionTreeClassifier) Depth() int {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return dt.depth
}

// NLeaves is the number of leaves.
func (dt *DecisionTreeClassifier) NLeaves() int {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return dt.nLeaves
}

// Root returns the root node of the fitted tree, nil before Fit.
func (dt *DecisionTreeClassifier) Root() *Node {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return dt.root
}

// ExportText renders the fitted tree as indented rules. featureNames may be
// nil, in which case features are named feature_0, feature_1, ...
func (dt *DecisionTreeClassifier) ExportText(featureNames []string) (string, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", "ExportText"); err != nil {
		return "", err
	}
	dt.mu.RLock()
	defer dt.mu.RUnlock()

	name := func(f int) string {
		if f < len(featureNames) {
			return featureNames[f]
		}
		return fmt.Sprintf("feature_%d", f)
	}
	var sb strings.Builder
	var walk func(n *Node)
	walk = func(n *Node) {
		indent := strings.Repeat("|   ", n.Depth)
		if n.IsLeaf() {
			fmt.Fprintf(&sb, "%s|--- class: %g\n", indent, dt.classes[floats.MaxIdx(n.Counts)])
			return
		}
		fmt.Fprintf(&sb, "%s|--- %s <= %.2f\n", indent, name(n.Feature), n.Threshold)
		walk(n.Left)
		fmt.Fprintf(&sb, "%s|--- %s >  %.2f\n", indent, name(n.Feature), n.Threshold)
		walk(n.Right)
	}
	walk(dt.root)
	return sb.String(), nil
}

var _ model.Classifier = (*DecisionTreeClassifier)(nil)
