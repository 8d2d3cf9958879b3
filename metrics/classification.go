package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Accuracy returns the fraction of exactly matching labels.
func Accuracy(yTrue, yPred mat.Vector) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ConfusionMatrix counts (true, predicted) label pairs. Rows are true labels
// and columns are predicted labels, both ordered by the sorted union of the
// labels present in yTrue and yPred, which is returned alongside the matrix.
func ConfusionMatrix(yTrue, yPred mat.Vector) (*mat.Dense, []float64, error) {
	n, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, nil, err
	}

	index := make(map[float64]int)
	for i := 0; i < n; i++ {
		index[yTrue.AtVec(i)] = 0
		index[yPred.AtVec(i)] = 0
	}
	labels := make([]float64, 0, len(index))
	for l := range index {
		labels = append(labels, l)
	}
	sort.Float64s(labels)
	for i, l := range labels {
		index[l] = i
	}

	k := len(labels)
	cm := mat.NewDense(k, k, nil)
	for i := 0; i < n; i++ {
		r, c := index[yTrue.AtVec(i)], index[yPred.AtVec(i)]
		cm.Set(r, c, cm.At(r, c)+1)
	}
	return cm, labels, nil
}
