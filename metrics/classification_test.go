package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{"perfect accuracy", vec(0, 1, 2, 1, 0), vec(0, 1, 2, 1, 0), 1, false},
		{"80% accuracy", vec(0, 1, 2, 1, 0), vec(0, 1, 1, 1, 0), 0.8, false},
		{"zero accuracy", vec(0, 0, 0), vec(1, 1, 1), 0, false},
		{"empty vectors", &mat.VecDense{}, &mat.VecDense{}, 0, true},
		{"length mismatch", vec(0, 1), vec(0), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Accuracy(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestConfusionMatrix(t *testing.T) {
	// sklearn docs example.
	cm, labels, err := ConfusionMatrix(vec(2, 0, 2, 2, 0, 1), vec(0, 0, 2, 2, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, labels)
	assert.Equal(t, []float64{
		2, 0, 0,
		0, 0, 1,
		1, 0, 2,
	}, cm.RawMatrix().Data)
	assert.Equal(t, 6.0, mat.Sum(cm))
}

func TestConfusionMatrix_LabelUnion(t *testing.T) {
	cm, labels, err := ConfusionMatrix(vec(0, 0, 1), vec(0, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 3}, labels)
	r, c := cm.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 1.0, cm.At(0, 2))
}
