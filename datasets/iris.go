package datasets

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/scigo/workflows/pkg/errors"
)

//go:embed data/iris.csv
var irisCSV []byte

// IrisFeatureNames are the Iris measurement columns, in centimetres.
var IrisFeatureNames = []string{
	"sepal length (cm)",
	"sepal width (cm)",
	"petal length (cm)",
	"petal width (cm)",
}

// LoadIris returns Fisher's Iris data: 150 samples, 4 features, targets 0,
// 1 and 2 for setosa, versicolor and virginica.
func LoadIris() (*Dataset, error) {
	return parseBundledCSV("iris", irisCSV, IrisFeatureNames)
}

// parseBundledCSV reads the bundled CSV layout: a header
// "n_samples,n_features,target names..." followed by rows of features with
// an integer target in the last column.
func parseBundledCSV(name string, raw []byte, featureNames []string) (*Dataset, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", name)
	}
	if len(records) < 2 || len(records[0]) < 2 {
		return nil, errors.NewValueError("Load "+name, "missing header")
	}

	header := records[0]
	nSamples, err := strconv.Atoi(header[0])
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s header", name)
	}
	nFeatures, err := strconv.Atoi(header[1])
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s header", name)
	}
	rows := records[1:]
	if len(rows) != nSamples {
		return nil, errors.NewDimensionError("Load "+name, nSamples, len(rows), 0)
	}

	X := mat.NewDense(nSamples, nFeatures, nil)
	Y := mat.NewVecDense(nSamples, nil)
	for i, rec := range rows {
		if len(rec) != nFeatures+1 {
			return nil, errors.NewDimensionError("Load "+name, nFeatures+1, len(rec), 1)
		}
		for j := 0; j < nFeatures; j++ {
			v, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "%s row %d column %d", name, i, j)
			}
			X.Set(i, j, v)
		}
		target, err := strconv.Atoi(rec[nFeatures])
		if err != nil {
			return nil, errors.Wrapf(err, "%s row %d target", name, i)
		}
		Y.SetVec(i, float64(target))
	}

	return newDataset(name, X, Y, featureNames, append([]string(nil), header[2:]...))
}
