package datasets

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/scigo/workflows/pkg/errors"
	"github.com/scigo/workflows/preprocessing"
)

const (
	diabetesDataFile   = "diabetes_data_raw.csv.gz"
	diabetesTargetFile = "diabetes_target.csv.gz"

	diabetesSamples  = 442
	diabetesFeatures = 10
)

// DiabetesFeatureNames are age, sex, body mass index, average blood
// pressure and six blood serum measurements.
var DiabetesFeatureNames = []string{"age", "sex", "bmi", "bp", "s1", "s2", "s3", "s4", "s5", "s6"}

// LoadDiabetes returns the Diabetes regression data (442 samples, 10
// features, disease progression target). Every feature column is
// standardised and divided by sqrt(n_samples), so each column has zero mean
// and unit Euclidean norm.
func LoadDiabetes(ctx context.Context, src Source) (*Dataset, error) {
	ds, err := LoadDiabetesRaw(ctx, src)
	if err != nil {
		return nil, err
	}
	scaled, err := preprocessing.NewStandardScaler().FitTransform(ds.X)
	if err != nil {
		return nil, err
	}
	n, _ := scaled.Dims()
	scaled.Scale(1/math.Sqrt(float64(n)), scaled)
	ds.X = scaled
	return ds, nil
}

// LoadDiabetesRaw returns the Diabetes data with the original measurement
// units.
func LoadDiabetesRaw(ctx context.Context, src Source) (*Dataset, error) {
	rawX, err := src.Fetch(ctx, diabetesDataFile)
	if err != nil {
		return nil, err
	}
	rawY, err := src.Fetch(ctx, diabetesTargetFile)
	if err != nil {
		return nil, err
	}

	xs, nCols, err := readGzipTable(rawX)
	if err != nil {
		return nil, errors.Wrap(err, diabetesDataFile)
	}
	if nCols != diabetesFeatures {
		return nil, errors.NewDimensionError("LoadDiabetes", diabetesFeatures, nCols, 1)
	}
	ys, _, err := readGzipTable(rawY)
	if err != nil {
		return nil, errors.Wrap(err, diabetesTargetFile)
	}

	n := len(xs) / nCols
	if n != diabetesSamples {
		return nil, errors.NewDimensionError("LoadDiabetes", diabetesSamples, n, 0)
	}
	return newDataset("diabetes", mat.NewDense(n, nCols, xs), mat.NewVecDense(len(ys), ys), DiabetesFeatureNames, nil)
}

// readGzipTable parses a gzip-compressed, whitespace-separated numeric table
// and returns its values in row-major order with the column count.
func readGzipTable(raw []byte) ([]float64, int, error) {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, errors.Wrap(err, "gzip")
	}
	defer zr.Close()
	return readTable(zr)
}

func readTable(r io.Reader) ([]float64, int, error) {
	var (
		values []float64
		nCols  = -1
		line   int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if nCols == -1 {
			nCols = len(fields)
		} else if len(fields) != nCols {
			return nil, 0, errors.Newf("line %d: expected %d columns, got %d", line, nCols, len(fields))
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, 0, errors.Wrapf(err, "line %d", line)
			}
			values = append(values, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "read table")
	}
	if nCols == -1 {
		return nil, 0, errors.ErrEmptyData
	}
	return values, nCols, nil
}
