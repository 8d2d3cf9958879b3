package workflows

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/scigo/workflows/pkg/errors"
)

// File names written by saveClusters.
const (
	DatasetFile     = "clustered_dataset.npy"
	MembershipsFile = "clustered_memberships.npy"
	CentersFile     = "cluster_centers.npy"
)

// saveClusters writes the points, their labels and the centers to dir in
// NumPy's .npy format.
func saveClusters(dir string, res *ClusteringResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	memberships := make([]uint64, len(res.Labels))
	for i, l := range res.Labels {
		memberships[i] = uint64(l)
	}
	for name, val := range map[string]any{
		DatasetFile:     res.X,
		MembershipsFile: memberships,
		CentersFile:     res.Centers,
	} {
		if err := writeNpy(filepath.Join(dir, name), val); err != nil {
			return err
		}
	}
	return nil
}

func writeNpy(path string, val any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	if err := npyio.Write(f, val); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// plotClusters draws the first two features of every point colored by
// cluster, with the centers as crosses, and saves the image to path. The
// format follows the file extension.
func plotClusters(path string, res *ClusteringResult) error {
	_, p := res.X.Dims()
	if p < 2 {
		return errors.NewValidationError("plotPath", "plotting needs at least two features", p)
	}

	pl := plot.New()
	pl.Title.Text = "KMeans clusters"
	pl.X.Label.Text = "x0"
	pl.Y.Label.Text = "x1"

	k, _ := res.Centers.Dims()
	groups := make([]plotter.XYs, k)
	for i, l := range res.Labels {
		groups[l] = append(groups[l], plotter.XY{X: res.X.At(i, 0), Y: res.X.At(i, 1)})
	}
	for l, pts := range groups {
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return errors.Wrapf(err, "scatter for cluster %d", l)
		}
		s.Color = plotutil.Color(l)
		s.Radius = vg.Points(1)
		pl.Add(s)
		pl.Legend.Add(fmt.Sprintf("cluster %d", l), s)
	}

	centers := make(plotter.XYs, k)
	for i := range centers {
		centers[i] = plotter.XY{X: res.Centers.At(i, 0), Y: res.Centers.At(i, 1)}
	}
	c, err := plotter.NewScatter(centers)
	if err != nil {
		return errors.Wrap(err, "scatter for centers")
	}
	c.Shape = draw.CrossGlyph{}
	c.Radius = vg.Points(6)
	pl.Add(c)

	if err := pl.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}
